package api

import (
	"Infinity/internal/domain/models"
	domrepo "Infinity/internal/domain/repository"
	"Infinity/internal/usecase"
)

// ScreenView is what a client needs to draw the active screen.
type ScreenView struct {
	Screen      models.Screen     `json:"screen"`
	Title       string            `json:"title"`
	Actions     []string          `json:"actions"`
	Assets      []models.Asset    `json:"assets,omitempty"`
	Timeframes  []string          `json:"timeframes,omitempty"`
	Asset       *models.Asset     `json:"asset,omitempty"`
	Timeframe   string            `json:"timeframe,omitempty"`
	Signal      *models.Signal    `json:"signal,omitempty"`
	Status      models.UserStatus `json:"status"`
	SignalsUsed int               `json:"signalsUsed"`
	Limit       int               `json:"limit"`
}

type screenRenderer func(snap usecase.Snapshot, assets []models.Asset) ScreenView

var screenRenderers = map[models.Screen]screenRenderer{
	models.ScreenMain: func(usecase.Snapshot, []models.Asset) ScreenView {
		return ScreenView{Actions: []string{"start", "tier", "lang"}}
	},
	models.ScreenAssetSelection: func(_ usecase.Snapshot, assets []models.Asset) ScreenView {
		return ScreenView{Actions: []string{"asset", "back"}, Assets: assets}
	},
	models.ScreenTimeframeSelection: func(snap usecase.Snapshot, _ []models.Asset) ScreenView {
		tfs := domrepo.Timeframes()
		names := make([]string, len(tfs))
		for i, tf := range tfs {
			names[i] = string(tf)
		}
		return ScreenView{Actions: []string{"timeframe", "back"}, Asset: snap.PendingAsset, Timeframes: names}
	},
	models.ScreenAnalysis: func(snap usecase.Snapshot, _ []models.Asset) ScreenView {
		return ScreenView{Actions: []string{"complete", "back"}, Asset: snap.PendingAsset, Timeframe: snap.PendingTimeframe}
	},
	models.ScreenResult: func(snap usecase.Snapshot, _ []models.Asset) ScreenView {
		return ScreenView{Actions: []string{"feedback", "restart", "back"}, Asset: snap.PendingAsset, Timeframe: snap.PendingTimeframe, Signal: snap.ActiveSignal}
	},
}

var screenTitles = map[models.Language]map[models.Screen]string{
	models.LangRU: {
		models.ScreenMain:               "Главная",
		models.ScreenAssetSelection:     "Выберите актив",
		models.ScreenTimeframeSelection: "Выберите таймфрейм",
		models.ScreenAnalysis:           "Анализ рынка",
		models.ScreenResult:             "Сигнал готов",
	},
	models.LangEN: {
		models.ScreenMain:               "Home",
		models.ScreenAssetSelection:     "Select asset",
		models.ScreenTimeframeSelection: "Select timeframe",
		models.ScreenAnalysis:           "Market analysis",
		models.ScreenResult:             "Signal ready",
	},
}

func renderScreen(snap usecase.Snapshot, assets []models.Asset) ScreenView {
	render, ok := screenRenderers[snap.Screen]
	if !ok {
		render = screenRenderers[models.ScreenMain]
	}
	v := render(snap, assets)
	v.Screen = snap.Screen
	v.Title = screenTitles[snap.Lang][snap.Screen]
	v.Status = snap.Status
	v.SignalsUsed = snap.SignalsUsed
	v.Limit = snap.Limit
	return v
}
