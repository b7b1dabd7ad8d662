package usecase

import (
	"fmt"
	"time"

	"Infinity/internal/domain/models"
	"Infinity/internal/domain/repository"
	"Infinity/internal/service/ratelimit"
)

// AssetLookup resolves an asset id against the live quotes.
type AssetLookup interface {
	Find(id string) (models.Asset, bool)
}

// ScreenFlow is the state machine MAIN -> ASSET_SELECTION -> TIMEFRAME_SELECTION -> ANALYSIS -> RESULT.
// It holds no state itself; every transition operates on the SessionState it is given.
type ScreenFlow struct {
	engine  *SignalEngine
	limiter *ratelimit.QuotaLimiter
	assets  AssetLookup
}

func NewScreenFlow(engine *SignalEngine, limiter *ratelimit.QuotaLimiter, assets AssetLookup) *ScreenFlow {
	return &ScreenFlow{engine: engine, limiter: limiter, assets: assets}
}

// Start leaves MAIN for asset selection when the tier quota allows another signal.
func (f *ScreenFlow) Start(st *models.SessionState, now time.Time) error {
	if err := expect(st, models.ScreenMain, "start"); err != nil {
		return err
	}
	if !f.limiter.Allow(st.History, st.Status, now) {
		return fmt.Errorf("%d/%d signals used in %s for %s: %w",
			f.limiter.Used(st.History, now), f.limiter.Quota(st.Status), f.limiter.Window(), st.Status, models.ErrQuotaExceeded)
	}
	st.Screen = models.ScreenAssetSelection
	return nil
}

// SelectAsset records the picked asset snapshot.
func (f *ScreenFlow) SelectAsset(st *models.SessionState, assetID string) error {
	if err := expect(st, models.ScreenAssetSelection, "select asset"); err != nil {
		return err
	}
	a, ok := f.assets.Find(assetID)
	if !ok {
		return fmt.Errorf("asset %s: %w", assetID, models.ErrNotFound)
	}
	st.PendingAsset = &a
	st.Screen = models.ScreenTimeframeSelection
	return nil
}

// SelectTimeframe records the picked timeframe and enters analysis.
func (f *ScreenFlow) SelectTimeframe(st *models.SessionState, tf string) error {
	if err := expect(st, models.ScreenTimeframeSelection, "select timeframe"); err != nil {
		return err
	}
	if !repository.IsValidTimeframe(repository.Timeframe(tf)) {
		return fmt.Errorf("timeframe %q: %w", tf, models.ErrInvalidTimeframe)
	}
	st.PendingTimeframe = tf
	st.Screen = models.ScreenAnalysis
	return nil
}

// CompleteAnalysis generates the signal for the pending pick, prepends it to history and shows it.
func (f *ScreenFlow) CompleteAnalysis(st *models.SessionState, now time.Time) (models.Signal, error) {
	if err := expect(st, models.ScreenAnalysis, "complete analysis"); err != nil {
		return models.Signal{}, err
	}
	if st.PendingAsset == nil || st.PendingTimeframe == "" {
		return models.Signal{}, fmt.Errorf("complete analysis without asset/timeframe: %w", models.ErrInvalidTransition)
	}
	s := f.engine.Generate(*st.PendingAsset, st.PendingTimeframe, st.Bonus[st.PendingAsset.ID], now, st.History.Contains)
	st.History.Prepend(s)
	st.ActiveSignalID = s.ID
	st.Screen = models.ScreenResult
	return s, nil
}

// RestartCycle re-enters analysis with the same asset and timeframe.
func (f *ScreenFlow) RestartCycle(st *models.SessionState) error {
	if err := expect(st, models.ScreenResult, "restart cycle"); err != nil {
		return err
	}
	st.Screen = models.ScreenAnalysis
	return nil
}

// BackToMain is legal from every screen. History and bonuses are untouched.
func (f *ScreenFlow) BackToMain(st *models.SessionState) {
	st.Screen = models.ScreenMain
	st.PendingAsset = nil
	st.PendingTimeframe = ""
	st.ActiveSignalID = ""
}

func expect(st *models.SessionState, want models.Screen, intent string) error {
	if st.Screen != want {
		return fmt.Errorf("%s on %s: %w", intent, st.Screen, models.ErrInvalidTransition)
	}
	return nil
}
