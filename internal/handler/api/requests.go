package api

// SelectAssetRequest picks the asset of the current cycle.
type SelectAssetRequest struct {
	AssetID string `json:"asset_id" validate:"required,max=32"`
}

// SelectTimeframeRequest picks the analysis horizon. The set of accepted values is
// enforced by the session.
type SelectTimeframeRequest struct {
	Timeframe string `json:"timeframe" validate:"required,max=8"`
}

// FeedbackRequest judges a pending signal.
type FeedbackRequest struct {
	ID      string `param:"id" json:"-" validate:"required,max=16"`
	Outcome string `json:"outcome" validate:"required,oneof=CONFIRMED FAILED"`
}

// TierRequest carries the tier secret.
type TierRequest struct {
	Secret string `json:"secret" validate:"required,max=64"`
}

// LanguageRequest switches the interface language.
type LanguageRequest struct {
	Lang string `json:"lang" validate:"required,len=2"`
}

// HistoryQuery filters the signal history.
type HistoryQuery struct {
	Since  string `query:"since"`
	Status string `query:"status" validate:"omitempty,oneof=PENDING CONFIRMED FAILED"`
	Asset  string `query:"asset" validate:"max=32"`
	Limit  int    `query:"limit" default:"100" validate:"gte=1,lte=100"`
}
