package models

// UserStatus is the access tier that controls the signal quota.
type UserStatus string

const (
	UserStandard UserStatus = "STANDARD"
	UserVerified UserStatus = "VERIFIED"
	UserVIP      UserStatus = "VIP"
)

// IsValid reports whether s is a known tier.
func (s UserStatus) IsValid() bool {
	switch s {
	case UserStandard, UserVerified, UserVIP:
		return true
	default:
		return false
	}
}

// Language is a two-letter interface language code.
type Language string

const (
	LangRU Language = "RU"
	LangEN Language = "EN"
)

// IsSupported reports whether l has a translation table in the presentation layer.
func (l Language) IsSupported() bool { return l == LangRU || l == LangEN }

// Screen is the tag of the active state in the screen flow.
type Screen string

const (
	ScreenMain               Screen = "MAIN"
	ScreenAssetSelection     Screen = "ASSET_SELECTION"
	ScreenTimeframeSelection Screen = "TIMEFRAME_SELECTION"
	ScreenAnalysis           Screen = "ANALYSIS"
	ScreenResult             Screen = "RESULT"
)

// FeedbackBonus maps asset id to the accumulated probability bias.
type FeedbackBonus map[string]int

// Clone returns an independent copy.
func (b FeedbackBonus) Clone() FeedbackBonus {
	out := make(FeedbackBonus, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// SessionState is everything one session owns. It is mutated only by the session controller.
type SessionState struct {
	Screen           Screen
	PendingAsset     *Asset
	PendingTimeframe string
	ActiveSignalID   string
	History          *History
	Bonus            FeedbackBonus
	Status           UserStatus
	Lang             Language
}

// NewSessionState returns the state of a fresh session.
func NewSessionState(lang Language) *SessionState {
	return &SessionState{
		Screen:  ScreenMain,
		History: NewHistory(nil, HistoryCapacity),
		Bonus:   make(FeedbackBonus),
		Status:  UserStandard,
		Lang:    lang,
	}
}

// PersistedState is the key/value view kept by the persistence gateway.
// Nil/empty fields mean "key absent".
type PersistedState struct {
	History []Signal
	Status  UserStatus
	Lang    Language
}
