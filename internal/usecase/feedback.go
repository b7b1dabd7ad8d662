package usecase

import (
	"fmt"

	"Infinity/internal/domain/models"
)

// FeedbackImpact is the bias applied per judged signal.
const FeedbackImpact = 5

// FeedbackModel applies user-reported outcomes to history and to the per-asset bias.
type FeedbackModel struct {
	impact int
}

func NewFeedbackModel() *FeedbackModel { return &FeedbackModel{impact: FeedbackImpact} }

// Record judges a pending signal and returns it with its new status.
func (m *FeedbackModel) Record(st *models.SessionState, signalID string, outcome models.SignalStatus) (models.Signal, error) {
	if !outcome.IsOutcome() {
		return models.Signal{}, fmt.Errorf("outcome %q: %w", outcome, models.ErrInvalidOutcome)
	}
	s, ok := st.History.Find(signalID)
	if !ok {
		return models.Signal{}, fmt.Errorf("signal %s: %w", signalID, models.ErrNotFound)
	}
	if !s.IsPending() {
		return models.Signal{}, fmt.Errorf("signal %s is %s: %w", signalID, s.Status, models.ErrAlreadyJudged)
	}
	s, _ = st.History.SetStatus(signalID, outcome)
	st.Bonus[s.Asset.ID] += m.delta(outcome)
	return s, nil
}

// Rebuild derives the bias map from the judged entries of a history.
func (m *FeedbackModel) Rebuild(h *models.History) models.FeedbackBonus {
	bonus := make(models.FeedbackBonus)
	if h == nil {
		return bonus
	}
	for _, s := range h.Items() {
		if s.Status.IsOutcome() {
			bonus[s.Asset.ID] += m.delta(s.Status)
		}
	}
	return bonus
}

func (m *FeedbackModel) delta(outcome models.SignalStatus) int {
	if outcome == models.StatusConfirmed {
		return m.impact
	}
	return -m.impact
}
