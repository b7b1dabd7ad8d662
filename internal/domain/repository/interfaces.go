package repository

import (
	"context"

	"Infinity/internal/domain/models"
)

// StateStore is the persistence gateway. Each key is read and written independently.
type StateStore interface {
	Load(ctx context.Context) (models.PersistedState, error)
	SaveHistory(ctx context.Context, history []models.Signal) error
	SaveStatus(ctx context.Context, status models.UserStatus) error
	SaveLang(ctx context.Context, lang models.Language) error
	Close() error
}

// EventPublisher delivers signal lifecycle events to an external sink.
type EventPublisher interface {
	Publish(ctx context.Context, e models.SignalEvent) error
	Close() error
}

type Metrics interface {
	RecordSignalGenerated(assetID string, direction models.Direction)
	RecordFeedback(assetID string, outcome models.SignalStatus)
	RecordQuotaRejected(status models.UserStatus)
	RecordError(kind string)
	RecordLastPrice(assetID string, price float64)
	RecordLatency(op string, seconds float64)
}
