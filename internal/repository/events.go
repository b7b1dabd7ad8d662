package repository

import (
	"context"
	"database/sql"
	"fmt"

	"Infinity/internal/domain/models"
	domrepo "Infinity/internal/domain/repository"
	pkgch "Infinity/pkg/clickhouse"
	applogger "Infinity/pkg/logger"
)

type keyedProducer interface {
	Publish(ctx context.Context, key []byte, value interface{}) error
	Close() error
}

// KafkaEventPublisher writes signal events as JSON keyed by asset id, so the events of
// one asset stay ordered.
type KafkaEventPublisher struct {
	p keyedProducer
}

var _ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)

func NewKafkaEventPublisher(p keyedProducer) *KafkaEventPublisher {
	return &KafkaEventPublisher{p: p}
}

func (k *KafkaEventPublisher) Publish(ctx context.Context, e models.SignalEvent) error {
	return k.p.Publish(ctx, []byte(e.Signal.Asset.ID), e)
}

func (k *KafkaEventPublisher) Close() error { return k.p.Close() }

// SignalEventsTable is the ClickHouse table receiving signal events.
const SignalEventsTable = "infinity.signal_events"

// SignalEventsSchema creates the archive table.
var SignalEventsSchema = []string{
	`CREATE DATABASE IF NOT EXISTS infinity`,
	`CREATE TABLE IF NOT EXISTS ` + SignalEventsTable + ` (
        event_id    String,
        type        LowCardinality(String),
        signal_id   String,
        asset_id    LowCardinality(String),
        timeframe   LowCardinality(String),
        direction   LowCardinality(String),
        probability UInt8,
        status      LowCardinality(String),
        user_status LowCardinality(String),
        bonus       Int32,
        signal_ts   DateTime64(3, 'UTC'),
        occurred_at DateTime64(3, 'UTC')
    ) ENGINE = ReplacingMergeTree
    ORDER BY (asset_id, occurred_at, event_id)`,
}

// CHEventArchive appends signal events to ClickHouse.
type CHEventArchive struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
	close func() error
}

var _ domrepo.EventPublisher = (*CHEventArchive)(nil)

// NewCHEventArchive creates the table if needed and returns an archive owning ch.
func NewCHEventArchive(ctx context.Context, ch *pkgch.Client, l *applogger.Logger) (*CHEventArchive, error) {
	if err := ch.InitSchema(ctx, SignalEventsSchema); err != nil {
		return nil, err
	}
	return &CHEventArchive{db: ch.DB(), table: SignalEventsTable, l: l, close: ch.Close}, nil
}

func (a *CHEventArchive) Publish(ctx context.Context, e models.SignalEvent) error {
	q := fmt.Sprintf(`INSERT INTO %s (event_id, type, signal_id, asset_id, timeframe, direction,
        probability, status, user_status, bonus, signal_ts, occurred_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, a.table)
	if _, err := a.db.ExecContext(ctx, q, eventRow(e)...); err != nil {
		a.l.Error("clickhouse insert signal event error",
			applogger.String("table", a.table),
			applogger.String("event_id", e.EventID),
			applogger.Error(err),
		)
		return fmt.Errorf("insert signal event: %w", err)
	}
	return nil
}

func (a *CHEventArchive) Close() error {
	if a.close != nil {
		return a.close()
	}
	return nil
}

func eventRow(e models.SignalEvent) []interface{} {
	return []interface{}{
		e.EventID,
		e.Type,
		e.Signal.ID,
		e.Signal.Asset.ID,
		e.Signal.Timeframe,
		string(e.Signal.Direction),
		uint8(e.Signal.Probability),
		string(e.Signal.Status),
		string(e.UserStatus),
		int32(e.Bonus),
		e.Signal.Timestamp.UTC(),
		e.OccurredAt.UTC(),
	}
}

// NoopEventPublisher drops every event.
type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(context.Context, models.SignalEvent) error { return nil }
func (NoopEventPublisher) Close() error                                      { return nil }
