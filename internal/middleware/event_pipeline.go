package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"Infinity/internal/domain/models"
	domrepo "Infinity/internal/domain/repository"
	applogger "Infinity/pkg/logger"

	"github.com/cenkalti/backoff/v4"
)

// ErrBufferFull is returned when an event cannot be delivered nor buffered.
var ErrBufferFull = errors.New("event pipeline buffer full")

// EventPipeline sits between the session and the event sink. It validates events and,
// when the sink is unavailable, buffers them for redelivery in the background.
type EventPipeline struct {
	next    domrepo.EventPublisher
	metrics domrepo.Metrics
	l       *applogger.Logger

	bufSize       int
	bufCh         chan models.SignalEvent
	retryInitial  time.Duration
	retryMax      time.Duration
	retryDeadline time.Duration

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

type PipelineOption func(*EventPipeline)

// WithBufferSize sets how many undelivered events are kept.
func WithBufferSize(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithRetry sets the redelivery backoff and how long one event is retried before it is dropped.
func WithRetry(initial, maxInterval, deadline time.Duration) PipelineOption {
	return func(p *EventPipeline) {
		if initial > 0 {
			p.retryInitial = initial
		}
		if maxInterval > 0 {
			p.retryMax = maxInterval
		}
		if deadline > 0 {
			p.retryDeadline = deadline
		}
	}
}

// NewEventPipeline wraps next.
func NewEventPipeline(next domrepo.EventPublisher, metrics domrepo.Metrics, l *applogger.Logger, opts ...PipelineOption) *EventPipeline {
	p := &EventPipeline{
		next:          next,
		metrics:       metrics,
		l:             l,
		bufSize:       1000,
		retryInitial:  50 * time.Millisecond,
		retryMax:      2 * time.Second,
		retryDeadline: time.Minute,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan models.SignalEvent, p.bufSize)
	return p
}

// Start launches background redelivery of buffered events.
func (p *EventPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel, p.done = cancel, done
	go p.redeliver(ctx, done)
}

// Publish validates e and hands it to the sink. A sink failure buffers the event and is
// not reported; only a full buffer is.
func (p *EventPipeline) Publish(ctx context.Context, e models.SignalEvent) error {
	start := time.Now()
	if err := validateEvent(e); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}

	err := p.next.Publish(ctx, e)
	if err == nil {
		p.metrics.RecordLatency("pipeline_publish", time.Since(start).Seconds())
		return nil
	}

	p.metrics.RecordError("pipeline_publish")
	select {
	case p.bufCh <- e:
		p.l.Debug("event buffered for redelivery",
			applogger.String("event_id", e.EventID),
			applogger.Int("depth", len(p.bufCh)),
			applogger.Error(err),
		)
		return nil
	default:
		p.metrics.RecordError("pipeline_buffer_full")
		return fmt.Errorf("%w: %v", ErrBufferFull, err)
	}
}

// Pending returns the number of buffered events.
func (p *EventPipeline) Pending() int { return len(p.bufCh) }

// Close stops redelivery and closes the sink. Events still buffered are lost.
func (p *EventPipeline) Close() error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.started, p.cancel, p.done = false, nil, nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if n := len(p.bufCh); n > 0 {
		p.l.Warn("closing event pipeline with undelivered events", applogger.Int("pending", n))
	}
	return p.next.Close()
}

func (p *EventPipeline) redeliver(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-p.bufCh:
			if err := backoff.Retry(func() error {
				return p.next.Publish(ctx, e)
			}, backoff.WithContext(p.newBackOff(), ctx)); err != nil {
				if ctx.Err() != nil {
					// put it back so Close can report it
					select {
					case p.bufCh <- e:
					default:
					}
					return
				}
				p.metrics.RecordError("pipeline_drop")
				p.l.Warn("event dropped after retries", applogger.String("event_id", e.EventID), applogger.Error(err))
				continue
			}
			p.l.Debug("buffered event delivered", applogger.String("event_id", e.EventID))
		}
	}
}

func (p *EventPipeline) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.retryInitial
	b.MaxInterval = p.retryMax
	b.MaxElapsedTime = p.retryDeadline
	return b
}

func validateEvent(e models.SignalEvent) error {
	if e.EventID == "" {
		return fmt.Errorf("event id empty")
	}
	if e.Signal.ID == "" {
		return fmt.Errorf("signal id empty")
	}
	switch e.Type {
	case models.EventSignalCreated, models.EventSignalJudged:
		return nil
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
}
