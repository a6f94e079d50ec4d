// Package app implements the journal use cases.
package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"moodnote/internal/journal/domain/entities"
	"moodnote/internal/journal/ports/services"
	"moodnote/pkg/logger"
)

// Option настраивает use case.
type Option func(*options)

type options struct {
	now       func() time.Time
	publisher services.ChangePublisher
	metrics   services.Metrics
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithPublisher задает получателя событий изменения.
func WithPublisher(p services.ChangePublisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithMetrics задает счетчики.
func WithMetrics(m services.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{
		now:       time.Now,
		publisher: nopPublisher{},
		metrics:   nopMetrics{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, entities.ChangeEvent) error { return nil }

type nopMetrics struct{}

func (nopMetrics) PublicationOutcome(string, entities.State) {}
func (nopMetrics) LikeResult(string)                         {}
func (nopMetrics) SuggestionResult(string)                   {}
func (nopMetrics) Reconciled(string, int)                    {}

// emit publishes a change event; failures only delay live views, so they are logged.
func emit(ctx context.Context, p services.ChangePublisher, now func() time.Time, kind entities.ChangeKind, userID, noteID string) {
	ev := entities.ChangeEvent{Kind: kind, UserID: userID, NoteID: noteID, At: now()}
	if err := p.Publish(ctx, ev); err != nil {
		logger.Log(ctx).Warn(ctx, "failed to publish change event",
			zap.String("kind", string(kind)),
			zap.String("noteID", noteID),
			zap.Error(err))
	}
}
