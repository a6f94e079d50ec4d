// Package live keeps subscribed views of history, feed and leaderboards up to
// date. Each subscription receives a snapshot first and then diffs, recomputed
// when a relevant change event arrives or on a periodic refresh.
package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"moodnote/internal/journal/domain/entities"
	"moodnote/pkg/logger"
)

const (
	LogSubscriptionOpened = "live subscription opened"
	LogSubscriptionClosed = "live subscription closed"
	LogRefreshFailed      = "failed to refresh live view, keeping previous state"
	ErrLoadSnapshot       = "failed to load live snapshot"
)

// ErrHubClosed возвращается при подписке на закрытый хаб.
var ErrHubClosed = errors.New("live hub is closed")

// Observer получает события открытия и закрытия подписок.
type Observer interface {
	SubscriptionOpened(view string)
	SubscriptionClosed(view string)
}

type nopObserver struct{}

func (nopObserver) SubscriptionOpened(string) {}
func (nopObserver) SubscriptionClosed(string) {}

// Option настраивает хаб.
type Option func(*Hub)

// WithRefreshInterval включает периодический пересчет; 0 отключает его.
func WithRefreshInterval(d time.Duration) Option {
	return func(h *Hub) { h.refresh = d }
}

// WithObserver задает наблюдателя подписок.
func WithObserver(o Observer) Option {
	return func(h *Hub) { h.observer = o }
}

// WithBufferSize задает размер буфера обновлений одной подписки.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// Hub рассылает события изменения подпискам.
type Hub struct {
	mu       sync.Mutex
	subs     map[*Subscription]struct{}
	closed   bool
	refresh  time.Duration
	buffer   int
	observer Observer
}

// NewHub создает хаб.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subs:     make(map[*Subscription]struct{}),
		buffer:   16,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscription живая подписка на одно представление.
type Subscription struct {
	hub     *Hub
	view    View
	updates chan Update
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
	rows    []Row
}

// Updates возвращает канал обновлений; он закрывается при завершении подписки.
func (s *Subscription) Updates() <-chan Update { return s.updates }

// Close завершает подписку. Повторный вызов безопасен.
func (s *Subscription) Close() {
	s.once.Do(func() { close(s.done) })
}

// Subscribe registers the subscription, then loads the current state of view
// and starts delivering updates. Events that arrive while the snapshot loads
// leave a pending wake-up, so the first refresh follows right after it.
// The snapshot is the first value on Updates. The subscription ends when ctx
// is done, Close is called or the hub is closed.
func (h *Hub) Subscribe(ctx context.Context, view View) (*Subscription, error) {
	log := logger.Log(ctx).With(zap.String("method", "Hub.Subscribe"), zap.String("view", view.Kind()))

	sub := &Subscription{
		hub:     h,
		view:    view,
		updates: make(chan Update, h.buffer),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	rows, err := view.Load(ctx)
	if err != nil {
		h.remove(sub)
		return nil, fmt.Errorf("%s: %w", ErrLoadSnapshot, err)
	}
	sub.rows = rows
	sub.updates <- Snapshot(rows)

	h.observer.SubscriptionOpened(view.Kind())
	log.Debug(ctx, LogSubscriptionOpened, zap.Int("rows", len(rows)))

	go sub.run(ctx)
	return sub, nil
}

func (s *Subscription) run(ctx context.Context) {
	log := logger.Log(ctx).With(zap.String("method", "Subscription.run"), zap.String("view", s.view.Kind()))

	defer func() {
		s.hub.remove(s)
		close(s.updates)
		s.hub.observer.SubscriptionClosed(s.view.Kind())
		log.Debug(ctx, LogSubscriptionClosed)
	}()

	var tick <-chan time.Time
	if s.hub.refresh > 0 {
		ticker := time.NewTicker(s.hub.refresh)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-s.wake:
		case <-tick:
		}

		rows, err := s.view.Load(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn(ctx, LogRefreshFailed, zap.Error(err))
			continue
		}
		update, changed := Diff(s.rows, rows)
		if !changed {
			continue
		}
		s.rows = rows

		select {
		case s.updates <- update:
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

// Notify will wake every subscription whose view the event may change.
// Wake-ups coalesce: a subscription busy recomputing will recompute once more.
func (h *Hub) Notify(ev entities.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		if !s.view.Relevant(ev) {
			continue
		}
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// Publish реализует services.ChangePublisher для одного экземпляра без Redis.
func (h *Hub) Publish(_ context.Context, ev entities.ChangeEvent) error {
	h.Notify(ev)
	return nil
}

// Subscribers возвращает число активных подписок.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close завершает все подписки и запрещает новые.
func (h *Hub) Close(_ context.Context) error {
	h.mu.Lock()
	h.closed = true
	subs := make([]*Subscription, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	return nil
}
