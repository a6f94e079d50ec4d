// Package stream отдает живые представления как Server-Sent Events.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"moodnote/internal/journal/adapters/http/middleware"
	"moodnote/internal/journal/adapters/http/respond"
	"moodnote/internal/journal/domain/entities"
	"moodnote/internal/journal/live"
	"moodnote/internal/journal/ports/services"
	"moodnote/pkg/logger"
)

const (
	LogStreamOpened = "live stream opened"
	LogStreamClosed = "live stream closed"

	ErrMsgInvalidLimit = "invalid limit"
)

// Subscriber открывает живые подписки.
type Subscriber interface {
	Subscribe(ctx context.Context, view live.View) (*live.Subscription, error)
}

// Handler обработчик потоков.
type Handler struct {
	hub         Subscriber
	queries     services.QueryService
	leaderboard services.LeaderboardService
	defaultLoc  *time.Location
	keepAlive   time.Duration
}

// NewHandler создает обработчик; keepAlive период комментариев-пингов, по
// которым обнаруживается отключившийся клиент.
func NewHandler(hub Subscriber, queries services.QueryService, leaderboard services.LeaderboardService, defaultLoc *time.Location, keepAlive time.Duration) *Handler {
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	return &Handler{
		hub:         hub,
		queries:     queries,
		leaderboard: leaderboard,
		defaultLoc:  defaultLoc,
		keepAlive:   keepAlive,
	}
}

// History поток истории пользователя.
func (h *Handler) History(ctx fiber.Ctx) error {
	return h.serve(ctx, live.HistoryView(h.queries, middleware.UserID(ctx)))
}

// Feed поток ленты дня.
func (h *Handler) Feed(ctx fiber.Ctx) error {
	loc, err := respond.Location(ctx, h.defaultLoc)
	if err != nil {
		return respond.Error(ctx, err)
	}
	return h.serve(ctx, live.FeedView(h.queries, loc, middleware.UserID(ctx)))
}

// Leaderboard поток рейтинга окна.
func (h *Handler) Leaderboard(ctx fiber.Ctx) error {
	window, err := entities.ParseWindow(ctx.Params("window"))
	if err != nil {
		return respond.Error(ctx, err)
	}
	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			return respond.BadRequest(ctx, ErrMsgInvalidLimit)
		}
	}
	return h.serve(ctx, live.LeaderboardView(h.leaderboard, window, limit, middleware.UserID(ctx)))
}

// serve subscribes before the response starts so that a failing snapshot is
// still reported with a proper status. The stream writer runs after the
// handler returns, so it gets its own context detached from the fiber one.
func (h *Handler) serve(ctx fiber.Ctx, view live.View) error {
	userCtx := middleware.UserContext(ctx)
	log := logger.Log(userCtx).With(zap.String("handler", "Handler.serve"), zap.String("view", view.Kind()))

	streamCtx := logger.NewRequestIDContext(context.Background(), middleware.RequestID(ctx))
	streamCtx = logger.NewContext(streamCtx, log)
	streamCtx, cancel := context.WithCancel(streamCtx)

	sub, err := h.hub.Subscribe(streamCtx, view)
	if err != nil {
		cancel()
		return respond.Error(ctx, err)
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	log.Info(userCtx, LogStreamOpened)
	keepAlive := h.keepAlive

	ctx.Response().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer sub.Close()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		err := Pump(w, sub.Updates(), ticker.C)
		log.Info(streamCtx, LogStreamClosed, zap.NamedError("reason", err))
	})
	return nil
}

// Pump пишет обновления в поток до закрытия канала или ошибки записи.
func Pump(w *bufio.Writer, updates <-chan live.Update, keepAlive <-chan time.Time) error {
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if err := WriteEvent(w, u); err != nil {
				return err
			}
		case <-keepAlive:
			if _, err := w.WriteString(": ping\n\n"); err != nil {
				return fmt.Errorf("failed to write keep-alive: %w", err)
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("client disconnected: %w", err)
			}
		}
	}
}

// WriteEvent пишет одно событие SSE: имя события совпадает с типом обновления.
func WriteEvent(w *bufio.Writer, u live.Update) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode live update: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", u.Type, payload); err != nil {
		return fmt.Errorf("failed to write live update: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("client disconnected: %w", err)
	}
	return nil
}
