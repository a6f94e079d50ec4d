// Package feed содержит HTTP-обработчики ленты, лайков и рейтинга.
package feed

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"moodnote/internal/journal/adapters/http/middleware"
	"moodnote/internal/journal/adapters/http/respond"
	"moodnote/internal/journal/app/dto"
	"moodnote/internal/journal/domain/entities"
	"moodnote/internal/journal/live"
	"moodnote/internal/journal/ports/services"
	"moodnote/pkg/logger"
)

const (
	LogHandlerFeed        = "handling feed request"
	LogHandlerLike        = "handling like request"
	LogHandlerLeaderboard = "handling leaderboard request"

	ErrMsgInvalidNoteID     = "invalid note id"
	ErrMsgInvalidPagination = "invalid pagination parameters"
)

// Handler обработчик ленты.
type Handler struct {
	queries     services.QueryService
	likes       services.LikeService
	leaderboard services.LeaderboardService
	defaultLoc  *time.Location
	pageSize    int
}

// NewHandler создает обработчик; pageSize шаг раскрытия рейтинга по умолчанию.
func NewHandler(queries services.QueryService, likes services.LikeService, leaderboard services.LeaderboardService, defaultLoc *time.Location, pageSize int) *Handler {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Handler{
		queries:     queries,
		likes:       likes,
		leaderboard: leaderboard,
		defaultLoc:  defaultLoc,
		pageSize:    pageSize,
	}
}

// Feed возвращает публичные записи текущих суток зрителя.
func (h *Handler) Feed(ctx fiber.Ctx) error {
	userCtx := middleware.UserContext(ctx)
	log := logger.Log(userCtx).With(zap.String("handler", "Handler.Feed"))
	log.Debug(userCtx, LogHandlerFeed)

	loc, err := respond.Location(ctx, h.defaultLoc)
	if err != nil {
		return respond.Error(ctx, err)
	}

	day, notes, err := h.queries.FeedOfDay(userCtx, loc)
	if err != nil {
		log.Error(userCtx, "failed to load feed", zap.Error(err))
		return respond.Error(ctx, err)
	}

	return respond.JSON(ctx, fiber.StatusOK, dto.FeedResponse{
		Date:  day,
		Notes: dto.PublicItems(notes, middleware.UserID(ctx)),
	})
}

// Like ставит лайк публичной записи.
func (h *Handler) Like(ctx fiber.Ctx) error {
	userCtx := middleware.UserContext(ctx)
	log := logger.Log(userCtx).With(zap.String("handler", "Handler.Like"))
	log.Debug(userCtx, LogHandlerLike)

	noteID := ctx.Params("id")
	if noteID == "" {
		return respond.BadRequest(ctx, ErrMsgInvalidNoteID)
	}

	userID := middleware.UserID(ctx)
	note, err := h.likes.Like(userCtx, userID, noteID)
	if err != nil {
		return respond.Error(ctx, err)
	}
	return respond.JSON(ctx, fiber.StatusOK, dto.LikeResponse{Note: live.NewPublicItem(note, userID)})
}

// Leaderboard returns the visible prefix of the ranking. "limit" caps the
// ranking itself; "shown" and "step" reveal it page by page without refetching
// a different ranking.
func (h *Handler) Leaderboard(ctx fiber.Ctx) error {
	userCtx := middleware.UserContext(ctx)
	log := logger.Log(userCtx).With(zap.String("handler", "Handler.Leaderboard"))
	log.Debug(userCtx, LogHandlerLeaderboard)

	window, err := entities.ParseWindow(ctx.Params("window"))
	if err != nil {
		return respond.Error(ctx, err)
	}

	limit, err1 := queryInt(ctx, "limit", 0)
	shown, err2 := queryInt(ctx, "shown", 0)
	step, err3 := queryInt(ctx, "step", h.pageSize)
	if err1 != nil || err2 != nil || err3 != nil || shown < 0 || step < 0 {
		return respond.BadRequest(ctx, ErrMsgInvalidPagination)
	}

	ranked, err := h.leaderboard.Rank(userCtx, window, limit)
	if err != nil {
		log.Error(userCtx, "failed to rank", zap.String("window", string(window)), zap.Error(err))
		return respond.Error(ctx, err)
	}

	visible := entities.Reveal(ranked, shown, step)
	return respond.JSON(ctx, fiber.StatusOK, dto.LeaderboardResponse{
		Window:  string(window),
		Notes:   dto.PublicItems(visible, middleware.UserID(ctx)),
		Total:   len(ranked),
		HasMore: len(visible) < len(ranked),
	})
}

func queryInt(ctx fiber.Ctx, key string, def int) (int, error) {
	raw := ctx.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
