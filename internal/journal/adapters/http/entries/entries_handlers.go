// Package entries содержит HTTP-обработчики записей дневника.
package entries

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"moodnote/internal/journal/adapters/http/middleware"
	"moodnote/internal/journal/adapters/http/respond"
	"moodnote/internal/journal/app/dto"
	"moodnote/internal/journal/domain/entities"
	"moodnote/internal/journal/ports/services"
	"moodnote/pkg/logger"
)

// Константы ошибок и сообщений для логирования.
const (
	LogHandlerSave       = "handling save entry request"
	LogHandlerSwap       = "handling swap decision request"
	LogHandlerHistory    = "handling history request"
	LogHandlerVisibility = "handling visibility request"
	LogHandlerToggleSwap = "handling visibility swap request"

	ErrMsgInvalidEntryID = "invalid entry id"
	ErrMsgForeignDraft   = "draft belongs to another user"
)

// Handler обработчик HTTP-запросов для работы с записями.
type Handler struct {
	publication services.PublicationService
	queries     services.QueryService
	drafts      services.DraftSealer
	defaultLoc  *time.Location
}

// NewHandler создает обработчик; defaultLoc используется без заголовка X-Timezone.
func NewHandler(publication services.PublicationService, queries services.QueryService, drafts services.DraftSealer, defaultLoc *time.Location) *Handler {
	return &Handler{publication: publication, queries: queries, drafts: drafts, defaultLoc: defaultLoc}
}

// Save сохраняет новую запись приватной или публичной.
func (h *Handler) Save(ctx fiber.Ctx) error {
	userCtx := middleware.UserContext(ctx)
	log := logger.Log(userCtx).With(zap.String("handler", "Handler.Save"))
	log.Debug(userCtx, LogHandlerSave)

	var req dto.SaveEntryRequest
	if err := ctx.Bind().Body(&req); err != nil {
		log.Debug(userCtx, respond.ErrMsgInvalidRequestBody, zap.Error(err))
		return respond.BadRequest(ctx, respond.ErrMsgInvalidRequestBody)
	}
	if err := dto.Validate(&req); err != nil {
		return respond.Error(ctx, err)
	}

	loc, err := respond.Location(ctx, h.defaultLoc)
	if err != nil {
		return respond.Error(ctx, err)
	}
	intent, err := entities.ParseShareIntent(req.Share)
	if err != nil {
		return respond.Error(ctx, err)
	}

	draft, err := h.publication.NewDraft(middleware.UserID(ctx), req.Mood, req.Message, loc)
	if err != nil {
		return respond.Error(ctx, err)
	}

	outcome, err := h.publication.Save(userCtx, draft, intent)
	if err != nil {
		log.Error(userCtx, "failed to save entry", zap.Error(err))
		return respond.Error(ctx, err)
	}
	return h.respondOutcome(ctx, outcome)
}

// Swap завершает публикацию новой записи после конфликта дневного лимита.
func (h *Handler) Swap(ctx fiber.Ctx) error {
	userCtx := middleware.UserContext(ctx)
	log := logger.Log(userCtx).With(zap.String("handler", "Handler.Swap"))
	log.Debug(userCtx, LogHandlerSwap)

	var req dto.SwapRequest
	if err := ctx.Bind().Body(&req); err != nil {
		log.Debug(userCtx, respond.ErrMsgInvalidRequestBody, zap.Error(err))
		return respond.BadRequest(ctx, respond.ErrMsgInvalidRequestBody)
	}
	if err := dto.Validate(&req); err != nil {
		return respond.Error(ctx, err)
	}
	decision, err := entities.ParseSwapDecision(req.Decision)
	if err != nil {
		return respond.Error(ctx, err)
	}

	loc, err := respond.Location(ctx, h.defaultLoc)
	if err != nil {
		return respond.Error(ctx, err)
	}

	draft, err := h.drafts.Open(userCtx, req.DraftToken)
	if err != nil {
		log.Debug(userCtx, "rejected draft token", zap.Error(err))
		return respond.Error(ctx, err)
	}
	if draft.UserID != middleware.UserID(ctx) {
		return respond.JSON(ctx, fiber.StatusForbidden, dto.ErrorResponse{Error: ErrMsgForeignDraft})
	}

	outcome, err := h.publication.ResolveSwap(userCtx, draft, decision, loc)
	if err != nil {
		log.Error(userCtx, "failed to resolve swap", zap.Error(err))
		return respond.Error(ctx, err)
	}
	return h.respondOutcome(ctx, outcome)
}

// respondOutcome подписывает черновик, ожидающий решения о замене, чтобы
// клиент вернул его в Swap без изменений.
func (h *Handler) respondOutcome(ctx fiber.Ctx, outcome *entities.Outcome) error {
	if outcome.State != entities.StateAwaitingSwapDecision || outcome.Draft == nil {
		return respond.Outcome(ctx, outcome, "", true)
	}

	token, err := h.drafts.Seal(middleware.UserContext(ctx), outcome.Draft)
	if err != nil {
		return respond.Error(ctx, err)
	}
	return respond.Outcome(ctx, outcome, token, true)
}

// History возвращает записи пользователя, новые сверху.
func (h *Handler) History(ctx fiber.Ctx) error {
	userCtx := middleware.UserContext(ctx)
	log := logger.Log(userCtx).With(zap.String("handler", "Handler.History"))
	log.Debug(userCtx, LogHandlerHistory)

	notes, err := h.queries.History(userCtx, middleware.UserID(ctx))
	if err != nil {
		log.Error(userCtx, "failed to load history", zap.Error(err))
		return respond.Error(ctx, err)
	}
	if notes == nil {
		notes = []*entities.PrivateNote{}
	}
	return respond.JSON(ctx, fiber.StatusOK, dto.HistoryResponse{Entries: notes})
}

// SetVisibility переключает запись истории в публичную или приватную.
func (h *Handler) SetVisibility(ctx fiber.Ctx) error {
	userCtx := middleware.UserContext(ctx)
	log := logger.Log(userCtx).With(zap.String("handler", "Handler.SetVisibility"))
	log.Debug(userCtx, LogHandlerVisibility)

	noteID := ctx.Params("id")
	if noteID == "" {
		return respond.BadRequest(ctx, ErrMsgInvalidEntryID)
	}

	var req dto.VisibilityRequest
	if err := ctx.Bind().Body(&req); err != nil {
		log.Debug(userCtx, respond.ErrMsgInvalidRequestBody, zap.Error(err))
		return respond.BadRequest(ctx, respond.ErrMsgInvalidRequestBody)
	}
	if err := dto.Validate(&req); err != nil {
		return respond.Error(ctx, err)
	}

	outcome, err := h.publication.SetVisibility(userCtx, middleware.UserID(ctx), noteID, *req.Public)
	if err != nil {
		log.Error(userCtx, "failed to set visibility", zap.String("noteID", noteID), zap.Error(err))
		return respond.Error(ctx, err)
	}
	return respond.Outcome(ctx, outcome, "", false)
}

// ResolveToggleSwap завершает переключение в публичную после конфликта.
func (h *Handler) ResolveToggleSwap(ctx fiber.Ctx) error {
	userCtx := middleware.UserContext(ctx)
	log := logger.Log(userCtx).With(zap.String("handler", "Handler.ResolveToggleSwap"))
	log.Debug(userCtx, LogHandlerToggleSwap)

	noteID := ctx.Params("id")
	if noteID == "" {
		return respond.BadRequest(ctx, ErrMsgInvalidEntryID)
	}

	var req dto.ToggleSwapRequest
	if err := ctx.Bind().Body(&req); err != nil {
		log.Debug(userCtx, respond.ErrMsgInvalidRequestBody, zap.Error(err))
		return respond.BadRequest(ctx, respond.ErrMsgInvalidRequestBody)
	}
	if err := dto.Validate(&req); err != nil {
		return respond.Error(ctx, err)
	}
	decision, err := entities.ParseSwapDecision(req.Decision)
	if err != nil {
		return respond.Error(ctx, err)
	}

	outcome, err := h.publication.ResolveToggleSwap(userCtx, middleware.UserID(ctx), noteID, decision)
	if err != nil {
		log.Error(userCtx, "failed to resolve visibility swap", zap.String("noteID", noteID), zap.Error(err))
		return respond.Error(ctx, err)
	}
	return respond.Outcome(ctx, outcome, "", false)
}
