// Package identity содержит HTTP-обработчики анонимной личности, каталога
// настроений и подсказок.
package identity

import (
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"moodnote/internal/journal/adapters/http/middleware"
	"moodnote/internal/journal/adapters/http/respond"
	"moodnote/internal/journal/app/dto"
	"moodnote/internal/journal/ports/services"
	"moodnote/pkg/logger"
)

const (
	LogHandlerAnonymous = "handling anonymous identity request"
	LogHandlerSuggest   = "handling suggestion request"
)

// Handler обработчик личности и подсказок.
type Handler struct {
	identity    services.IdentityService
	suggestions services.SuggestionService
}

// NewHandler создает обработчик.
func NewHandler(identity services.IdentityService, suggestions services.SuggestionService) *Handler {
	return &Handler{identity: identity, suggestions: suggestions}
}

// Anonymous выдает новый анонимный идентификатор и токен.
func (h *Handler) Anonymous(ctx fiber.Ctx) error {
	userCtx := middleware.UserContext(ctx)
	log := logger.Log(userCtx).With(zap.String("handler", "Handler.Anonymous"))
	log.Debug(userCtx, LogHandlerAnonymous)

	userID, token, err := h.identity.Anonymous(userCtx)
	if err != nil {
		log.Error(userCtx, "failed to issue identity", zap.Error(err))
		return respond.Error(ctx, err)
	}
	return respond.JSON(ctx, fiber.StatusCreated, dto.IdentityResponse{UserID: userID, Token: token})
}

// Moods возвращает каталог настроений.
func (h *Handler) Moods(ctx fiber.Ctx) error {
	return respond.JSON(ctx, fiber.StatusOK, dto.Moods())
}

// Suggest возвращает начало записи для выбранного настроения.
func (h *Handler) Suggest(ctx fiber.Ctx) error {
	userCtx := middleware.UserContext(ctx)
	log := logger.Log(userCtx).With(zap.String("handler", "Handler.Suggest"))
	log.Debug(userCtx, LogHandlerSuggest)

	var req dto.SuggestionRequest
	if err := ctx.Bind().Body(&req); err != nil {
		log.Debug(userCtx, respond.ErrMsgInvalidRequestBody, zap.Error(err))
		return respond.BadRequest(ctx, respond.ErrMsgInvalidRequestBody)
	}
	if err := dto.Validate(&req); err != nil {
		return respond.Error(ctx, err)
	}

	text, err := h.suggestions.Suggest(userCtx, middleware.UserID(ctx), req.Mood)
	if err != nil {
		return respond.Error(ctx, err)
	}
	return respond.JSON(ctx, fiber.StatusOK, dto.SuggestionResponse{Text: text})
}
