// Package respond переводит ошибки журнала в HTTP-ответы.
package respond

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"moodnote/internal/journal/adapters/http/middleware"
	"moodnote/internal/journal/app/dto"
	"moodnote/internal/journal/domain/entities"
	"moodnote/internal/journal/ports/services"
	"moodnote/pkg/logger"
)

// HeaderTimezone заголовок с часовым поясом клиента (IANA).
const HeaderTimezone = "X-Timezone"

const (
	ErrMsgInvalidRequestBody = "invalid request body"
	ErrMsgInternal           = "internal server error"
	ErrMsgUnavailable        = "suggestion service is temporarily unavailable"
	ErrMsgRateLimited        = "too many requests, please try again later"
	ErrMsgUnauthorized       = "invalid or expired identity token"
)

// JSON отправляет тело с кодом status.
func JSON(ctx fiber.Ctx, status int, body any) error {
	if err := ctx.Status(status).JSON(body); err != nil {
		return fmt.Errorf("error sending response: %w", err)
	}
	return nil
}

// BadRequest отвечает 400 с сообщением.
func BadRequest(ctx fiber.Ctx, message string) error {
	return JSON(ctx, fiber.StatusBadRequest, dto.ErrorResponse{Error: message})
}

// Error maps journal errors onto status codes:
// validation and draft tokens 400, identity 401, missing 404, duplicate like and daily limit 409,
// rate limit 429, provider 503, storage and partial sequences 500.
func Error(ctx fiber.Ctx, err error) error {
	status, body := classify(err)
	if status >= fiber.StatusInternalServerError {
		requestCtx := middleware.UserContext(ctx)
		logger.Log(requestCtx).Error(requestCtx, "request failed", zap.Int("status", status), zap.Error(err))
	}
	return JSON(ctx, status, body)
}

func classify(err error) (int, dto.ErrorResponse) {
	var fiberErr *fiber.Error
	var stepErr *entities.StepError

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code, dto.ErrorResponse{Error: fiberErr.Message}
	case errors.Is(err, entities.ErrValidation):
		return fiber.StatusBadRequest, dto.ErrorResponse{Error: err.Error()}
	case errors.Is(err, services.ErrInvalidDraft):
		return fiber.StatusBadRequest, dto.ErrorResponse{Error: services.ErrInvalidDraft.Error()}
	case errors.Is(err, services.ErrInvalidToken), errors.Is(err, services.ErrExpiredToken):
		return fiber.StatusUnauthorized, dto.ErrorResponse{Error: ErrMsgUnauthorized}
	case errors.Is(err, entities.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Error: entities.ErrNotFound.Error()}
	case errors.Is(err, entities.ErrAlreadyLiked):
		return fiber.StatusConflict, dto.ErrorResponse{Error: entities.ErrAlreadyLiked.Error()}
	case errors.As(err, &stepErr):
		return fiber.StatusInternalServerError, dto.ErrorResponse{
			Error:          ErrMsgInternal,
			FailedStep:     stepErr.Step,
			CompletedSteps: stepErr.Completed,
		}
	case errors.Is(err, entities.ErrDailyLimitConflict):
		return fiber.StatusConflict, dto.ErrorResponse{Error: entities.ErrDailyLimitConflict.Error()}
	case errors.Is(err, entities.ErrRateLimited):
		return fiber.StatusTooManyRequests, dto.ErrorResponse{Error: ErrMsgRateLimited}
	case errors.Is(err, entities.ErrExternalServiceUnavailable):
		return fiber.StatusServiceUnavailable, dto.ErrorResponse{Error: ErrMsgUnavailable}
	default:
		return fiber.StatusInternalServerError, dto.ErrorResponse{Error: ErrMsgInternal}
	}
}

// Outcome отправляет результат шага публикации. Ожидание решения о замене
// возвращается как 409 вместе с конфликтующей записью, черновиком и
// подписанным draftToken, если он есть.
func Outcome(ctx fiber.Ctx, outcome *entities.Outcome, draftToken string, created bool) error {
	body := dto.OutcomeResponse{Outcome: outcome, DraftToken: draftToken}
	switch {
	case outcome.State == entities.StateAwaitingSwapDecision:
		return JSON(ctx, fiber.StatusConflict, body)
	case created:
		return JSON(ctx, fiber.StatusCreated, body)
	default:
		return JSON(ctx, fiber.StatusOK, body)
	}
}

// Location возвращает часовой пояс из заголовка X-Timezone или fallback.
func Location(ctx fiber.Ctx, fallback *time.Location) (*time.Location, error) {
	name := ctx.Get(HeaderTimezone)
	if name == "" {
		if fallback == nil {
			return time.UTC, nil
		}
		return fallback, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown time zone %q", entities.ErrValidation, name)
	}
	return loc, nil
}
