package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"moodnote/internal/journal/domain/entities"
	"moodnote/internal/journal/ports/services"
	"moodnote/pkg/logger"
)

const suggestionPrompt = "My mood today is %s (%s). Please write a short, creative journal entry starter for me in English, under 25 words."

// Результаты подсказки для метрик.
const (
	SuggestionOK          = "ok"
	SuggestionLimited     = "rate_limited"
	SuggestionUnavailable = "unavailable"
)

// BuildPrompt формирует подсказку для настроения.
func BuildPrompt(mood entities.Mood) string {
	return fmt.Sprintf(suggestionPrompt, mood.Label(), mood.Icon())
}

// SuggestionUseCase запрашивает у генератора начало записи.
type SuggestionUseCase struct {
	generator services.TextGenerator
	limiter   services.RateLimiter
	opts      options
}

// NewSuggestionUseCase создает use case; generator и limiter могут быть nil.
func NewSuggestionUseCase(generator services.TextGenerator, limiter services.RateLimiter, opts ...Option) *SuggestionUseCase {
	return &SuggestionUseCase{generator: generator, limiter: limiter, opts: buildOptions(opts)}
}

// Suggest возвращает короткое начало записи. Любой сбой генератора превращается
// в ErrExternalServiceUnavailable и не затрагивает сохранение записей.
func (uc *SuggestionUseCase) Suggest(ctx context.Context, userID, mood string) (string, error) {
	log := logger.Log(ctx).With(zap.String("method", "SuggestionUseCase.Suggest"))

	m, err := entities.ParseMood(mood)
	if err != nil {
		return "", err
	}

	if uc.limiter != nil {
		allowed, err := uc.limiter.Allow(ctx, "suggest:"+userID)
		if err != nil {
			log.Warn(ctx, "rate limiter unavailable, allowing request", zap.Error(err))
		} else if !allowed {
			uc.opts.metrics.SuggestionResult(SuggestionLimited)
			return "", entities.ErrRateLimited
		}
	}

	if uc.generator == nil {
		uc.opts.metrics.SuggestionResult(SuggestionUnavailable)
		return "", fmt.Errorf("text generation disabled: %w", entities.ErrExternalServiceUnavailable)
	}

	text, err := uc.generator.Generate(ctx, BuildPrompt(m))
	if err != nil {
		uc.opts.metrics.SuggestionResult(SuggestionUnavailable)
		log.Warn(ctx, "text generation failed", zap.Error(err))
		return "", fmt.Errorf("failed to generate suggestion: %w", entities.ErrExternalServiceUnavailable)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		uc.opts.metrics.SuggestionResult(SuggestionUnavailable)
		return "", fmt.Errorf("empty suggestion: %w", entities.ErrExternalServiceUnavailable)
	}

	uc.opts.metrics.SuggestionResult(SuggestionOK)
	return text, nil
}
