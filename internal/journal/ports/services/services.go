// Package services defines outbound service ports of the journal service.
package services

import (
	"context"
	"errors"

	"moodnote/internal/journal/domain/entities"
)

// TextGenerator генерирует текст по подсказке.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ChangePublisher рассылает события изменения данных подписчикам.
type ChangePublisher interface {
	Publish(ctx context.Context, event entities.ChangeEvent) error
}

// TokenService выпускает и проверяет токены анонимной личности.
type TokenService interface {
	Issue(ctx context.Context, userID string) (string, error)
	Validate(ctx context.Context, token string) (string, error)
}

// DraftSealer подписывает черновик, ожидающий решения о замене, чтобы клиент
// вернул его без изменений.
type DraftSealer interface {
	Seal(ctx context.Context, draft *entities.Draft) (string, error)
	Open(ctx context.Context, token string) (*entities.Draft, error)
}

// RateLimiter ограничивает частоту операций по ключу.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Metrics счетчики бизнес-операций.
type Metrics interface {
	PublicationOutcome(operation string, state entities.State)
	LikeResult(result string)
	SuggestionResult(result string)
	Reconciled(kind string, n int)
}

// Ошибки токенов.
var (
	ErrInvalidToken = errors.New("invalid identity token")
	ErrExpiredToken = errors.New("identity token has expired")
	ErrInvalidDraft = errors.New("invalid or expired draft token")
)
