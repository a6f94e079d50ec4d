package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"moodnote/internal/journal/ports/services"
)

// IdentityUseCase выдает анонимные идентификаторы и проверяет их токены.
type IdentityUseCase struct {
	tokens services.TokenService
}

// NewIdentityUseCase создает use case.
func NewIdentityUseCase(tokens services.TokenService) *IdentityUseCase {
	return &IdentityUseCase{tokens: tokens}
}

// Anonymous создает новый непрозрачный идентификатор и токен к нему.
func (uc *IdentityUseCase) Anonymous(ctx context.Context) (string, string, error) {
	userID := uuid.NewString()
	token, err := uc.tokens.Issue(ctx, userID)
	if err != nil {
		return "", "", fmt.Errorf("failed to issue identity token: %w", err)
	}
	return userID, token, nil
}

// Resolve возвращает идентификатор пользователя по токену.
func (uc *IdentityUseCase) Resolve(ctx context.Context, token string) (string, error) {
	userID, err := uc.tokens.Validate(ctx, token)
	if err != nil {
		return "", fmt.Errorf("failed to resolve identity: %w", err)
	}
	return userID, nil
}
