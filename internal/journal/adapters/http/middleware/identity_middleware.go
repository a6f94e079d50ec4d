package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"moodnote/pkg/logger"
)

const (
	LogIdentityMiddleware = "identity middleware"

	ErrorNoAuthHeader       = "no authorization header provided"
	ErrorInvalidTokenFormat = "invalid token format"
	ErrorInvalidToken       = "invalid or expired identity token"
)

// IdentityResolver превращает токен в идентификатор пользователя.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// NewIdentityMiddleware требует заголовок "Authorization: Bearer <token>" и кладет
// идентификатор пользователя в Locals.
func NewIdentityMiddleware(resolver IdentityResolver) fiber.Handler {
	return func(ctx fiber.Ctx) error {
		requestCtx := UserContext(ctx)
		log := logger.Log(requestCtx).With(zap.String("middleware", "identity"))
		log.Debug(requestCtx, LogIdentityMiddleware)

		authHeader := ctx.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			log.Debug(requestCtx, ErrorNoAuthHeader)
			return unauthorized(ctx, ErrorNoAuthHeader)
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			log.Debug(requestCtx, ErrorInvalidTokenFormat)
			return unauthorized(ctx, ErrorInvalidTokenFormat)
		}

		userID, err := resolver.Resolve(requestCtx, strings.TrimSpace(token))
		if err != nil {
			log.Debug(requestCtx, ErrorInvalidToken, zap.Error(err))
			return unauthorized(ctx, ErrorInvalidToken)
		}

		userLog := logger.Log(requestCtx).With(zap.String("userID", userID))
		ctx.Locals(LocalUserID, userID)
		ctx.Locals(LocalUserContext, logger.NewContext(requestCtx, userLog))

		return ctx.Next()
	}
}

var errUnauthorized = errors.New("unauthorized")

func unauthorized(ctx fiber.Ctx, message string) error {
	if err := ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": message,
	}); err != nil {
		return fmt.Errorf("%w: %w", errUnauthorized, err)
	}
	return nil
}
