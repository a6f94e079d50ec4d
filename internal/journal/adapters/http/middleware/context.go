// Package middleware содержит промежуточное ПО для HTTP обработчиков.
package middleware

import (
	"context"

	"github.com/gofiber/fiber/v3"
)

// Ключи Locals.
const (
	LocalUserContext = "userContext"
	LocalUserID      = "userID"
	LocalRequestID   = "requestID"
)

// HeaderRequestID заголовок с идентификатором запроса.
const HeaderRequestID = "X-Request-ID"

// UserContext возвращает контекст запроса, обогащенный логгером и идентификаторами.
func UserContext(ctx fiber.Ctx) context.Context {
	if userCtx, ok := ctx.Locals(LocalUserContext).(context.Context); ok {
		return userCtx
	}
	return ctx.Context()
}

// UserID возвращает идентификатор пользователя, установленный NewIdentityMiddleware.
func UserID(ctx fiber.Ctx) string {
	id, _ := ctx.Locals(LocalUserID).(string)
	return id
}

// RequestID возвращает идентификатор текущего запроса.
func RequestID(ctx fiber.Ctx) string {
	id, _ := ctx.Locals(LocalRequestID).(string)
	return id
}
