package middleware

import (
	"time"

	"github.com/gofiber/fiber/v3"
)

// RequestObserver учитывает обработанные запросы.
type RequestObserver interface {
	ObserveRequest(route, method string, status int, elapsed time.Duration)
}

// NewMetricsMiddleware меряет длительность и статус запросов. Метка маршрута берется
// из шаблона, а не из пути, чтобы не плодить серии.
func NewMetricsMiddleware(observer RequestObserver) fiber.Handler {
	return func(ctx fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		route := "unmatched"
		if r := ctx.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		observer.ObserveRequest(route, ctx.Method(), ctx.Response().StatusCode(), time.Since(start))
		return err
	}
}
