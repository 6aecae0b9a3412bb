package middleware

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"

	"patientportal/internal/apperr"
)

// Logger logs one structured line per HTTP request with the fields
// request_id, method, path, status and latency (milliseconds, float).
// 5xx responses log at error level, 4xx at warn, everything else at info.
// An error a handler answered itself is logged in full with its operation.
func Logger(l *log.Logger) fiber.Handler {
	l = l.With("component", "http")

	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := statusOf(c, err)
		fields := []any{
			"request_id", requestIDOf(c),
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", float64(time.Since(start).Microseconds()) / 1000,
		}
		if handled, ok := c.Locals(ErrorLocalKey).(error); ok {
			fields = append(fields, "error", handled.Error())
			if op := apperr.OpOf(handled); op != "" {
				fields = append(fields, "op", op)
			}
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			l.Error("http_request", fields...)
		case status >= fiber.StatusBadRequest:
			l.Warn("http_request", fields...)
		default:
			l.Info("http_request", fields...)
		}

		return err
	}
}
