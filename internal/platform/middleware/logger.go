package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fieldmed/pma/internal/platform/auth"
)

// Logger emits one structured line per request. Besides the usual HTTP
// fields it carries the post and the acting operator, so a deployment
// serving several posts can split one log stream by site.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}

			if postID, ok := c.Get("post_id").(string); ok && postID != "" {
				evt = evt.Str("post_id", postID)
			}
			if actor := auth.ActorNameFromContext(req.Context()); actor != "Unknown" {
				evt = evt.Str("actor", actor)
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}
