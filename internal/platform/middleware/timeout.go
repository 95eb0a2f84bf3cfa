package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout puts a deadline on the request context and runs the handler
// on the calling goroutine, so handlers must honour ctx. When the deadline
// passes before anything was written, the client gets 504 with {"error": ...}.
// Paths under any of the skip prefixes (artifact downloads) run without a deadline.
func RequestTimeout(timeout time.Duration, skip ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, prefix := range skip {
				if strings.HasPrefix(path, prefix) {
					return next(c)
				}
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Response().Committed {
				return c.JSON(http.StatusGatewayTimeout, map[string]string{
					"error": "request processing exceeded the allowed time limit",
				})
			}
			return err
		}
	}
}
