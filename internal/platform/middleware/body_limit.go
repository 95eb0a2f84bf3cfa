package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const defaultBodyLimit = 1 << 20

var sizeSuffixes = []struct {
	suffix string
	factor int64
}{
	{"GB", 1 << 30}, {"G", 1 << 30},
	{"MB", 1 << 20}, {"M", 1 << 20},
	{"KB", 1 << 10}, {"K", 1 << 10},
}

// BodyLimit caps request bodies at limit ("512K", "2M", "1G"; a bare number
// is bytes). A declared Content-Length over the cap gets 413 straight away;
// otherwise the body is wrapped so that reading past the cap fails.
func BodyLimit(limit string) echo.MiddlewareFunc {
	maxBytes := parseLimit(limit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}
			if req.ContentLength > maxBytes {
				return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
					"error": fmt.Sprintf("request body exceeds %d bytes", maxBytes),
				})
			}
			req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBytes)
			return next(c)
		}
	}
}

// parseLimit falls back to 1 MB for empty or unparsable input.
func parseLimit(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	factor := int64(1)
	for _, sz := range sizeSuffixes {
		if strings.HasSuffix(s, sz.suffix) {
			factor = sz.factor
			s = strings.TrimSuffix(s, sz.suffix)
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return defaultBodyLimit
	}
	return n * factor
}
