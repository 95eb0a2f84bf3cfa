package db

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		pinger     fakePinger
		wantCode   int
		wantStatus string
	}{
		{"healthy", fakePinger{}, http.StatusOK, "healthy"},
		{"unhealthy", fakePinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/health/db", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := HealthHandler(tt.pinger, time.Second)(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}

			var body map[string]interface{}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["status"] != tt.wantStatus {
				t.Errorf("expected status %q, got %v", tt.wantStatus, body["status"])
			}
			if _, ok := body["pool"]; ok {
				t.Error("expected no pool stats for a non-pool pinger")
			}
		})
	}
}
