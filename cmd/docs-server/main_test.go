package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/clinicaldocs/internal/config"
)

func runErrorHandler(t *testing.T, method string, err error) (int, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(method, "/", nil), rec)

	errorHandler(zerolog.Nop())(err, c)

	var body map[string]interface{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, body
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"string message", echo.NewHTTPError(http.StatusNotFound, "Not Found"), http.StatusNotFound, "Not Found"},
		{"shaped body", echo.NewHTTPError(http.StatusConflict, map[string]interface{}{"error": "duplicate"}), http.StatusConflict, "duplicate"},
		{"error message", echo.NewHTTPError(http.StatusBadRequest, errors.New("bad json")), http.StatusBadRequest, "bad json"},
		{"plain error", errors.New("pool closed"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := runErrorHandler(t, http.MethodGet, tt.err)
			if code != tt.code {
				t.Errorf("code = %d, want %d", code, tt.code)
			}
			if body["error"] != tt.msg {
				t.Errorf("error = %v, want %q", body["error"], tt.msg)
			}
		})
	}
}

func TestErrorHandler_Head(t *testing.T) {
	code, body := runErrorHandler(t, http.MethodHead, echo.NewHTTPError(http.StatusNotFound, "Not Found"))
	if code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", code)
	}
	if body != nil {
		t.Errorf("HEAD response must have no body, got %v", body)
	}
}

func TestNewNotifier(t *testing.T) {
	for _, channel := range []string{"log", "sms", "email"} {
		cfg := &config.Config{
			NotifyChannel:           channel,
			NotifyDefaultRegion:     "CO",
			SMSIRAPIKey:             "key",
			SMSIRReferralTemplateID: "100",
			SMTPHost:                "smtp.example.org",
			SMTPPort:                587,
			SMTPFrom:                "noreply@example.org",
		}
		n, err := newNotifier(cfg, zerolog.Nop())
		if err != nil || n == nil {
			t.Errorf("%s: notifier = %v, err = %v", channel, n, err)
		}
	}
	if _, err := newNotifier(&config.Config{NotifyChannel: "pigeon"}, zerolog.Nop()); err == nil {
		t.Error("expected error for unknown channel")
	}
}

func TestLoadBrandings(t *testing.T) {
	table, err := loadBrandings("")
	if err != nil {
		t.Fatalf("loadBrandings: %v", err)
	}
	if len(table.All()) == 0 {
		t.Error("expected the built-in letterhead")
	}

	path := filepath.Join(t.TempDir(), "branding.yaml")
	yaml := "institutions:\n  - key: hospital-norte\n    name: Hospital del Norte\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	table, err = loadBrandings(path)
	if err != nil {
		t.Fatalf("loadBrandings(file): %v", err)
	}
	if got := table.Lookup("HOSPITAL-NORTE").Name; got != "Hospital del Norte" {
		t.Errorf("Lookup = %q", got)
	}

	if _, err := loadBrandings(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
