package encounter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *mockRepo) {
	repo := newMockRepo()
	return NewHandler(NewService(repo, nil)), repo
}

func TestHandler_GetEncounter(t *testing.T) {
	h, repo := newTestHandler()
	enc := &Encounter{PatientID: uuid.New(), Specialty: "Pediatría", Status: StatusScheduled}
	repo.Create(context.Background(), enc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(enc.ID.String())

	if err := h.GetEncounter(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var got Encounter
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.ID != enc.ID || got.Specialty != "Pediatría" {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_GetEncounter_Errors(t *testing.T) {
	h, _ := newTestHandler()
	e := echo.New()

	tests := []struct {
		name string
		id   string
		code int
	}{
		{"bad id", "not-a-uuid", http.StatusBadRequest},
		{"missing", uuid.New().String(), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
			c.SetParamNames("id")
			c.SetParamValues(tt.id)
			err := h.GetEncounter(c)
			httpErr, ok := err.(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected HTTPError, got %v", err)
			}
			if httpErr.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, httpErr.Code)
			}
		})
	}
}

func TestHandler_ListReferrals_Empty(t *testing.T) {
	h, _ := newTestHandler()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := h.ListReferrals(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || rec.Body.String() != "[]\n" {
		t.Errorf("expected empty array, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestHandler_ListReferrals_FilterByStatus(t *testing.T) {
	h, repo := newTestHandler()
	from := uuid.New()
	for _, st := range []Status{StatusPendingScheduling, StatusScheduled, StatusPendingScheduling} {
		repo.Create(context.Background(), &Encounter{PatientID: uuid.New(), Specialty: "Cardiología", Status: st, ReferredFromID: &from})
	}
	e := echo.New()

	tests := []struct {
		query string
		code  int
		count int
	}{
		{"", http.StatusOK, 3},
		{"?status=pending_scheduling", http.StatusOK, 2},
		{"?status=completed", http.StatusOK, 0},
		{"?status=finished", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil), rec)
			c.SetParamNames("id")
			c.SetParamValues(from.String())

			err := h.ListReferrals(c)
			if tt.code != http.StatusOK {
				httpErr, ok := err.(*echo.HTTPError)
				if !ok || httpErr.Code != tt.code {
					t.Fatalf("expected %d HTTPError, got %v", tt.code, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var got []Encounter
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(got) != tt.count {
				t.Errorf("expected %d encounters, got %d", tt.count, len(got))
			}
		})
	}
}
