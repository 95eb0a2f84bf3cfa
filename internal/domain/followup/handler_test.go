package followup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestHandler_ListByPatient(t *testing.T) {
	svc := NewService(newMockRepo())
	h := NewHandler(svc)
	patientID := uuid.New()
	for i := 0; i < 3; i++ {
		svc.Append(context.Background(), patientID, "system", "entry")
	}

	e := echo.New()
	path := "/api/v1/patients/" + patientID.String() + "/follow-up-log"
	req := httptest.NewRequest(http.MethodGet, path+"?limit=2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("patientId")
	c.SetParamValues(patientID.String())

	if err := h.ListByPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Data    []Entry `json:"data"`
		Total   int     `json:"total"`
		HasMore bool    `json:"has_more"`
		Links   []struct {
			Relation string `json:"relation"`
			URL      string `json:"url"`
		} `json:"links"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 3 || len(body.Data) != 2 || !body.HasMore {
		t.Errorf("unexpected page: total=%d len=%d has_more=%v", body.Total, len(body.Data), body.HasMore)
	}
	var next string
	for _, l := range body.Links {
		if l.Relation == "next" {
			next = l.URL
		}
	}
	if next != path+"?limit=2&offset=2" {
		t.Errorf("unexpected next link %q", next)
	}
}

func TestHandler_ListByPatient_InvalidID(t *testing.T) {
	h := NewHandler(NewService(newMockRepo()))
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("patientId")
	c.SetParamValues("nope")

	err := h.ListByPatient(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}
