package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountersAndHandler(t *testing.T) {
	m := New()
	m.DocumentsIssued.WithLabelValues("prescription").Inc()
	m.ArtifactRetrievals.WithLabelValues("lab_order", SourceRaw).Add(2)

	if got := testutil.ToFloat64(m.DocumentsIssued.WithLabelValues("prescription")); got != 1 {
		t.Errorf("expected 1 issued prescription, got %v", got)
	}
	if got := testutil.ToFloat64(m.ArtifactRetrievals.WithLabelValues("lab_order", SourceRaw)); got != 2 {
		t.Errorf("expected 2 raw retrievals, got %v", got)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := m.Handler()(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `clinicaldocs_documents_issued_total{document_type="prescription"} 1`) {
		t.Errorf("expected issued counter in exposition, got:\n%s", rec.Body.String())
	}
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ReferralNotifications.WithLabelValues(OutcomeError).Inc()
	if got := testutil.ToFloat64(b.ReferralNotifications.WithLabelValues(OutcomeError)); got != 0 {
		t.Errorf("expected separate registries, got %v", got)
	}
}
