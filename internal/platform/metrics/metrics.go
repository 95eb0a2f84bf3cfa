// Package metrics holds the Prometheus collectors of the issuance pipeline.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Retrieval sources.
const (
	SourceCache       = "cache"
	SourceRegenerated = "regenerated"
	SourceRaw         = "raw"
)

// Outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	DocumentsIssued       *prometheus.CounterVec
	DuplicatesRejected    *prometheus.CounterVec
	ArtifactUploads       *prometheus.CounterVec
	ArtifactRetrievals    *prometheus.CounterVec
	RenderDuration        *prometheus.HistogramVec
	ReferralNotifications *prometheus.CounterVec
}

// New registers the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		DocumentsIssued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicaldocs",
			Name:      "documents_issued_total",
			Help:      "Clinical documents created, by document type.",
		}, []string{"document_type"}),
		DuplicatesRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicaldocs",
			Name:      "documents_duplicate_total",
			Help:      "Create requests answered with the existing document.",
		}, []string{"document_type"}),
		ArtifactUploads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicaldocs",
			Name:      "artifact_uploads_total",
			Help:      "Artifact uploads by document type and outcome.",
		}, []string{"document_type", "outcome"}),
		ArtifactRetrievals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicaldocs",
			Name:      "artifact_retrievals_total",
			Help:      "Artifact retrievals by document type and source (cache, regenerated, raw).",
		}, []string{"document_type", "source"}),
		RenderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicaldocs",
			Name:      "render_duration_seconds",
			Help:      "Time spent rendering an artifact.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"document_type"}),
		ReferralNotifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicaldocs",
			Name:      "referral_notifications_total",
			Help:      "Referral notification attempts by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
