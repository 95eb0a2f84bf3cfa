package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ehr/clinicaldocs/internal/domain/identity"
	"github.com/ehr/clinicaldocs/internal/platform/metrics"
)

// Artifact is either a stored reference (URL) or, when storage is
// unavailable, the rendered bytes (Data).
type Artifact struct {
	RecordID uuid.UUID
	Number   string
	URL      string
	Data     []byte
	Source   string
}

// Retrieve returns the artifact of the type t record for the encounter. A
// record without an artifact is rendered again; if the new artifact can be
// stored its URL is attached, otherwise the bytes are returned and nothing
// is persisted.
func (s *Service) Retrieve(ctx context.Context, t DocumentType, encounterID uuid.UUID) (*Artifact, error) {
	rec, err := s.GetByEncounter(ctx, t, encounterID)
	if err != nil {
		return nil, err
	}
	art := &Artifact{RecordID: rec.ID, Number: rec.Number()}

	if rec.HasArtifact() {
		s.metrics.ArtifactRetrievals.WithLabelValues(string(t), metrics.SourceCache).Inc()
		art.URL = *rec.ArtifactURL
		art.Source = metrics.SourceCache
		return art, nil
	}

	log := s.recordLogger(rec)
	patient, clinician, err := s.participants(ctx, rec)
	if err != nil {
		return nil, err
	}
	payload, err := decodePayload(t, rec.Payload)
	if err != nil {
		return nil, &RenderFailure{DocumentType: t, Err: err}
	}

	data, err := s.render(ctx, rec, payload, patient, clinician)
	if err != nil {
		log.Error().Err(err).Msg("artifact render failed")
		return nil, err
	}

	url, err := s.publish(ctx, rec, data)
	if url == "" {
		log.Warn().Err(err).Msg("artifact not stored, streaming rendered bytes")
		s.metrics.ArtifactRetrievals.WithLabelValues(string(t), metrics.SourceRaw).Inc()
		art.Data = data
		art.Source = metrics.SourceRaw
		return art, nil
	}
	if err != nil {
		log.Warn().Err(err).Msg("artifact stored but not attached")
	}

	s.metrics.ArtifactRetrievals.WithLabelValues(string(t), metrics.SourceRegenerated).Inc()
	art.URL = url
	art.Source = metrics.SourceRegenerated
	return art, nil
}

// participants loads the patient and clinician of a stored record.
func (s *Service) participants(ctx context.Context, rec *Record) (*identity.Patient, *identity.Clinician, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()

	patient, err := s.patients.GetByID(ctx, rec.PatientID)
	if errors.Is(err, identity.ErrPatientNotFound) {
		return nil, nil, &ReferenceNotFound{Entity: EntityPatient, ID: rec.PatientID.String()}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("lookup patient: %w", err)
	}

	clinician, err := s.clinicians.GetByID(ctx, rec.ClinicianID)
	if errors.Is(err, identity.ErrClinicianNotFound) {
		return nil, nil, &ReferenceNotFound{Entity: EntityClinician, ID: rec.ClinicianID.String()}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("lookup clinician: %w", err)
	}
	return patient, clinician, nil
}
