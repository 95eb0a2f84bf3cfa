package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/clinicaldocs/internal/domain/encounter"
	"github.com/ehr/clinicaldocs/internal/domain/identity"
	"github.com/ehr/clinicaldocs/internal/platform/blobstore"
	"github.com/ehr/clinicaldocs/internal/platform/db"
	"github.com/ehr/clinicaldocs/internal/platform/metrics"
	"github.com/ehr/clinicaldocs/internal/platform/notification"
	"github.com/ehr/clinicaldocs/internal/platform/render"
)

const pdfContentType = "application/pdf"

// EncounterService is the part of the encounter domain the pipeline drives.
type EncounterService interface {
	EncounterReader
	Complete(ctx context.Context, id uuid.UUID) error
	CreateReferrals(ctx context.Context, patientID, referredFrom uuid.UUID, specialties []string) ([]*encounter.Encounter, error)
}

// Config holds the per-call timeouts of the pipeline.
type Config struct {
	LookupTimeout time.Duration
	UploadTimeout time.Duration
	NotifyTimeout time.Duration
}

// Deps are the collaborators of the issuance pipeline. Tx makes a record
// and its referral encounters commit together; nil runs without one.
type Deps struct {
	Tx         db.TxRunner
	Repo       Repository
	Encounters EncounterService
	Patients   identity.PatientRepository
	Clinicians identity.ClinicianRepository
	Renderer   *render.Renderer
	Store      blobstore.Store
	Notifier   notification.Notifier
	FollowUps  FollowUpWriter
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger
}

// Service issues clinical documents: it validates references, claims the
// (encounter, type) slot, renders the artifact and stores it.
type Service struct {
	repo       Repository
	encounters EncounterService
	patients   identity.PatientRepository
	clinicians identity.ClinicianRepository
	validator  *Validator
	guard      *Guard
	renderer   *render.Renderer
	store      blobstore.Store
	fanout     *FanOut
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	cfg        Config
}

func NewService(d Deps, cfg Config) *Service {
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 5 * time.Second
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 15 * time.Second
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 10 * time.Second
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Renderer == nil {
		d.Renderer = render.New(nil)
	}
	return &Service{
		repo:       d.Repo,
		encounters: d.Encounters,
		patients:   d.Patients,
		clinicians: d.Clinicians,
		validator:  NewValidator(d.Encounters, d.Patients, d.Clinicians, cfg.LookupTimeout),
		guard:      NewGuard(d.Repo, d.Tx, cfg.LookupTimeout),
		renderer:   d.Renderer,
		store:      d.Store,
		fanout:     NewFanOut(d.Notifier, d.FollowUps, cfg.NotifyTimeout, d.Metrics, d.Logger),
		metrics:    d.Metrics,
		logger:     d.Logger,
		cfg:        cfg,
	}
}

// CreateRequest is the body of a create call.
type CreateRequest struct {
	EncounterID string          `json:"encounter_id"`
	PatientID   string          `json:"patient_id"`
	ClinicianID string          `json:"clinician_id"`
	Payload     json.RawMessage `json:"payload"`
}

// CreateResult is the outcome of a successful create. ArtifactURL is nil
// when the artifact could not be stored; the record is kept regardless.
type CreateResult struct {
	Record        *Record                `json:"record"`
	ArtifactURL   *string                `json:"artifact_url"`
	Encounters    []*encounter.Encounter `json:"encounters,omitempty"`
	Notifications []NotificationStatus   `json:"notifications,omitempty"`
}

// Create issues a document of type t.
func (s *Service) Create(ctx context.Context, t DocumentType, req CreateRequest) (*CreateResult, error) {
	if !t.Valid() {
		return nil, invalid("document_type", "unknown document type %q", t)
	}
	payload, err := ParsePayload(t, req.Payload)
	if err != nil {
		return nil, err
	}

	refs, err := s.validator.Validate(ctx, References{
		EncounterID: req.EncounterID,
		PatientID:   req.PatientID,
		ClinicianID: req.ClinicianID,
	})
	if err != nil {
		return nil, err
	}

	normalized, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	rec := &Record{
		DocumentType: t,
		EncounterID:  refs.Encounter.ID,
		PatientID:    refs.Patient.ID,
		ClinicianID:  refs.Clinician.ID,
		Payload:      normalized,
	}
	// A referral's encounters commit together with its record.
	referral, isReferral := payload.(*ReferralRequestPayload)
	var encs []*encounter.Encounter
	var createReferrals func(ctx context.Context) error
	if isReferral {
		createReferrals = func(ctx context.Context) error {
			var err error
			encs, err = s.encounters.CreateReferrals(ctx, refs.Patient.ID, rec.EncounterID, referral.Specialties)
			if err != nil {
				return fmt.Errorf("create referral encounters: %w", err)
			}
			return nil
		}
	}
	if err := s.guard.Claim(ctx, rec, createReferrals); err != nil {
		var dup *DuplicateDocument
		if errors.As(err, &dup) {
			s.metrics.DuplicatesRejected.WithLabelValues(string(t)).Inc()
			s.logger.Info().Str("document_type", string(t)).Str("record_id", dup.ID.String()).
				Str("encounter_id", rec.EncounterID.String()).Msg("duplicate document request")
		}
		return nil, err
	}
	s.metrics.DocumentsIssued.WithLabelValues(string(t)).Inc()
	log := s.recordLogger(rec)

	if t == TypeClinicalNote {
		if err := s.encounters.Complete(ctx, rec.EncounterID); err != nil {
			log.Warn().Err(err).Msg("could not mark encounter completed")
		}
	}

	result := &CreateResult{Record: rec}
	if isReferral {
		result.Encounters = encs
		result.Notifications = s.fanout.Notify(ctx, rec, refs.Patient, encs)
	}

	data, err := s.render(ctx, rec, payload, refs.Patient, refs.Clinician)
	if err != nil {
		log.Error().Err(err).Msg("artifact render failed")
		return nil, err
	}

	if url, err := s.publish(ctx, rec, data); err != nil {
		log.Warn().Err(err).Msg("artifact not stored, record kept without artifact")
	} else {
		result.ArtifactURL = &url
	}

	log.Info().Bool("has_artifact", result.ArtifactURL != nil).Msg("document issued")
	return result, nil
}

// GetByEncounter returns the record of type t for the encounter.
func (s *Service) GetByEncounter(ctx context.Context, t DocumentType, encounterID uuid.UUID) (*Record, error) {
	rec, err := s.repo.GetByEncounterAndType(ctx, encounterID, t)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, &ReferenceNotFound{Entity: EntityDocument}
	}
	return rec, err
}

// ListByEncounter returns every record issued for the encounter.
func (s *Service) ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*Record, error) {
	return s.repo.ListByEncounter(ctx, encounterID)
}

func (s *Service) recordLogger(rec *Record) zerolog.Logger {
	return s.logger.With().
		Str("document_type", string(rec.DocumentType)).
		Str("record_id", rec.ID.String()).
		Str("encounter_id", rec.EncounterID.String()).
		Logger()
}

func renderInput(rec *Record, p *identity.Patient, c *identity.Clinician) render.Input {
	return render.Input{
		Title:    rec.DocumentType.Title(),
		Number:   rec.Number(),
		IssuedAt: rec.CreatedAt,
		Patient: render.Patient{
			FullName:       p.FullName(),
			DocumentType:   p.DocumentType,
			DocumentNumber: p.DocumentNumber,
			BirthDate:      p.BirthDate,
			Gender:         identity.Deref(p.Gender),
			Phone:          identity.Deref(p.PhoneMobile),
			Insurer:        identity.Deref(p.InsurerName),
			InstitutionKey: p.InstitutionKey,
		},
		Clinician: render.Clinician{
			FullName:     c.FullName(),
			Specialty:    c.Specialty,
			License:      c.LicenseNumber,
			SignatureURL: identity.Deref(c.SignatureURL),
		},
	}
}

// render produces the PDF of rec. Every error is a *RenderFailure.
func (s *Service) render(ctx context.Context, rec *Record, payload Payload, p *identity.Patient, c *identity.Clinician) ([]byte, error) {
	start := time.Now()
	data, doc, err := s.renderer.Render(ctx, renderInput(rec, p, c), payload.Sections)
	s.metrics.RenderDuration.WithLabelValues(string(rec.DocumentType)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &RenderFailure{DocumentType: rec.DocumentType, Err: err}
	}
	s.logger.Debug().Str("record_id", rec.ID.String()).Strs("sections", doc.SectionTitles()).
		Int("bytes", len(data)).Msg("artifact rendered")
	return data, nil
}

// publish uploads data and attaches the resulting URL to rec. The returned
// URL is empty when the upload itself failed (*UploadFailure). When another
// request attached an artifact first, its URL is returned.
func (s *Service) publish(ctx context.Context, rec *Record, data []byte) (string, error) {
	if s.store == nil {
		return "", &UploadFailure{Path: rec.ArtifactPath(), Err: errors.New("no artifact store configured")}
	}

	path := rec.ArtifactPath()
	uploadCtx, cancel := context.WithTimeout(ctx, s.cfg.UploadTimeout)
	url, err := s.store.Upload(uploadCtx, path, pdfContentType, data)
	cancel()
	if err != nil {
		s.metrics.ArtifactUploads.WithLabelValues(string(rec.DocumentType), metrics.OutcomeError).Inc()
		return "", &UploadFailure{Path: path, Err: err}
	}
	s.metrics.ArtifactUploads.WithLabelValues(string(rec.DocumentType), metrics.OutcomeSuccess).Inc()

	attached, err := s.repo.AttachArtifact(ctx, rec.ID, url)
	if err != nil {
		return url, err
	}
	if !attached {
		current, err := s.repo.GetByID(ctx, rec.ID)
		if err != nil {
			return url, fmt.Errorf("reload document after concurrent attach: %w", err)
		}
		if current.HasArtifact() {
			url = *current.ArtifactURL
		}
	}
	rec.ArtifactURL = &url
	return url, nil
}
