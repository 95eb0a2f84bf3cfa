package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ehr/clinicaldocs/internal/domain/encounter"
	"github.com/ehr/clinicaldocs/internal/domain/identity"
)

// EncounterReader resolves encounters by ID.
type EncounterReader interface {
	GetEncounter(ctx context.Context, id uuid.UUID) (*encounter.Encounter, error)
}

// References are the raw identifiers of a create request.
type References struct {
	EncounterID string
	PatientID   string
	ClinicianID string
}

// Resolved holds the entities behind valid references.
type Resolved struct {
	Encounter *encounter.Encounter
	Patient   *identity.Patient
	Clinician *identity.Clinician
}

// Validator checks that the encounter, patient and clinician of a request
// exist. It has no side effects.
type Validator struct {
	encounters EncounterReader
	patients   identity.PatientRepository
	clinicians identity.ClinicianRepository
	timeout    time.Duration
}

func NewValidator(encounters EncounterReader, patients identity.PatientRepository, clinicians identity.ClinicianRepository, timeout time.Duration) *Validator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Validator{encounters: encounters, patients: patients, clinicians: clinicians, timeout: timeout}
}

func parseRef(field, value string) (uuid.UUID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return uuid.Nil, invalid(field, "is required")
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, invalid(field, "must be a valid UUID")
	}
	return id, nil
}

// Validate parses the identifiers and runs the three lookups concurrently.
// A missing entity yields *ReferenceNotFound (encounter first, then patient,
// then clinician); a lookup error or timeout fails the whole validation.
func (v *Validator) Validate(ctx context.Context, refs References) (*Resolved, error) {
	encID, err := parseRef("encounter_id", refs.EncounterID)
	if err != nil {
		return nil, err
	}
	patientID, err := parseRef("patient_id", refs.PatientID)
	if err != nil {
		return nil, err
	}
	clinicianID, err := parseRef("clinician_id", refs.ClinicianID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	var (
		res     Resolved
		missing [3]*ReferenceNotFound
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		enc, err := v.encounters.GetEncounter(gctx, encID)
		switch {
		case errors.Is(err, encounter.ErrNotFound):
			missing[0] = &ReferenceNotFound{Entity: EntityEncounter, ID: encID.String()}
		case err != nil:
			return fmt.Errorf("lookup encounter: %w", err)
		default:
			res.Encounter = enc
		}
		return nil
	})
	g.Go(func() error {
		p, err := v.patients.GetByID(gctx, patientID)
		switch {
		case errors.Is(err, identity.ErrPatientNotFound):
			missing[1] = &ReferenceNotFound{Entity: EntityPatient, ID: patientID.String()}
		case err != nil:
			return fmt.Errorf("lookup patient: %w", err)
		default:
			res.Patient = p
		}
		return nil
	})
	g.Go(func() error {
		c, err := v.clinicians.GetByID(gctx, clinicianID)
		switch {
		case errors.Is(err, identity.ErrClinicianNotFound):
			missing[2] = &ReferenceNotFound{Entity: EntityClinician, ID: clinicianID.String()}
		case err != nil:
			return fmt.Errorf("lookup clinician: %w", err)
		default:
			res.Clinician = c
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, m := range missing {
		if m != nil {
			return nil, m
		}
	}

	if !res.Encounter.BelongsTo(patientID) {
		return nil, invalid("encounter_id", "encounter does not belong to patient %s", patientID)
	}
	return &res, nil
}
