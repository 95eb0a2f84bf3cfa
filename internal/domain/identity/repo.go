package identity

import (
	"context"

	"github.com/google/uuid"
)

// PatientRepository is read-only; patients are managed outside this service.
type PatientRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
}

// ClinicianRepository is read-only; clinicians are managed outside this service.
type ClinicianRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Clinician, error)
}
