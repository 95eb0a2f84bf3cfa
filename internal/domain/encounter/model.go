package encounter

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPendingScheduling Status = "pending_scheduling"
	StatusScheduled         Status = "scheduled"
	StatusCompleted         Status = "completed"
	StatusCancelled         Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendingScheduling, StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

var ErrNotFound = errors.New("encounter not found")

// Encounter is a scheduled or completed patient-clinician interaction.
// Encounters created by a referral carry the originating encounter in
// ReferredFromID and have no clinician until they are scheduled.
type Encounter struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	ClinicianID    *uuid.UUID `db:"clinician_id" json:"clinician_id,omitempty"`
	Specialty      string     `db:"specialty" json:"specialty"`
	Status         Status     `db:"status" json:"status"`
	ScheduledAt    *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	ReferredFromID *uuid.UUID `db:"referred_from_id" json:"referred_from_id,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// BelongsTo reports whether the encounter is for the given patient.
func (e *Encounter) BelongsTo(patientID uuid.UUID) bool {
	return e.PatientID == patientID
}
