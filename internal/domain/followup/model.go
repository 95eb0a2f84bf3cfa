package followup

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one append-only line of a patient's follow-up log.
type Entry struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	LoggedAt  time.Time `db:"logged_at" json:"logged_at"`
	Actor     string    `db:"actor" json:"actor"`
	Message   string    `db:"message" json:"message"`
}
