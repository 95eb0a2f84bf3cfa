package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound   = errors.New("patient not found")
	ErrClinicianNotFound = errors.New("clinician not found")
)

// Patient maps to the patient table joined with its insurer.
type Patient struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	DocumentType   string     `db:"document_type" json:"document_type"`
	DocumentNumber string     `db:"document_number" json:"document_number"`
	BirthDate      *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Gender         *string    `db:"gender" json:"gender,omitempty"`
	PhoneMobile    *string    `db:"phone_mobile" json:"phone_mobile,omitempty"`
	Email          *string    `db:"email" json:"email,omitempty"`
	InstitutionKey string     `db:"institution_key" json:"institution_key"`
	InsurerID      *uuid.UUID `db:"insurer_id" json:"insurer_id,omitempty"`
	InsurerName    *string    `db:"insurer_name" json:"insurer_name,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

func (p *Patient) FullName() string {
	return joinName(p.FirstName, p.LastName)
}

// Clinician maps to the clinician table.
type Clinician struct {
	ID            uuid.UUID `db:"id" json:"id"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name"`
	Specialty     string    `db:"specialty" json:"specialty"`
	LicenseNumber string    `db:"license_number" json:"license_number"`
	SignatureURL  *string   `db:"signature_url" json:"signature_url,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

func (c *Clinician) FullName() string {
	return joinName(c.FirstName, c.LastName)
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// Deref returns the string behind p, or "" when p is nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
