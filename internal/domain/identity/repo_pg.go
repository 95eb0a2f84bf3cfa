package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/clinicaldocs/internal/platform/db"
)

// -- Patient --

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT p.id, p.first_name, p.last_name, p.document_type, p.document_number,
			p.birth_date, p.gender, p.phone_mobile, p.email, p.institution_key,
			p.insurer_id, i.name, p.created_at, p.updated_at
		FROM patient p
		LEFT JOIN insurer i ON i.id = p.insurer_id
		WHERE p.id = $1`, id).Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.DocumentType, &p.DocumentNumber,
		&p.BirthDate, &p.Gender, &p.PhoneMobile, &p.Email, &p.InstitutionKey,
		&p.InsurerID, &p.InsurerName, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return &p, nil
}

// -- Clinician --

type clinicianRepoPG struct {
	pool *pgxpool.Pool
}

func NewClinicianRepo(pool *pgxpool.Pool) ClinicianRepository {
	return &clinicianRepoPG{pool: pool}
}

func (r *clinicianRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Clinician, error) {
	var c Clinician
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, first_name, last_name, specialty, license_number, signature_url, created_at, updated_at
		FROM clinician WHERE id = $1`, id).Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Specialty, &c.LicenseNumber, &c.SignatureURL,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrClinicianNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get clinician: %w", err)
	}
	return &c, nil
}
