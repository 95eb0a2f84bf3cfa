package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/clinicaldocs/internal/platform/db"
)

// uniqueEncounterType is the constraint behind ErrDuplicateRecord.
const uniqueEncounterType = "clinical_document_encounter_type_key"

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const docCols = `id, document_type, encounter_id, patient_id, clinician_id, payload, artifact_url, created_at, updated_at`

func (r *repoPG) Insert(ctx context.Context, rec *Record) error {
	rec.ID = uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)
	rec.CreatedAt = now
	rec.UpdatedAt = now
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinical_document (`+docCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		rec.ID, rec.DocumentType, rec.EncounterID, rec.PatientID, rec.ClinicianID,
		[]byte(rec.Payload), rec.ArtifactURL, rec.CreatedAt, rec.UpdatedAt,
	)
	if db.ConstraintViolation(err, uniqueEncounterType) {
		return ErrDuplicateRecord
	}
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return scanRecord(r.conn(ctx).QueryRow(ctx, `SELECT `+docCols+` FROM clinical_document WHERE id = $1`, id))
}

func (r *repoPG) GetByEncounterAndType(ctx context.Context, encounterID uuid.UUID, t DocumentType) (*Record, error) {
	return scanRecord(r.conn(ctx).QueryRow(ctx, `
		SELECT `+docCols+` FROM clinical_document
		WHERE encounter_id = $1 AND document_type = $2`, encounterID, t))
}

func (r *repoPG) AttachArtifact(ctx context.Context, id uuid.UUID, url string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinical_document SET artifact_url = $2, updated_at = NOW()
		WHERE id = $1 AND artifact_url IS NULL`, id, url)
	if err != nil {
		return false, fmt.Errorf("attach artifact: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*Record, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+docCols+` FROM clinical_document
		WHERE encounter_id = $1 ORDER BY created_at`, encounterID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var items []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	var payload []byte
	err := row.Scan(&rec.ID, &rec.DocumentType, &rec.EncounterID, &rec.PatientID, &rec.ClinicianID,
		&payload, &rec.ArtifactURL, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	rec.Payload = payload
	return &rec, nil
}
