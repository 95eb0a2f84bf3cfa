package encounter

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

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const encCols = `id, patient_id, clinician_id, specialty, status, scheduled_at, referred_from_id, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, enc *Encounter) error {
	enc.ID = uuid.New()
	now := time.Now().UTC()
	enc.CreatedAt = now
	enc.UpdatedAt = now
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO encounter (`+encCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		enc.ID, enc.PatientID, enc.ClinicianID, enc.Specialty, enc.Status,
		enc.ScheduledAt, enc.ReferredFromID, enc.CreatedAt, enc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert encounter: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return scanEnc(r.conn(ctx).QueryRow(ctx, `SELECT `+encCols+` FROM encounter WHERE id = $1`, id))
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE encounter SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update encounter status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByReferral(ctx context.Context, referredFromID uuid.UUID) ([]*Encounter, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+encCols+` FROM encounter
		WHERE referred_from_id = $1
		ORDER BY created_at, specialty`, referredFromID)
	if err != nil {
		return nil, fmt.Errorf("list referral encounters: %w", err)
	}
	defer rows.Close()

	var items []*Encounter
	for rows.Next() {
		enc, err := scanEnc(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, enc)
	}
	return items, rows.Err()
}

func scanEnc(row pgx.Row) (*Encounter, error) {
	var e Encounter
	err := row.Scan(&e.ID, &e.PatientID, &e.ClinicianID, &e.Specialty, &e.Status,
		&e.ScheduledAt, &e.ReferredFromID, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan encounter: %w", err)
	}
	return &e, nil
}
