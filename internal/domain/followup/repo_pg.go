package followup

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/clinicaldocs/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Append(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO follow_up_log (id, patient_id, logged_at, actor, message)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.PatientID, e.LoggedAt, e.Actor, e.Message)
	if err != nil {
		return fmt.Errorf("append follow-up entry: %w", err)
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM follow_up_log WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count follow-up entries: %w", err)
	}

	rows, err := conn.Query(ctx, `
		SELECT id, patient_id, logged_at, actor, message
		FROM follow_up_log WHERE patient_id = $1
		ORDER BY logged_at DESC, id
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list follow-up entries: %w", err)
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.PatientID, &e.LoggedAt, &e.Actor, &e.Message); err != nil {
			return nil, 0, fmt.Errorf("scan follow-up entry: %w", err)
		}
		items = append(items, &e)
	}
	return items, total, rows.Err()
}
