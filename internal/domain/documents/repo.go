package documents

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrDuplicateRecord is returned by Insert when a record of the same type
// already exists for the encounter.
var ErrDuplicateRecord = errors.New("document already exists for encounter and type")

type Repository interface {
	// Insert stores rec atomically, or fails with ErrDuplicateRecord.
	Insert(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	GetByEncounterAndType(ctx context.Context, encounterID uuid.UUID, t DocumentType) (*Record, error)
	// AttachArtifact sets the artifact URL only if none is set yet and
	// reports whether this call set it.
	AttachArtifact(ctx context.Context, id uuid.UUID, url string) (bool, error)
	ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*Record, error)
}
