package encounter

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, enc *Encounter) error
	GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	ListByReferral(ctx context.Context, referredFromID uuid.UUID) ([]*Encounter, error)
}
