package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ehr/clinicaldocs/internal/platform/db"
)

// Guard enforces at most one record per encounter and type through the
// repository's atomic insert. There is no prior lookup: the losing insert
// of a concurrent pair is answered with the winner's record.
type Guard struct {
	repo    Repository
	tx      db.TxRunner
	timeout time.Duration
}

// NewGuard returns a Guard. A nil tx runs claims without a transaction.
func NewGuard(repo Repository, tx db.TxRunner, timeout time.Duration) *Guard {
	if tx == nil {
		tx = db.RunDirect
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Guard{repo: repo, tx: tx, timeout: timeout}
}

// Claim inserts rec and then runs within, if given, in the same transaction:
// either both persist or neither does. When a record already exists it
// returns a *DuplicateDocument carrying that record's ID and artifact URL.
func (g *Guard) Claim(ctx context.Context, rec *Record, within func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	err := g.tx(ctx, func(ctx context.Context) error {
		if err := g.repo.Insert(ctx, rec); err != nil {
			return err
		}
		if within == nil {
			return nil
		}
		return within(ctx)
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrDuplicateRecord) {
		return err
	}

	// The failed transaction is gone; read the winner outside of it.
	existing, lookupErr := g.repo.GetByEncounterAndType(ctx, rec.EncounterID, rec.DocumentType)
	if lookupErr != nil {
		return fmt.Errorf("load existing %s for encounter %s: %w", rec.DocumentType, rec.EncounterID, lookupErr)
	}
	return &DuplicateDocument{ID: existing.ID, ArtifactURL: existing.ArtifactURL}
}
