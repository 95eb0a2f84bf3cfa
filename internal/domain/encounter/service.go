package encounter

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ehr/clinicaldocs/internal/platform/db"
)

type Service struct {
	repo Repository
	tx   db.TxRunner
}

func NewService(repo Repository, tx db.TxRunner) *Service {
	if tx == nil {
		tx = db.RunDirect
	}
	return &Service{repo: repo, tx: tx}
}

func (s *Service) GetEncounter(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return s.repo.GetByID(ctx, id)
}

// Complete marks the encounter as completed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) error {
	return s.repo.UpdateStatus(ctx, id, StatusCompleted)
}

// CreateReferrals creates one pending_scheduling encounter per specialty for
// the patient, in the given order, all in a single transaction. Either every
// encounter is created or none is.
func (s *Service) CreateReferrals(ctx context.Context, patientID, referredFrom uuid.UUID, specialties []string) ([]*Encounter, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	for i, sp := range specialties {
		if strings.TrimSpace(sp) == "" {
			return nil, fmt.Errorf("specialty %d is blank", i)
		}
	}

	var created []*Encounter
	err := s.tx(ctx, func(ctx context.Context) error {
		created = make([]*Encounter, 0, len(specialties))
		for _, sp := range specialties {
			from := referredFrom
			enc := &Encounter{
				PatientID:      patientID,
				Specialty:      strings.TrimSpace(sp),
				Status:         StatusPendingScheduling,
				ReferredFromID: &from,
			}
			if err := s.repo.Create(ctx, enc); err != nil {
				return fmt.Errorf("create referral encounter for %q: %w", sp, err)
			}
			created = append(created, enc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) ListReferrals(ctx context.Context, referredFrom uuid.UUID) ([]*Encounter, error) {
	return s.repo.ListByReferral(ctx, referredFrom)
}
