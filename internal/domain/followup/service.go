package followup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Append records message for the patient. Entries are never updated.
func (s *Service) Append(ctx context.Context, patientID uuid.UUID, actor, message string) (*Entry, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message is required")
	}
	if strings.TrimSpace(actor) == "" {
		actor = "system"
	}
	e := &Entry{
		PatientID: patientID,
		LoggedAt:  s.now().UTC(),
		Actor:     actor,
		Message:   message,
	}
	if err := s.repo.Append(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
