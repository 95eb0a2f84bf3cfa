package documents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"

	"github.com/ehr/clinicaldocs/internal/domain/encounter"
	"github.com/ehr/clinicaldocs/internal/domain/followup"
	"github.com/ehr/clinicaldocs/internal/domain/identity"
	"github.com/ehr/clinicaldocs/internal/platform/metrics"
	"github.com/ehr/clinicaldocs/internal/platform/notification"
)

// Notification outcomes.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

const followUpActor = "referral"

// FollowUpWriter appends to a patient's follow-up log.
type FollowUpWriter interface {
	Append(ctx context.Context, patientID uuid.UUID, actor, message string) (*followup.Entry, error)
}

// NotificationStatus is the outcome of notifying the patient about one
// referral encounter.
type NotificationStatus struct {
	Specialty   string    `json:"specialty"`
	EncounterID uuid.UUID `json:"encounter_id"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
}

// FanOut notifies the patient about each encounter a referral created.
type FanOut struct {
	notifier  notification.Notifier
	followUps FollowUpWriter
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewFanOut(notifier notification.Notifier, followUps FollowUpWriter, timeout time.Duration, m *metrics.Metrics, logger zerolog.Logger) *FanOut {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if m == nil {
		m = metrics.New()
	}
	return &FanOut{
		notifier:  notifier,
		followUps: followUps,
		timeout:   timeout,
		metrics:   m,
		logger:    logger,
	}
}

// Notify sends one notification per encounter concurrently. The statuses
// come back in encounter order and are appended to the follow-up log in that
// order. Failures are reported per item and never undo the encounters.
func (f *FanOut) Notify(ctx context.Context, rec *Record, patient *identity.Patient, encs []*encounter.Encounter) []NotificationStatus {
	if len(encs) == 0 {
		return nil
	}
	to := notification.Recipient{
		Name:  patient.FullName(),
		Phone: identity.Deref(patient.PhoneMobile),
		Email: identity.Deref(patient.Email),
	}
	mapper := iter.Mapper[*encounter.Encounter, NotificationStatus]{MaxGoroutines: len(encs)}
	statuses := mapper.Map(encs, func(enc **encounter.Encounter) NotificationStatus {
		return f.notify(ctx, to, *enc)
	})

	for _, st := range statuses {
		f.metrics.ReferralNotifications.WithLabelValues(st.Status).Inc()
		if _, err := f.followUps.Append(ctx, patient.ID, followUpActor, followUpMessage(st)); err != nil {
			f.logger.Warn().Err(err).Str("record_id", rec.ID.String()).Str("encounter_id", st.EncounterID.String()).
				Msg("could not append follow-up entry")
		}
	}
	return statuses
}

func (f *FanOut) notify(ctx context.Context, to notification.Recipient, enc *encounter.Encounter) NotificationStatus {
	st := NotificationStatus{Specialty: enc.Specialty, EncounterID: enc.ID}
	if f.notifier == nil {
		st.Status = StatusError
		st.Message = "no notification channel configured"
		return st
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	err := f.notifier.Notify(ctx, to, notification.TemplateReferralCreated, map[string]string{
		"patient_name":  to.Name,
		"specialty":     enc.Specialty,
		"encounter_ref": encounterRef(enc.ID),
	})
	if err != nil {
		failure := &NotificationFailure{Specialty: enc.Specialty, Err: err}
		f.logger.Warn().Err(failure).Str("encounter_id", enc.ID.String()).Msg("referral notification failed")
		st.Status = StatusError
		st.Message = err.Error()
		return st
	}
	st.Status = StatusSuccess
	st.Message = "notificación enviada"
	return st
}

// encounterRef is the short reference quoted to patients.
func encounterRef(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}

func followUpMessage(st NotificationStatus) string {
	if st.Status == StatusSuccess {
		return fmt.Sprintf("Remisión a %s (cita %s) pendiente de programación: notificación enviada.",
			st.Specialty, encounterRef(st.EncounterID))
	}
	return fmt.Sprintf("Remisión a %s (cita %s) pendiente de programación: la notificación falló (%s).",
		st.Specialty, encounterRef(st.EncounterID), st.Message)
}
