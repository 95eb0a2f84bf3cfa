package documents

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/clinicaldocs/internal/domain/encounter"
)

func newTestValidator(env *testEnv, timeout time.Duration) *Validator {
	return NewValidator(encounter.NewService(env.encounters, nil), env.patients, env.clinicians, timeout)
}

func (env *testEnv) refs(encounterID uuid.UUID) References {
	return References{
		EncounterID: encounterID.String(),
		PatientID:   env.patient.ID.String(),
		ClinicianID: env.clinician.ID.String(),
	}
}

func TestValidator_Resolves(t *testing.T) {
	env := newTestEnv(t)
	res, err := newTestValidator(env, time.Second).Validate(context.Background(), env.refs(env.encounter.ID))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Encounter.ID != env.encounter.ID || res.Patient.ID != env.patient.ID || res.Clinician.ID != env.clinician.ID {
		t.Errorf("resolved entities do not match the request")
	}
}

func TestValidator_MalformedReferences(t *testing.T) {
	env := newTestEnv(t)
	v := newTestValidator(env, time.Second)

	tests := []struct {
		name  string
		refs  References
		field string
	}{
		{"empty encounter", References{EncounterID: " ", PatientID: env.patient.ID.String(), ClinicianID: env.clinician.ID.String()}, "encounter_id"},
		{"bad patient", References{EncounterID: env.encounter.ID.String(), PatientID: "not-a-uuid", ClinicianID: env.clinician.ID.String()}, "patient_id"},
		{"missing clinician", References{EncounterID: env.encounter.ID.String(), PatientID: env.patient.ID.String()}, "clinician_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(context.Background(), tt.refs)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestValidator_MissingEntityOrder(t *testing.T) {
	env := newTestEnv(t)
	v := newTestValidator(env, time.Second)

	tests := []struct {
		name   string
		refs   References
		entity string
	}{
		{"all missing", References{EncounterID: uuid.NewString(), PatientID: uuid.NewString(), ClinicianID: uuid.NewString()}, EntityEncounter},
		{"patient and clinician missing", References{EncounterID: env.encounter.ID.String(), PatientID: uuid.NewString(), ClinicianID: uuid.NewString()}, EntityPatient},
		{"clinician missing", References{EncounterID: env.encounter.ID.String(), PatientID: env.patient.ID.String(), ClinicianID: uuid.NewString()}, EntityClinician},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(context.Background(), tt.refs)
			var nf *ReferenceNotFound
			if !errors.As(err, &nf) {
				t.Fatalf("expected ReferenceNotFound, got %v", err)
			}
			if nf.Entity != tt.entity {
				t.Errorf("entity = %q, want %q", nf.Entity, tt.entity)
			}
		})
	}
}

func TestValidator_EncounterOfAnotherPatient(t *testing.T) {
	env := newTestEnv(t)
	other := &encounter.Encounter{PatientID: uuid.New(), Specialty: "Pediatría", Status: encounter.StatusScheduled}
	env.encounters.Create(context.Background(), other)

	_, err := newTestValidator(env, time.Second).Validate(context.Background(), env.refs(other.ID))
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "encounter_id" {
		t.Fatalf("expected encounter_id ValidationError, got %v", err)
	}
}

func TestValidator_LookupsRunConcurrently(t *testing.T) {
	env := newTestEnv(t)

	// Each lookup waits until all three have started.
	var arrived sync.WaitGroup
	arrived.Add(3)
	barrier := func(ctx context.Context) {
		arrived.Done()
		done := make(chan struct{})
		go func() {
			arrived.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	env.encounters.onGet = barrier
	env.patients.onGet = barrier
	env.clinicians.onGet = barrier

	if _, err := newTestValidator(env, 2*time.Second).Validate(context.Background(), env.refs(env.encounter.ID)); err != nil {
		t.Fatalf("lookups did not overlap: %v", err)
	}
}

func TestValidator_Timeout(t *testing.T) {
	env := newTestEnv(t)
	env.patients.onGet = func(ctx context.Context) { <-ctx.Done() }

	start := time.Now()
	_, err := newTestValidator(env, 50*time.Millisecond).Validate(context.Background(), env.refs(env.encounter.ID))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("validation took %v after the lookup deadline", elapsed)
	}
}

func TestValidator_InfrastructureError(t *testing.T) {
	env := newTestEnv(t)
	boom := errors.New("connection refused")
	env.clinicians.err = boom

	_, err := newTestValidator(env, time.Second).Validate(context.Background(), env.refs(env.encounter.ID))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped infrastructure error, got %v", err)
	}
	var nf *ReferenceNotFound
	if errors.As(err, &nf) {
		t.Error("infrastructure error must not be reported as not found")
	}
}
