package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestTxFromContext_Empty(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Errorf("expected nil tx, got %v", tx)
	}
}

func TestConstraintViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: UniqueViolation, ConstraintName: "clinical_document_encounter_type_key"}

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"nil error", nil, "", false},
		{"plain error", errors.New("boom"), "", false},
		{"any unique", unique, "", true},
		{"named unique", unique, "clinical_document_encounter_type_key", true},
		{"wrapped unique", fmt.Errorf("insert: %w", unique), "clinical_document_encounter_type_key", true},
		{"other constraint", unique, "follow_up_log_pkey", false},
		{"foreign key", &pgconn.PgError{Code: "23503"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConstraintViolation(tt.err, tt.constraint); got != tt.want {
				t.Errorf("ConstraintViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunDirect(t *testing.T) {
	var run TxRunner = RunDirect
	called := false
	err := run(context.Background(), func(ctx context.Context) error {
		called = true
		if TxFromContext(ctx) != nil {
			t.Error("RunDirect should not attach a transaction")
		}
		return nil
	})
	if err != nil || !called {
		t.Fatalf("RunDirect: called=%v err=%v", called, err)
	}

	want := errors.New("fail")
	if err := run(context.Background(), func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Errorf("expected fn error to propagate, got %v", err)
	}
}
