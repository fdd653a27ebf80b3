package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/casework/casework/internal/platform/apperr"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind apperr.Kind
	}{
		{"no rows", pgx.ErrNoRows, apperr.KindNotFound},
		{"wrapped no rows", fmt.Errorf("get: %w", pgx.ErrNoRows), apperr.KindNotFound},
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key", TableName: "users"}, apperr.KindDuplicate},
		{"foreign key", &pgconn.PgError{Code: "23503", ConstraintName: "patients_therapist_id_fkey"}, apperr.KindValidation},
		{"check", &pgconn.PgError{Code: "23514", Message: "violates check"}, apperr.KindValidation},
		{"bad uuid", &pgconn.PgError{Code: "22P02"}, apperr.KindInvalidID},
		{"other", errors.New("connection reset"), apperr.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err, "Patient")
			if apperr.KindOf(got) != tt.kind {
				t.Errorf("expected %s, got %s", tt.kind, apperr.KindOf(got))
			}
		})
	}
}

func TestClassifyError_Nil(t *testing.T) {
	if ClassifyError(nil, "User") != nil {
		t.Error("expected nil")
	}
}

func TestClassifyError_DuplicateField(t *testing.T) {
	err := ClassifyError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key", TableName: "users"}, "User")
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *apperr.Error, got %T", err)
	}
	if ae.Message != "email already exists" {
		t.Errorf("unexpected message %q", ae.Message)
	}
}

func TestClassifyError_NotFoundMessage(t *testing.T) {
	var ae *apperr.Error
	errors.As(ClassifyError(pgx.ErrNoRows, "Therapy plan"), &ae)
	if ae.Message != "Therapy plan not found" {
		t.Errorf("unexpected message %q", ae.Message)
	}
}

func TestPoolTxRunner_NoPool(t *testing.T) {
	r := NewTxRunner(nil)
	called := false
	err := r.InTx(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if err == nil || err.Error() != "no database connection in context" {
		t.Fatalf("unexpected error %v", err)
	}
	if called {
		t.Error("fn should not run without a pool")
	}
}
