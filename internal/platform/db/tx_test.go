package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(pgx.ErrNoRows) {
		t.Error("IsNoRows(pgx.ErrNoRows) = false")
	}
	if !IsNoRows(fmt.Errorf("load patient: %w", pgx.ErrNoRows)) {
		t.Error("IsNoRows should see through wrapping")
	}
	if IsNoRows(errors.New("boom")) {
		t.Error("IsNoRows matched an unrelated error")
	}
}

func TestIsSerializationFailure(t *testing.T) {
	for _, code := range []string{"40001", "40P01"} {
		if !IsSerializationFailure(&pgconn.PgError{Code: code}) {
			t.Errorf("code %s should be retryable", code)
		}
	}
	if IsSerializationFailure(&pgconn.PgError{Code: "23505"}) {
		t.Error("unique violation is not retryable")
	}
	if IsSerializationFailure(errors.New("boom")) {
		t.Error("non-pg error is not retryable")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Error("23505 is a unique violation")
	}
	if !IsUniqueViolation(fmt.Errorf("insert record: %w", &pgconn.PgError{Code: "23505"})) {
		t.Error("IsUniqueViolation should see through wrapping")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "40001"}) {
		t.Error("serialization failure is not a unique violation")
	}
	if IsUniqueViolation(errors.New("boom")) {
		t.Error("non-pg error matched")
	}
}

func TestNopRunnerPassesThrough(t *testing.T) {
	called := false
	err := NopRunner{}.WithTx(context.Background(), func(ctx context.Context) error {
		called = true
		if TxFromContext(ctx) != nil {
			t.Error("NopRunner must not install a transaction")
		}
		return nil
	})
	if err != nil || !called {
		t.Fatalf("WithTx = %v, called = %v", err, called)
	}

	want := errors.New("inner")
	if err := (NopRunner{}).WithTx(context.Background(), func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Errorf("err = %v, want inner error", err)
	}
}
