package sequence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cuinc99/docdoc/internal/domain/clinicerr"
)

func TestMemoryCountsPerKey(t *testing.T) {
	gen := NewMemory()
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := gen.Next(ctx, "INV2608")
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if got != want {
			t.Errorf("Next = %d, want %d", got, want)
		}
	}

	// A different key has its own counter.
	got, err := gen.Next(ctx, "INV2609")
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got != 1 {
		t.Errorf("Next on fresh key = %d, want 1", got)
	}
}

func TestFormat(t *testing.T) {
	if got := Format("INV2608", 12); got != "INV26080012" {
		t.Errorf("Format = %q, want INV26080012", got)
	}
	if got := Format("MR2608", 1); got != "MR26080001" {
		t.Errorf("Format = %q, want MR26080001", got)
	}
}

func TestKeyBuilders(t *testing.T) {
	at := time.Date(2026, 8, 29, 13, 0, 0, 0, time.UTC)
	if got := MRKey(at); got != "MR2608" {
		t.Errorf("MRKey = %q", got)
	}
	if got := InvoiceKey(at); got != "INV2608" {
		t.Errorf("InvoiceKey = %q", got)
	}
	if got := PrescriptionKey(at); got != "RX260829" {
		t.Errorf("PrescriptionKey = %q", got)
	}

	doctorID := uuid.MustParse("6f9619ff-8b86-4d11-b42d-00c04fc964ff")
	want := "queue:6f9619ff-8b86-4d11-b42d-00c04fc964ff:20260829"
	if got := QueueKey(doctorID, at); got != want {
		t.Errorf("QueueKey = %q, want %q", got, want)
	}
}

// failingQueryable fails every statement with a fixed error.
type failingQueryable struct {
	calls int
	err   error
}

func (f *failingQueryable) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, f.err
}

func (f *failingQueryable) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	f.calls++
	return errRow{err: f.err}
}

func (f *failingQueryable) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, f.err
}

type errRow struct{ err error }

func (r errRow) Scan(...interface{}) error { return r.err }

func TestNextContendedRetriesAndWrapsCause(t *testing.T) {
	cause := &pgconn.PgError{Code: "40001"}
	q := &failingQueryable{err: cause}

	_, err := nextValue(context.Background(), q, "INV2608", false)
	if !clinicerr.IsKind(err, clinicerr.Conflict) {
		t.Fatalf("err = %v, want Conflict", err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Error("serialization error should stay reachable through the wrap")
	}
	if q.calls != maxAttempts {
		t.Errorf("attempts = %d, want %d", q.calls, maxAttempts)
	}
}

func TestNextInsideTxFailsFastKeepingCause(t *testing.T) {
	cause := &pgconn.PgError{Code: "40P01"}
	q := &failingQueryable{err: cause}

	_, err := nextValue(context.Background(), q, "RX260829", true)
	if !clinicerr.IsKind(err, clinicerr.Conflict) {
		t.Fatalf("err = %v, want Conflict", err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Error("serialization error should stay reachable through the wrap")
	}
	if q.calls != 1 {
		t.Errorf("attempts = %d, want 1 inside an ambient transaction", q.calls)
	}
}

func TestNextNonRetryableErrorSurfaces(t *testing.T) {
	cause := errors.New("connection reset")
	q := &failingQueryable{err: cause}

	_, err := nextValue(context.Background(), q, "MR2608", false)
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, want wrapped cause", err)
	}
	if q.calls != 1 {
		t.Errorf("attempts = %d, want 1 for a non-retryable error", q.calls)
	}
}
