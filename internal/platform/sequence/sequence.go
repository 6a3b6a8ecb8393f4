// Package sequence produces the clinic's human-readable running numbers:
// patient MR numbers, invoice numbers, prescription numbers and per-doctor
// daily queue numbers. Each number series is scoped by a key; the counter
// behind a key is strictly increasing and never hands out duplicates.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cuinc99/docdoc/internal/domain/clinicerr"
	"github.com/cuinc99/docdoc/internal/platform/db"
)

// Generator hands out the next value for a counter key, starting at 1.
type Generator interface {
	Next(ctx context.Context, key string) (int, error)
}

// Key builders. The formatted number is the key with a zero-padded sequence
// appended, so the key doubles as the number prefix.

// MRKey scopes patient medical-record numbers per month: MR + YYMM.
func MRKey(t time.Time) string { return "MR" + t.Format("0601") }

// InvoiceKey scopes invoice numbers per month: INV + YYMM.
func InvoiceKey(t time.Time) string { return "INV" + t.Format("0601") }

// PrescriptionKey scopes prescription numbers per day: RX + YYMMDD.
func PrescriptionKey(t time.Time) string { return "RX" + t.Format("060102") }

// QueueKey scopes queue numbers per doctor per day.
func QueueKey(doctorID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("queue:%s:%s", doctorID, date.Format("20060102"))
}

// Format renders a human-readable number from a key and sequence value,
// e.g. ("INV2608", 12) -> "INV26080012".
func Format(key string, seq int) string {
	return fmt.Sprintf("%s%04d", key, seq)
}

const maxAttempts = 3

type pgGenerator struct {
	pool *pgxpool.Pool
}

// NewPG returns a Generator backed by the sequence_counters table.
func NewPG(pool *pgxpool.Pool) Generator {
	return &pgGenerator{pool: pool}
}

// Next increments and returns the counter for key. The upsert takes a row
// lock on the counter that is held until the surrounding transaction
// commits, which serialises concurrent callers in the same scope: two
// admissions for the same doctor and day cannot observe the same value.
func (g *pgGenerator) Next(ctx context.Context, key string) (int, error) {
	return nextValue(ctx, db.Conn(ctx, g.pool), key, db.TxFromContext(ctx) != nil)
}

func nextValue(ctx context.Context, q db.Queryable, key string, inTx bool) (int, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var value int
		err := q.QueryRow(ctx, `
			INSERT INTO sequence_counters (key, value) VALUES ($1, 1)
			ON CONFLICT (key) DO UPDATE SET value = sequence_counters.value + 1
			RETURNING value`, key).Scan(&value)
		if err == nil {
			return value, nil
		}
		if !db.IsSerializationFailure(err) {
			return 0, fmt.Errorf("next sequence for %s: %w", key, err)
		}
		lastErr = err
		// Inside an ambient transaction the conflict poisons the whole tx;
		// retrying here would not help.
		if inTx {
			break
		}
	}
	return 0, clinicerr.Wrap(clinicerr.Conflict,
		fmt.Sprintf("sequence %s is contended, try again", key), lastErr)
}

// Memory is an in-process Generator for tests.
type Memory struct {
	counters map[string]int
}

func NewMemory() *Memory {
	return &Memory{counters: make(map[string]int)}
}

func (m *Memory) Next(_ context.Context, key string) (int, error) {
	m.counters[key]++
	return m.counters[key], nil
}
