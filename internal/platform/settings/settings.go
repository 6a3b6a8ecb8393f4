// Package settings is a small key-value store for clinic-wide configuration
// that lives in the database rather than the environment: clinic name,
// address, default tax percentage. It is injected into the services that
// need a value so tests can substitute a fixed map.
package settings

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cuinc99/docdoc/internal/platform/db"
)

// Well-known keys.
const (
	KeyClinicName     = "clinic_name"
	KeyClinicAddress  = "clinic_address"
	KeyClinicPhone    = "clinic_phone"
	KeyDefaultTaxPct  = "default_tax_percent"
)

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) (map[string]string, error)
}

type pgStore struct {
	pool *pgxpool.Pool
}

func NewPG(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := db.Conn(ctx, s.pool).QueryRow(ctx,
		`SELECT value FROM clinic_settings WHERE key = $1`, key).Scan(&value)
	if db.IsNoRows(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

func (s *pgStore) Set(ctx context.Context, key, value string) error {
	_, err := db.Conn(ctx, s.pool).Exec(ctx, `
		INSERT INTO clinic_settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

func (s *pgStore) All(ctx context.Context) (map[string]string, error) {
	rows, err := db.Conn(ctx, s.pool).Query(ctx, `SELECT key, value FROM clinic_settings`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// TaxPercent reads the default tax percentage, 0 when unset.
func TaxPercent(ctx context.Context, store Store) (float64, error) {
	raw, err := store.Get(ctx, KeyDefaultTaxPct)
	if err != nil || raw == "" {
		return 0, err
	}
	pct, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("setting %s is not numeric: %w", KeyDefaultTaxPct, err)
	}
	return pct, nil
}

// Memory is an in-process Store for tests.
type Memory struct {
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	return m.values[key], nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

func (m *Memory) All(_ context.Context) (map[string]string, error) {
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}
