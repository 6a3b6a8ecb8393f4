package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMigrations(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, sql := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestLoadMigrationsParsesAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeMigrations(t, dir, map[string]string{
		"010_billing.sql": "SELECT 10;",
		"002_queue.sql":   "SELECT 2;",
		"001_core.sql":    "CREATE TABLE patient (id UUID PRIMARY KEY);",
		"005_records.sql": "SELECT 5;",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}

	wantVersions := []int{1, 2, 5, 10}
	if len(migrations) != len(wantVersions) {
		t.Fatalf("len = %d, want %d", len(migrations), len(wantVersions))
	}
	for i, want := range wantVersions {
		if migrations[i].Version != want {
			t.Errorf("migrations[%d].Version = %d, want %d", i, migrations[i].Version, want)
		}
	}
	if migrations[0].Name != "001_core.sql" {
		t.Errorf("name = %q, want 001_core.sql", migrations[0].Name)
	}
	if migrations[0].SQL != "CREATE TABLE patient (id UUID PRIMARY KEY);" {
		t.Errorf("sql = %q", migrations[0].SQL)
	}
}

func TestLoadMigrationsSkipsNonVersionedFiles(t *testing.T) {
	dir := t.TempDir()
	writeMigrations(t, dir, map[string]string{
		"001_core.sql":    "SELECT 1;",
		"readme.sql":      "-- no version prefix",
		"notes.txt":       "not sql",
		"abc_invalid.sql": "-- non-numeric prefix",
		"002_queue.sql":   "SELECT 2;",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("len = %d, want 2", len(migrations))
	}
}

func TestLoadMigrationsEmptyDir(t *testing.T) {
	migrations, err := NewMigrator(nil, t.TempDir()).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migrations) != 0 {
		t.Errorf("len = %d, want 0", len(migrations))
	}
}

func TestLoadMigrationsMissingDir(t *testing.T) {
	if _, err := NewMigrator(nil, "/does/not/exist").LoadMigrations(); err == nil {
		t.Error("expected error for missing directory")
	}
}
