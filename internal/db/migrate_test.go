package db

import (
	"strings"
	"testing"
	"testing/fstest"

	"branchpos/migrations"
)

func TestDiscoverMigrations_SortedWithChecksums(t *testing.T) {
	fsys := fstest.MapFS{
		"002_second.sql": {Data: []byte("SELECT 2;")},
		"001_first.sql":  {Data: []byte("SELECT 1;")},
		"README.md":      {Data: []byte("ignored")},
	}

	got, err := DiscoverMigrations(fsys)
	if err != nil {
		t.Fatalf("DiscoverMigrations failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(got))
	}
	if got[0].Version != "001" || got[1].Version != "002" {
		t.Errorf("unexpected order: %s, %s", got[0].Filename, got[1].Filename)
	}
	if len(got[0].Checksum) != 64 {
		t.Errorf("expected sha256 hex checksum, got %q", got[0].Checksum)
	}
	if got[0].Checksum == got[1].Checksum {
		t.Error("different files should not share a checksum")
	}
}

func TestDiscoverMigrations_RejectsDuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"001_b.sql": {Data: []byte("SELECT 2;")},
	}
	_, err := DiscoverMigrations(fsys)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected duplicate version error, got %v", err)
	}
}

func TestDiscoverMigrations_RejectsBadName(t *testing.T) {
	fsys := fstest.MapFS{"init.sql": {Data: []byte("SELECT 1;")}}
	if _, err := DiscoverMigrations(fsys); err == nil {
		t.Error("expected error for filename without version prefix")
	}
}

func TestDiscoverMigrations_EmbeddedSchema(t *testing.T) {
	got, err := DiscoverMigrations(migrations.FS)
	if err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
	if len(got) == 0 || got[0].Version != "001" {
		t.Fatalf("expected embedded migrations starting at 001, got %+v", got)
	}
	if !strings.Contains(got[0].SQL, "branch_stocks") {
		t.Error("initial migration should create branch_stocks")
	}
}
