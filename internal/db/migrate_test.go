package db

import (
	"testing"
	"testing/fstest"
)

func newTestMigrator(t *testing.T) (*DB, *Migrator) {
	t.Helper()
	db, err := OpenPath(":memory:")
	if err != nil {
		t.Fatalf("OpenPath() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewMigrator(db.DB, nil)
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	return db, m
}

// TestMigrator_UpDown verifies the embedded migration applies and rolls back.
func TestMigrator_UpDown(t *testing.T) {
	db, m := newTestMigrator(t)

	if v, _ := m.CurrentVersion(); v != 0 {
		t.Fatalf("CurrentVersion() before Up = %d, want 0", v)
	}

	if err := m.Up(); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}
	if v, _ := m.CurrentVersion(); v != 1 {
		t.Errorf("CurrentVersion() after Up = %d, want 1", v)
	}

	applied, err := m.GetAppliedMigrations()
	if err != nil {
		t.Fatalf("GetAppliedMigrations() failed: %v", err)
	}
	if len(applied) != 1 || applied[0].Description != "queue_schema" || len(applied[0].Checksum) != 64 {
		t.Errorf("unexpected applied migrations: %+v", applied)
	}

	if err := m.Down(); err != nil {
		t.Fatalf("Down() failed: %v", err)
	}
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name='sync_queue'").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Error("sync_queue should be dropped after Down()")
	}

	if err := m.Down(); err == nil {
		t.Error("Down() with nothing applied should fail")
	}
}

// TestMigrator_customSource verifies ordering and skipping of malformed names.
func TestMigrator_customSource(t *testing.T) {
	db, _ := newTestMigrator(t)

	source := fstest.MapFS{
		"V2__second.up.sql": {Data: []byte("CREATE TABLE b (id INTEGER);")},
		"V1__first.up.sql":  {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"README.md":         {Data: []byte("ignored")},
		"Vx__bad.up.sql":    {Data: []byte("garbage")},
	}
	m := NewMigrator(db.DB, source)

	if err := m.Up(); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}
	if v, _ := m.CurrentVersion(); v != 2 {
		t.Errorf("CurrentVersion() = %d, want 2", v)
	}
	if err := m.Up(); err != nil {
		t.Errorf("second Up() should be a no-op: %v", err)
	}
}

// TestMigrator_failedMigrationRollsBack verifies a broken file leaves no record.
func TestMigrator_failedMigrationRollsBack(t *testing.T) {
	db, _ := newTestMigrator(t)

	m := NewMigrator(db.DB, fstest.MapFS{
		"V1__broken.up.sql": {Data: []byte("CREATE TABLE (;")},
	})
	if err := m.Up(); err == nil {
		t.Fatal("Up() with invalid SQL should fail")
	}
	if v, _ := m.CurrentVersion(); v != 0 {
		t.Errorf("CurrentVersion() = %d, want 0", v)
	}
}

func TestParseMigrationName(t *testing.T) {
	tests := []struct {
		name    string
		version int
		ok      bool
	}{
		{"V1__queue_schema.up.sql", 1, true},
		{"V12__add_index.up.sql", 12, true},
		{"V1__queue_schema.down.sql", 0, false},
		{"V0__zero.up.sql", 0, false},
		{"V3.up.sql", 0, false},
		{"notes.txt", 0, false},
	}
	for _, tt := range tests {
		f, ok := parseMigrationName(tt.name, ".up.sql")
		if ok != tt.ok || f.version != tt.version {
			t.Errorf("parseMigrationName(%q) = (%d, %v), want (%d, %v)", tt.name, f.version, ok, tt.version, tt.ok)
		}
	}
}
