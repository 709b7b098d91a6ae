package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	_ "modernc.org/sqlite"
)

func TestNew_CreatesPrivateSQLiteFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file mode bits are not stable on Windows")
	}

	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "nested", "snaplist.db")

	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_ = store.Close()

	info, err := os.Stat(dbPath)
	if err != nil {
		t.Fatalf("stat db: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o600 {
		t.Fatalf("db perms = %o, want 600", got)
	}

	dirInfo, err := os.Stat(filepath.Dir(dbPath))
	if err != nil {
		t.Fatalf("stat db dir: %v", err)
	}
	if got := dirInfo.Mode().Perm() & 0o077; got != 0 {
		t.Fatalf("db dir perms include group/other bits: %o", dirInfo.Mode().Perm())
	}
}

func TestGetSchemaVersion(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	version, err := store.GetSchemaVersion()
	if err != nil {
		t.Fatalf("GetSchemaVersion() error = %v", err)
	}
	if want := migrations[len(migrations)-1].Version; version != want {
		t.Errorf("GetSchemaVersion() = %d, want %d", version, want)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store1, err := New(dbPath)
	if err != nil {
		t.Fatalf("first New() error = %v", err)
	}
	version1, _ := store1.GetSchemaVersion()
	store1.Close()

	store2, err := New(dbPath)
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	defer store2.Close()

	version2, _ := store2.GetSchemaVersion()
	if version1 != version2 {
		t.Errorf("schema version changed on reopen: %d -> %d", version1, version2)
	}

	var count int
	if err := store2.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != len(migrations) {
		t.Errorf("schema_migrations rows = %d, want %d", count, len(migrations))
	}
}

func TestSchemaHasSubmissionColumns(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	cols, err := tableColumns(store.db, "submissions")
	if err != nil {
		t.Fatalf("tableColumns() error = %v", err)
	}
	for _, name := range []string{
		"id", "session_id", "instance_id", "title", "price", "description", "category", "image_url",
		"success", "listing_url", "error", "error_code", "failed_phase", "image_attached",
		"duration_ms", "created_at",
	} {
		if !cols[name] {
			t.Errorf("submissions.%s missing", name)
		}
	}
}

func TestExecWithRetryHonorsContext(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = store.execWithRetry(ctx, `INSERT INTO session_events (id, session_id, event, created_at) VALUES ('e1', 's', 'created', 0)`)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("execWithRetry() error = %v, want context.Canceled", err)
	}

	var count int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM session_events").Scan(&count); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 0 {
		t.Errorf("session_events rows = %d, want 0", count)
	}
}

func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

func TestMemoryStore(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) error = %v", err)
	}
	defer store.Close()

	if err := store.Ping(); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestNilStore(t *testing.T) {
	var store *Store
	if err := store.Ping(); err != ErrStoreClosed {
		t.Fatalf("Ping() on nil store = %v, want ErrStoreClosed", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() on nil store = %v", err)
	}
}

func TestSqliteFilePathFromDSN(t *testing.T) {
	tests := []struct {
		dsn    string
		path   string
		onDisk bool
	}{
		{":memory:", "", false},
		{"", "", false},
		{"/var/lib/snaplist.db", "/var/lib/snaplist.db", true},
		{"file:/tmp/x.db?_pragma=busy_timeout(5000)", "/tmp/x.db", true},
		{"file::memory:?cache=shared", "", false},
		{"libsql://remote", "", false},
	}
	for _, tt := range tests {
		path, onDisk := sqliteFilePathFromDSN(tt.dsn)
		if path != tt.path || onDisk != tt.onDisk {
			t.Errorf("sqliteFilePathFromDSN(%q) = (%q, %v), want (%q, %v)", tt.dsn, path, onDisk, tt.path, tt.onDisk)
		}
	}
}
