package store

import (
	"database/sql"
	"fmt"
	"slices"
)

// Migration represents a schema migration step.
type Migration struct {
	Version     int
	Description string
	SQL         string
	// Up runs after SQL inside the same transaction, for data rewrites
	// that plain SQL cannot express.
	Up func(tx *sql.Tx) error
}

// MigrationStatus reports the current and available migration versions.
type MigrationStatus struct {
	CurrentVersion   int             `json:"current_version"`
	AvailableVersion int             `json:"available_version"`
	Pending          []MigrationInfo `json:"pending"`
}

// MigrationInfo describes a single migration.
type MigrationInfo struct {
	Version     int    `json:"version"`
	Description string `json:"description"`
}

// migrations is the ordered list of all schema migrations.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema: users and files tables",
		SQL: `
CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username VARCHAR UNIQUE,
  email VARCHAR UNIQUE,
  hashed_password VARCHAR,
  created_at DATETIME
);

CREATE TABLE IF NOT EXISTS files (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  filename VARCHAR,
  file_path VARCHAR,
  file_type VARCHAR,
  file_size BIGINT,
  upload_date DATETIME,
  file_hash VARCHAR UNIQUE,
  description VARCHAR,
  tags VARCHAR,
  is_favorite INTEGER DEFAULT 0,
  download_count INTEGER DEFAULT 0,
  last_accessed DATETIME,
  user_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
  is_public INTEGER DEFAULT 1
);

CREATE INDEX IF NOT EXISTS ix_users_id ON users(id);
CREATE INDEX IF NOT EXISTS ix_files_id ON files(id);
CREATE INDEX IF NOT EXISTS ix_files_filename ON files(filename);
`,
	},
	{
		Version:     2,
		Description: "unique storage paths and upload_date ordering index",
		SQL: `
CREATE UNIQUE INDEX IF NOT EXISTS ux_files_file_path ON files(file_path);
CREATE INDEX IF NOT EXISTS idx_files_upload_date ON files(upload_date, id);
`,
	},
	{
		Version:     3,
		Description: "rewrite timestamps as fixed-width UTC",
		Up:          normalizeTimestamps,
	},
}

// timestampColumns lists every column written through formatTime.
var timestampColumns = []struct{ table, column string }{
	{"files", "upload_date"},
	{"files", "last_accessed"},
	{"users", "created_at"},
}

// normalizeTimestamps rewrites stored timestamps into storedTimeLayout.
// Values that do not parse are left as they are.
func normalizeTimestamps(tx *sql.Tx) error {
	for _, tc := range timestampColumns {
		rows, err := tx.Query(fmt.Sprintf("SELECT id, %s FROM %s WHERE %s IS NOT NULL", tc.column, tc.table, tc.column))
		if err != nil {
			return fmt.Errorf("read %s.%s: %w", tc.table, tc.column, err)
		}
		rewrites := map[int64]string{}
		for rows.Next() {
			var id int64
			var raw string
			if err := rows.Scan(&id, &raw); err != nil {
				rows.Close()
				return fmt.Errorf("scan %s.%s: %w", tc.table, tc.column, err)
			}
			parsed, err := parseTime(raw)
			if err != nil || parsed.IsZero() {
				continue
			}
			if formatted := formatTime(parsed); formatted != raw {
				rewrites[id] = formatted
			}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("read %s.%s: %w", tc.table, tc.column, err)
		}

		update := fmt.Sprintf("UPDATE %s SET %s = ? WHERE id = ?", tc.table, tc.column)
		for id, value := range rewrites {
			if _, err := tx.Exec(update, value, id); err != nil {
				return fmt.Errorf("rewrite %s.%s for id %d: %w", tc.table, tc.column, id, err)
			}
		}
	}
	return nil
}

const migrationsTableSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at TEXT NOT NULL
);
`

func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(migrationsTableSQL)
	return err
}

func currentVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

func tableExists(db *sql.DB, name string) (bool, error) {
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// detectPreMigrationDB reports a database that already has a files table
// but no recorded migrations, i.e. one created by an older unversioned
// schema setup.
func detectPreMigrationDB(db *sql.DB) (bool, error) {
	hasFiles, err := tableExists(db, "files")
	if err != nil || !hasFiles {
		return false, err
	}
	hasLedger, err := tableExists(db, "schema_migrations")
	if err != nil {
		return false, err
	}
	if !hasLedger {
		return true, nil
	}
	var recorded int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&recorded); err != nil {
		return false, err
	}
	return recorded == 0, nil
}

func sortedMigrations() []Migration {
	sorted := slices.Clone(migrations)
	slices.SortFunc(sorted, func(a, b Migration) int { return a.Version - b.Version })
	return sorted
}

// prepareLedger creates schema_migrations and returns the effective
// version. Pre-migration databases count as version 1; stamp records that
// in the ledger, otherwise it is only reported.
func prepareLedger(db *sql.DB, stamp bool) (int, error) {
	// Must run before the ledger table is created.
	preMigration, err := detectPreMigrationDB(db)
	if err != nil {
		return 0, fmt.Errorf("detect pre-migration db: %w", err)
	}
	if err := ensureMigrationsTable(db); err != nil {
		return 0, fmt.Errorf("create migrations table: %w", err)
	}
	if preMigration && stamp {
		if _, err := db.Exec("INSERT OR IGNORE INTO schema_migrations (version, applied_at) VALUES (1, datetime('now'))"); err != nil {
			return 0, fmt.Errorf("stamp pre-migration db: %w", err)
		}
	}

	current, err := currentVersion(db)
	if err != nil {
		return 0, fmt.Errorf("get current version: %w", err)
	}
	if preMigration && current == 0 {
		current = 1
	}
	return current, nil
}

func applyMigration(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if m.SQL != "" {
		if _, err := tx.Exec(m.SQL); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}
	}
	if m.Up != nil {
		if err := m.Up(tx); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))", m.Version); err != nil {
		return fmt.Errorf("record migration %d: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}
	return nil
}

// runMigrations applies every migration above the current version, each in
// its own transaction.
func runMigrations(db *sql.DB) error {
	current, err := prepareLedger(db, true)
	if err != nil {
		return err
	}
	for _, m := range sortedMigrations() {
		if m.Version <= current {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return err
		}
	}
	return nil
}

// MigrationPlan reports the current and available versions and what is
// pending, without applying anything.
func MigrationPlan(db *sql.DB) (*MigrationStatus, error) {
	current, err := prepareLedger(db, false)
	if err != nil {
		return nil, err
	}

	status := &MigrationStatus{CurrentVersion: current}
	for _, m := range sortedMigrations() {
		status.AvailableVersion = max(status.AvailableVersion, m.Version)
		if m.Version > current {
			status.Pending = append(status.Pending, MigrationInfo{Version: m.Version, Description: m.Description})
		}
	}
	return status, nil
}
