package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	busyTimeoutMS          = 5000
	defaultMaxOpenConns    = 4
	defaultMaxIdleConns    = 4
	defaultConnMaxLifetime = 5 * time.Minute

	maxOpenConnsEnvKey    = "CLOUDSYNC_DB_MAX_OPEN_CONNS"
	maxIdleConnsEnvKey    = "CLOUDSYNC_DB_MAX_IDLE_CONNS"
	connMaxLifetimeEnvKey = "CLOUDSYNC_DB_CONN_MAX_LIFETIME"
)

// Store wraps the SQLite metadata database.
//
// Every method checks a connection out of the pool for the duration of one
// statement or transaction, so no handle outlives the request that used it.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database and applies pending migrations.
func Open(path string) (*Store, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	configureDB(db)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is not configured")
	}
	return s.db.PingContext(ctx)
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

func configureDB(db *sql.DB) {
	db.SetMaxOpenConns(intFromEnv(maxOpenConnsEnvKey, defaultMaxOpenConns))
	db.SetMaxIdleConns(intFromEnv(maxIdleConnsEnvKey, defaultMaxIdleConns))
	db.SetConnMaxLifetime(durationFromEnv(connMaxLifetimeEnvKey, defaultConnMaxLifetime))
}

// sqliteDSN carries pragmas in the DSN so every pooled connection gets them.
func sqliteDSN(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("db path is required")
	}
	query := url.Values{}
	query.Add("_pragma", "journal_mode(WAL)")
	query.Add("_pragma", "synchronous(NORMAL)")
	query.Add("_pragma", "foreign_keys(1)")
	query.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
	u := url.URL{Scheme: "file", Path: path, RawQuery: query.Encode()}
	return u.String(), nil
}

func intFromEnv(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return def
	}
	return value
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if value, err := time.ParseDuration(raw); err == nil && value > 0 {
		return value
	}
	if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return def
}
