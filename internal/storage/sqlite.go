package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the local SQLite database holding the remembered identity and
// the mutation audit log. Profile data itself lives only on the remote store.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "uniguide.db")
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Single connection: ":memory:" databases are per-connection, and it
	// sidesteps "database is locked" on file databases.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.Get(&exists, "SELECT COUNT(*) FROM schema_version WHERE version = ?", version); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Beginx()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	var versions []int
	if err := s.db.Select(&versions, "SELECT version FROM schema_version ORDER BY version ASC"); err != nil {
		return nil, err
	}
	return versions, nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// --- Accounts ---

// SetActiveAccount remembers email and marks it as the only active account.
func (s *Store) SetActiveAccount(ctx context.Context, email string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "UPDATE accounts SET active = 0 WHERE active = 1"); err != nil {
		return fmt.Errorf("clearing active account: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (email, active, last_login_at) VALUES (?, 1, ?)
		ON CONFLICT(email) DO UPDATE SET active = 1, last_login_at = excluded.last_login_at`,
		email, s.timestamp(),
	); err != nil {
		return fmt.Errorf("saving account %s: %w", email, err)
	}
	return tx.Commit()
}

// ActiveAccount returns the active account or ErrNotFound.
func (s *Store) ActiveAccount(ctx context.Context) (Account, error) {
	var row accountRow
	err := s.db.GetContext(ctx, &row, "SELECT email, active, last_login_at FROM accounts WHERE active = 1 LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("loading active account: %w", err)
	}
	return row.toAccount()
}

// DeactivateAccounts clears the active flag without forgetting anyone.
func (s *Store) DeactivateAccounts(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "UPDATE accounts SET active = 0 WHERE active = 1")
	return err
}

// ForgetAccount removes every local trace of email: the account row and its
// mutation log.
func (s *Store) ForgetAccount(ctx context.Context, email string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM mutations WHERE email = ?", email); err != nil {
		return fmt.Errorf("deleting mutations for %s: %w", email, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM accounts WHERE email = ?", email); err != nil {
		return fmt.Errorf("deleting account %s: %w", email, err)
	}
	return tx.Commit()
}

// Accounts lists remembered accounts, most recent login first.
func (s *Store) Accounts(ctx context.Context) ([]Account, error) {
	var rows []accountRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT email, active, last_login_at FROM accounts ORDER BY last_login_at DESC"); err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	out := make([]Account, 0, len(rows))
	for _, r := range rows {
		a, err := r.toAccount()
		if err != nil {
			return nil, fmt.Errorf("parsing account %s: %w", r.Email, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// --- Mutations ---

// RecordMutation inserts a new audit row. Empty status defaults to queued.
func (s *Store) RecordMutation(ctx context.Context, m Mutation) error {
	status := m.Status
	if status == "" {
		status = StatusQueued
	}
	ts := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mutations (id, email, kind, status, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Email, m.Kind, status, m.LastError, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("recording mutation %s: %w", m.ID, err)
	}
	return nil
}

// SetMutationStatus moves a mutation to status, storing errMsg for failures.
func (s *Store) SetMutationStatus(ctx context.Context, id, status, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE mutations SET status = ?, last_error = ?, updated_at = ? WHERE id = ?",
		status, errMsg, s.timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("updating mutation %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMutations returns up to limit mutations for email, newest first.
func (s *Store) ListMutations(ctx context.Context, email string, limit int) ([]Mutation, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []mutationRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, email, kind, status, last_error, created_at, updated_at
		FROM mutations WHERE email = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, email, limit,
	); err != nil {
		return nil, fmt.Errorf("listing mutations: %w", err)
	}
	out := make([]Mutation, 0, len(rows))
	for _, r := range rows {
		m, err := r.toMutation()
		if err != nil {
			return nil, fmt.Errorf("parsing mutation %s: %w", r.ID, err)
		}
		out = append(out, m)
	}
	return out, nil
}
