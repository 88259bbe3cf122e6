/*
Package sqlite provides the SQLite-backed ledger.TxStore.

PURPOSE:
  Production persistence for the Easy Plan backend. The same SQL patterns
  apply to PostgreSQL; only minor dialect differences.

SCHEMA NOTES:
  - Money is stored as TEXT in decimal string form, never as REAL. The
    application parses with shopspring/decimal, so no binary float ever
    touches a balance.
  - Timestamps are TEXT in RFC3339 UTC, which makes range predicates plain
    string comparisons.
  - transactions.idempotency_key carries a UNIQUE index; a violated insert
    surfaces as ledger.ErrDuplicateIdempotencyKey. This is the second line
    of defense against double-posting a planned operation.
  - repeat_operations.completed is claimed with a conditional UPDATE
    (completed = 0 -> 1); RowsAffected tells the caller whether it won.

CONCURRENCY:
  Opened in WAL mode. Reads go straight to the pool; WithTx serializes
  multi-statement units behind a mutex and a database transaction, so a
  rolled-back unit leaves no partial state.

USAGE:
  store, err := sqlite.New("./data/easyplan.db")
  if err != nil { ... }
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/Polvory/Easy-Plan-back/ledger"
)

// dbtx is the common surface of *sql.DB and *sql.Tx the queries run against.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements ledger.Store against either the pool or an open
// transaction. Store embeds one bound to the pool; WithTx hands fn one bound
// to the transaction.
type queries struct {
	db dbtx
}

// Store is the SQLite-backed ledger.TxStore.
type Store struct {
	db *sql.DB
	mu sync.Mutex
	*queries
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, queries: &queries{db: db}}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx executes fn within a database transaction. If fn returns an error
// the transaction is rolled back, otherwise committed.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{db: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

var _ ledger.TxStore = (*Store)(nil)

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		premium INTEGER NOT NULL DEFAULT 0,
		premium_type TEXT NOT NULL DEFAULT '',
		timezone TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		language TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		currency TEXT NOT NULL,
		balance TEXT NOT NULL,
		archive INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id);

	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		icon TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT '',
		svg TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL DEFAULT '',
		moded TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_categories_user ON categories(user_id);

	CREATE TABLE IF NOT EXISTS debts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		account_id INTEGER NOT NULL REFERENCES accounts(id),
		name TEXT NOT NULL,
		who_gave TEXT NOT NULL DEFAULT '',
		comments TEXT NOT NULL DEFAULT '',
		svg TEXT NOT NULL DEFAULT '',
		date_take TEXT NOT NULL,
		date_end TEXT NOT NULL,
		balance TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_debts_user ON debts(user_id);

	CREATE TABLE IF NOT EXISTS targets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		account_id INTEGER NOT NULL REFERENCES accounts(id),
		name TEXT NOT NULL,
		balance TEXT NOT NULL,
		balance_target TEXT NOT NULL,
		date_end TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		svg TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_targets_user ON targets(user_id);

	CREATE TABLE IF NOT EXISTS limits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		category_id INTEGER REFERENCES categories(id),
		balance TEXT NOT NULL,
		current_spent TEXT NOT NULL,
		date_update TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_limits_user_category ON limits(user_id, category_id);
	CREATE INDEX IF NOT EXISTS idx_limits_date_update ON limits(date_update);

	CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		completed INTEGER NOT NULL DEFAULT 0,
		progress INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_projects_user ON projects(user_id);

	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL REFERENCES projects(id),
		account_id INTEGER REFERENCES accounts(id),
		name TEXT NOT NULL,
		date_end TEXT NOT NULL,
		sum TEXT NOT NULL,
		comments TEXT NOT NULL DEFAULT '',
		moded TEXT NOT NULL DEFAULT '',
		completed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);

	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		account_id INTEGER NOT NULL REFERENCES accounts(id),
		sum TEXT NOT NULL,
		moded TEXT NOT NULL,
		currency TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		repeat_operation INTEGER NOT NULL DEFAULT 0,
		category_id INTEGER,
		debt_id INTEGER,
		target_id INTEGER,
		limit_id INTEGER,
		task_id INTEGER,
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_user_date
		ON transactions(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_transactions_account
		ON transactions(account_id);

	CREATE TABLE IF NOT EXISTS repeat_operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		account_id INTEGER NOT NULL REFERENCES accounts(id),
		balance TEXT NOT NULL,
		moded TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		planned_date TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		category_id INTEGER,
		debt_id INTEGER,
		target_id INTEGER,
		limit_id INTEGER,
		task_id INTEGER,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_repeat_planned
		ON repeat_operations(planned_date, completed);
	CREATE INDEX IF NOT EXISTS idx_repeat_user
		ON repeat_operations(user_id, planned_date);

	CREATE TABLE IF NOT EXISTS feature_limits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL UNIQUE REFERENCES users(id),
		subscription_type TEXT NOT NULL,
		account_management INTEGER NOT NULL,
		goals INTEGER NOT NULL,
		tasks INTEGER NOT NULL,
		limits INTEGER NOT NULL,
		debts INTEGER NOT NULL,
		open_ai_balance INTEGER NOT NULL,
		open_ai_tasks INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ENCODING HELPERS
// =============================================================================

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// decoder converts stored TEXT columns back to domain values, holding on to
// the first conversion failure so scan functions stay one assignment per
// field. A corrupted balance or timestamp must fail the read, never scan as
// zero.
type decoder struct {
	err error
}

func (d *decoder) time(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if t, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return t
		}
		if d.err == nil {
			d.err = err
		}
	}
	return t
}

func (d *decoder) dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil && d.err == nil {
		d.err = err
	}
	return v
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func fromNullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// lastInsertID reads the generated row id, which every table here uses.
func lastInsertID(res sql.Result) (int64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}
