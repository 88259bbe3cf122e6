/*
store.go - Persistence interfaces

PURPOSE:
  Defines the interface between the domain logic and the database. Two
  implementations exist: store/sqlite (production) and store/memory (tests).

TRANSACTION BOUNDARY:
  TxStore.WithTx executes a function against a transactional view of the
  store. Every multi-step mutation in this system (posting, recurrence batch
  creation, sweep claim-and-post, limit reset) runs inside exactly one
  WithTx call; if the function errors, nothing is persisted.

OWNERSHIP:
  Get* methods return the row regardless of owner; callers compare UserID
  against the caller identity and translate a mismatch into ErrNotFound, so
  another user's row is indistinguishable from an absent one.

IDEMPOTENCY:
  InsertTransaction must reject a duplicate non-empty idempotency key with
  ErrDuplicateIdempotencyKey. The sweep relies on this as its second line of
  defense against double-posting.
*/
package ledger

import (
	"context"
	"time"
)

// TransactionFilter narrows ListTransactions. Nil fields are ignored.
type TransactionFilter struct {
	AccountID *int64
	LimitID   *int64
	TargetID  *int64
	DebtID    *int64
	Direction *Direction
	From      *time.Time
	To        *time.Time
	Ascending bool
	Limit     int
	Offset    int
}

// RepeatFilter narrows ListRepeatOperations. Nil fields are ignored.
type RepeatFilter struct {
	From      *time.Time
	To        *time.Time
	Completed *bool
	Limit     int
	Offset    int
}

// Store is the persistence surface of the domain. All reads and writes the
// core performs go through it.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	SaveUser(ctx context.Context, u *User) error

	// Accounts
	CreateAccount(ctx context.Context, a *Account) error
	GetAccount(ctx context.Context, id int64) (*Account, error)
	SaveAccount(ctx context.Context, a *Account) error
	DeleteAccount(ctx context.Context, id int64) error
	ListAccounts(ctx context.Context, userID int64) ([]*Account, error)
	CountAccounts(ctx context.Context, userID int64) (int, error)

	// Categories
	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id int64) (*Category, error)
	SaveCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id int64) error
	ListCategories(ctx context.Context, userID int64) ([]*Category, error)

	// Debts
	CreateDebt(ctx context.Context, d *Debt) error
	GetDebt(ctx context.Context, id int64) (*Debt, error)
	SaveDebt(ctx context.Context, d *Debt) error
	DeleteDebt(ctx context.Context, id int64) error
	ListDebts(ctx context.Context, userID int64) ([]*Debt, error)
	CountDebts(ctx context.Context, userID int64) (int, error)

	// Targets
	CreateTarget(ctx context.Context, t *Target) error
	GetTarget(ctx context.Context, id int64) (*Target, error)
	SaveTarget(ctx context.Context, t *Target) error
	DeleteTarget(ctx context.Context, id int64) error
	ListTargets(ctx context.Context, userID int64) ([]*Target, error)
	CountTargets(ctx context.Context, userID int64) (int, error)

	// Limits
	CreateLimit(ctx context.Context, l *Limit) error
	GetLimit(ctx context.Context, id int64) (*Limit, error)
	SaveLimit(ctx context.Context, l *Limit) error
	DeleteLimit(ctx context.Context, id int64) error
	ListLimits(ctx context.Context, userID int64) ([]*Limit, error)
	CountLimits(ctx context.Context, userID int64) (int, error)
	// FindLimitByCategory returns the user's limit for a category, or
	// ErrNotFound when no limit covers it.
	FindLimitByCategory(ctx context.Context, userID, categoryID int64) (*Limit, error)
	// ListLimitsDue returns limits whose reset date equals the given day.
	ListLimitsDue(ctx context.Context, day time.Time) ([]*Limit, error)

	// Projects and tasks
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id int64) (*Project, error)
	SaveProject(ctx context.Context, p *Project) error
	DeleteProject(ctx context.Context, id int64) error
	ListProjects(ctx context.Context, userID int64) ([]*Project, error)
	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id int64) (*Task, error)
	SaveTask(ctx context.Context, t *Task) error
	DeleteTask(ctx context.Context, id int64) error
	ListTasks(ctx context.Context, projectID int64) ([]*Task, error)
	CountTasks(ctx context.Context, userID int64) (int, error)

	// Transactions
	InsertTransaction(ctx context.Context, t *Transaction) error
	GetTransaction(ctx context.Context, id int64) (*Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	ListTransactions(ctx context.Context, userID int64, f TransactionFilter) ([]*Transaction, error)

	// Planned repeat operations
	InsertRepeatOperations(ctx context.Context, ops []*RepeatOperation) error
	GetRepeatOperation(ctx context.Context, id int64) (*RepeatOperation, error)
	DeleteRepeatOperation(ctx context.Context, id int64) error
	ListRepeatOperations(ctx context.Context, userID int64, f RepeatFilter) ([]*RepeatOperation, int, error)
	// ListDueRepeatOperations returns instances with planned_date in [from, to).
	ListDueRepeatOperations(ctx context.Context, from, to time.Time) ([]*RepeatOperation, error)
	// ClaimRepeatOperation flips completed false->true. Returns false when the
	// instance was already completed (someone else posted it first).
	ClaimRepeatOperation(ctx context.Context, id int64) (bool, error)

	// Feature limits
	CreateFeatureLimits(ctx context.Context, fl *FeatureLimits) error
	GetFeatureLimits(ctx context.Context, userID int64) (*FeatureLimits, error)
	SaveFeatureLimits(ctx context.Context, fl *FeatureLimits) error
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a database transaction. If fn returns an
	// error the transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
