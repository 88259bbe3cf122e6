/*
Package ledger contains the core domain of the Easy Plan backend.

PURPOSE:
  This package defines the persisted entities (accounts, categories, debts,
  targets, limits, projects, tasks, transactions, planned repeat operations),
  the Store interfaces the domain reads and writes through, and the Poster -
  the atomic operation that turns a financial event into a permanent
  Transaction and applies its side effects.

KEY CONCEPTS IN THIS FILE (types.go):
  - Direction: income or expense, the sign of every financial event
  - Caller: the resolved identity every entry point receives (user id, role,
    language) - the core trusts it without re-validating tokens
  - RepeatOperation: one dated occurrence expanded from a recurrence rule,
    awaiting posting

DESIGN PRINCIPLES:
  1. Precision: all money uses decimal.Decimal, never float64
  2. Ownership: every entity belongs to exactly one user; cross-user access
     is rejected at the component boundary, not by the store
  3. Explicit optionals: nullable foreign keys are *int64, so "absent" and
     "zero" can never be confused

SEE ALSO:
  - errors.go: error taxonomy
  - store.go: persistence interfaces
  - poster.go: transaction posting
*/
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENUMS
// =============================================================================

// Direction is the sign of a financial event.
type Direction string

const (
	Income  Direction = "income"
	Expense Direction = "expense"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Income, Expense:
		return Direction(s), nil
	}
	return "", fmt.Errorf("%w: direction %q", ErrInvalidArgument, s)
}

// Interval is a recurrence step unit.
type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

func ParseInterval(s string) (Interval, error) {
	switch Interval(s) {
	case IntervalDay, IntervalWeek, IntervalMonth, IntervalYear:
		return Interval(s), nil
	}
	return "", fmt.Errorf("%w: interval %q", ErrInvalidArgument, s)
}

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type Language string

const (
	LanguageRU Language = "ru"
	LanguageKK Language = "kk"
	LanguageCS Language = "cs"
	LanguageEN Language = "en"
)

type Currency string

const (
	RUB Currency = "RUB"
	KZT Currency = "KZT"
	CNY Currency = "CNY"
	CZK Currency = "CZK"
	USD Currency = "USD"
)

func (c Currency) Valid() bool {
	switch c {
	case RUB, KZT, CNY, CZK, USD:
		return true
	}
	return false
}

// =============================================================================
// CALLER - resolved identity supplied by the auth layer
// =============================================================================

type Caller struct {
	UserID   int64
	Role     Role
	Language Language
}

// SystemCaller is the identity the sweep synthesizes for an instance owner.
// Role defaults to "user"; there is no token behind it.
func SystemCaller(userID int64) Caller {
	return Caller{UserID: userID, Role: RoleUser, Language: LanguageEN}
}

// =============================================================================
// ENTITIES
// =============================================================================

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Premium      bool      `json:"premium"`
	PremiumType  string    `json:"premium_type,omitempty"`
	Timezone     string    `json:"timezone,omitempty"`
	Role         Role      `json:"role"`
	Language     Language  `json:"language"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Account struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Name      string          `json:"name"`
	Currency  Currency        `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Archived  bool            `json:"archive"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Category struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon,omitempty"`
	Color     string    `json:"color"`
	SVG       string    `json:"svg,omitempty"`
	Kind      string    `json:"type"`
	Direction Direction `json:"moded"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Debt struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	AccountID int64           `json:"account_id"`
	Name      string          `json:"name"`
	WhoGave   string          `json:"who_gave"`
	Comments  string          `json:"comments"`
	SVG       string          `json:"svg,omitempty"`
	DateTaken time.Time       `json:"date_take"`
	DateEnd   time.Time       `json:"date_end"`
	Balance   decimal.Decimal `json:"balance"`
	Completed bool            `json:"completed"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Target struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	AccountID     int64           `json:"account_id"`
	Name          string          `json:"name"`
	Balance       decimal.Decimal `json:"balance"`
	BalanceTarget decimal.Decimal `json:"balance_target"`
	DateEnd       time.Time       `json:"date_end"`
	Completed     bool            `json:"completed"`
	SVG           string          `json:"svg,omitempty"`
	Icon          string          `json:"icon,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Limit is a per-category budget cap with a running spent counter.
// Soft-enforced: exceeding Balance is logged, never blocks posting.
type Limit struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	CategoryID   *int64          `json:"category_id,omitempty"`
	Balance      decimal.Decimal `json:"balance"`
	CurrentSpent decimal.Decimal `json:"current_spent"`
	DateUpdate   time.Time       `json:"date_update"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type Project struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Completed bool      `json:"completed"`
	Progress  int       `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Task struct {
	ID        int64           `json:"id"`
	ProjectID int64           `json:"project_id"`
	AccountID *int64          `json:"account_id,omitempty"`
	Name      string          `json:"name"`
	DateEnd   time.Time       `json:"date_end"`
	Sum       decimal.Decimal `json:"sum"`
	Comments  string          `json:"comments,omitempty"`
	Direction Direction       `json:"moded,omitempty"`
	Completed bool            `json:"completed"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Transaction is an immutable ledger entry. Once created it is never
// updated; deletion reverses the account balance and removes the row.
type Transaction struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	AccountID      int64           `json:"account_id"`
	Amount         decimal.Decimal `json:"sum"`
	Direction      Direction       `json:"moded"`
	Currency       Currency        `json:"currency"`
	BalanceAfter   decimal.Decimal `json:"balance"`
	FromRecurrence bool            `json:"repeat_operation"`
	CategoryID     *int64          `json:"category_id,omitempty"`
	DebtID         *int64          `json:"debt_id,omitempty"`
	TargetID       *int64          `json:"target_id,omitempty"`
	LimitID        *int64          `json:"limit_id,omitempty"`
	TaskID         *int64          `json:"task_id,omitempty"`
	IdempotencyKey string          `json:"-"`
	OccurredAt     time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Eagerly attached for responses; not persisted on this row.
	Category *Category `json:"category,omitempty"`
	Limit    *Limit    `json:"limit,omitempty"`
}

// RepeatOperation is one planned occurrence expanded from a recurrence rule.
// Invariant: once Completed is true it must never be posted again.
type RepeatOperation struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	AccountID   int64           `json:"account_id"`
	Amount      decimal.Decimal `json:"balance"`
	Direction   Direction       `json:"moded"`
	Name        string          `json:"name"`
	PlannedDate time.Time       `json:"planned_date"`
	Completed   bool            `json:"completed"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	DebtID      *int64          `json:"debt_id,omitempty"`
	TargetID    *int64          `json:"target_id,omitempty"`
	LimitID     *int64          `json:"limit_id,omitempty"`
	TaskID      *int64          `json:"task_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// FeatureLimits is the per-user quota row consulted by the feature gate.
type FeatureLimits struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	SubscriptionType string    `json:"subscription_type"`
	Accounts         int       `json:"account_management"`
	Goals            int       `json:"goals"`
	Tasks            int       `json:"tasks"`
	Limits           int       `json:"limits"`
	Debts            int       `json:"debts"`
	AIBalance        int       `json:"open_ai_balance"`
	AITasks          int       `json:"open_ai_tasks"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
