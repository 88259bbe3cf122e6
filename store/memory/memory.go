// Package memory provides an in-memory ledger.TxStore for tests and dev.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Polvory/Easy-Plan-back/ledger"
)

// =============================================================================
// MEMORY STORE
// =============================================================================
// All state lives in tables, which implements ledger.Store without locking.
// Memory wraps it with a mutex; WithTx holds the write lock for the whole
// unit of work and hands fn the unlocked tables directly, so a transaction
// sees and mutates live state. Rollback is a snapshot restore.

type tables struct {
	seq         map[string]int64
	users       map[int64]ledger.User
	accounts    map[int64]ledger.Account
	categories  map[int64]ledger.Category
	debts       map[int64]ledger.Debt
	targets     map[int64]ledger.Target
	limits      map[int64]ledger.Limit
	projects    map[int64]ledger.Project
	tasks       map[int64]ledger.Task
	txs         map[int64]ledger.Transaction
	repeats     map[int64]ledger.RepeatOperation
	features    map[int64]ledger.FeatureLimits // keyed by user id
	idempotency map[string]int64               // key -> transaction id
}

func newTables() *tables {
	return &tables{
		seq:         make(map[string]int64),
		users:       make(map[int64]ledger.User),
		accounts:    make(map[int64]ledger.Account),
		categories:  make(map[int64]ledger.Category),
		debts:       make(map[int64]ledger.Debt),
		targets:     make(map[int64]ledger.Target),
		limits:      make(map[int64]ledger.Limit),
		projects:    make(map[int64]ledger.Project),
		tasks:       make(map[int64]ledger.Task),
		txs:         make(map[int64]ledger.Transaction),
		repeats:     make(map[int64]ledger.RepeatOperation),
		features:    make(map[int64]ledger.FeatureLimits),
		idempotency: make(map[string]int64),
	}
}

func (t *tables) next(table string) int64 {
	t.seq[table]++
	return t.seq[table]
}

// cloneID keeps optional foreign keys unshared between stored rows and the
// copies handed to callers.
func cloneID(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// =============================================================================
// USERS
// =============================================================================

func (t *tables) CreateUser(_ context.Context, u *ledger.User) error {
	u.ID = t.next("users")
	t.users[u.ID] = *u
	return nil
}

func (t *tables) GetUser(_ context.Context, id int64) (*ledger.User, error) {
	u, ok := t.users[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &u, nil
}

func (t *tables) GetUserByEmail(_ context.Context, email string) (*ledger.User, error) {
	for _, u := range t.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (t *tables) SaveUser(_ context.Context, u *ledger.User) error {
	if _, ok := t.users[u.ID]; !ok {
		return ledger.ErrNotFound
	}
	t.users[u.ID] = *u
	return nil
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (t *tables) CreateAccount(_ context.Context, a *ledger.Account) error {
	a.ID = t.next("accounts")
	t.accounts[a.ID] = *a
	return nil
}

func (t *tables) GetAccount(_ context.Context, id int64) (*ledger.Account, error) {
	a, ok := t.accounts[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &a, nil
}

func (t *tables) SaveAccount(_ context.Context, a *ledger.Account) error {
	if _, ok := t.accounts[a.ID]; !ok {
		return ledger.ErrNotFound
	}
	t.accounts[a.ID] = *a
	return nil
}

func (t *tables) DeleteAccount(_ context.Context, id int64) error {
	if _, ok := t.accounts[id]; !ok {
		return ledger.ErrNotFound
	}
	if t.accountReferenced(id) {
		return fmt.Errorf("account %d still referenced: %w", id, ledger.ErrConflict)
	}
	delete(t.accounts, id)
	return nil
}

// accountReferenced mirrors the SQL store's foreign keys: debts, targets,
// tasks, transactions and repeat operations all pin their account.
func (t *tables) accountReferenced(id int64) bool {
	for _, d := range t.debts {
		if d.AccountID == id {
			return true
		}
	}
	for _, tg := range t.targets {
		if tg.AccountID == id {
			return true
		}
	}
	for _, tk := range t.tasks {
		if tk.AccountID != nil && *tk.AccountID == id {
			return true
		}
	}
	for _, tx := range t.txs {
		if tx.AccountID == id {
			return true
		}
	}
	for _, op := range t.repeats {
		if op.AccountID == id {
			return true
		}
	}
	return false
}

func (t *tables) ListAccounts(_ context.Context, userID int64) ([]*ledger.Account, error) {
	var out []*ledger.Account
	for _, a := range t.accounts {
		if a.UserID == userID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tables) CountAccounts(_ context.Context, userID int64) (int, error) {
	n := 0
	for _, a := range t.accounts {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

// =============================================================================
// CATEGORIES
// =============================================================================

func (t *tables) CreateCategory(_ context.Context, c *ledger.Category) error {
	c.ID = t.next("categories")
	t.categories[c.ID] = *c
	return nil
}

func (t *tables) GetCategory(_ context.Context, id int64) (*ledger.Category, error) {
	c, ok := t.categories[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &c, nil
}

func (t *tables) SaveCategory(_ context.Context, c *ledger.Category) error {
	if _, ok := t.categories[c.ID]; !ok {
		return ledger.ErrNotFound
	}
	t.categories[c.ID] = *c
	return nil
}

func (t *tables) DeleteCategory(_ context.Context, id int64) error {
	if _, ok := t.categories[id]; !ok {
		return ledger.ErrNotFound
	}
	for _, l := range t.limits {
		if l.CategoryID != nil && *l.CategoryID == id {
			return fmt.Errorf("category %d still referenced: %w", id, ledger.ErrConflict)
		}
	}
	delete(t.categories, id)
	return nil
}

func (t *tables) ListCategories(_ context.Context, userID int64) ([]*ledger.Category, error) {
	var out []*ledger.Category
	for _, c := range t.categories {
		if c.UserID == userID {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// DEBTS
// =============================================================================

func (t *tables) CreateDebt(_ context.Context, d *ledger.Debt) error {
	d.ID = t.next("debts")
	t.debts[d.ID] = *d
	return nil
}

func (t *tables) GetDebt(_ context.Context, id int64) (*ledger.Debt, error) {
	d, ok := t.debts[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &d, nil
}

func (t *tables) SaveDebt(_ context.Context, d *ledger.Debt) error {
	if _, ok := t.debts[d.ID]; !ok {
		return ledger.ErrNotFound
	}
	t.debts[d.ID] = *d
	return nil
}

func (t *tables) DeleteDebt(_ context.Context, id int64) error {
	if _, ok := t.debts[id]; !ok {
		return ledger.ErrNotFound
	}
	delete(t.debts, id)
	return nil
}

func (t *tables) ListDebts(_ context.Context, userID int64) ([]*ledger.Debt, error) {
	var out []*ledger.Debt
	for _, d := range t.debts {
		if d.UserID == userID {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tables) CountDebts(_ context.Context, userID int64) (int, error) {
	n := 0
	for _, d := range t.debts {
		if d.UserID == userID {
			n++
		}
	}
	return n, nil
}

// =============================================================================
// TARGETS
// =============================================================================

func (t *tables) CreateTarget(_ context.Context, tg *ledger.Target) error {
	tg.ID = t.next("targets")
	t.targets[tg.ID] = *tg
	return nil
}

func (t *tables) GetTarget(_ context.Context, id int64) (*ledger.Target, error) {
	tg, ok := t.targets[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &tg, nil
}

func (t *tables) SaveTarget(_ context.Context, tg *ledger.Target) error {
	if _, ok := t.targets[tg.ID]; !ok {
		return ledger.ErrNotFound
	}
	t.targets[tg.ID] = *tg
	return nil
}

func (t *tables) DeleteTarget(_ context.Context, id int64) error {
	if _, ok := t.targets[id]; !ok {
		return ledger.ErrNotFound
	}
	delete(t.targets, id)
	return nil
}

func (t *tables) ListTargets(_ context.Context, userID int64) ([]*ledger.Target, error) {
	var out []*ledger.Target
	for _, tg := range t.targets {
		if tg.UserID == userID {
			tg := tg
			out = append(out, &tg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tables) CountTargets(_ context.Context, userID int64) (int, error) {
	n := 0
	for _, tg := range t.targets {
		if tg.UserID == userID {
			n++
		}
	}
	return n, nil
}

// =============================================================================
// LIMITS
// =============================================================================

func (t *tables) CreateLimit(_ context.Context, l *ledger.Limit) error {
	l.ID = t.next("limits")
	stored := *l
	stored.CategoryID = cloneID(l.CategoryID)
	t.limits[l.ID] = stored
	return nil
}

func (t *tables) GetLimit(_ context.Context, id int64) (*ledger.Limit, error) {
	l, ok := t.limits[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	l.CategoryID = cloneID(l.CategoryID)
	return &l, nil
}

func (t *tables) SaveLimit(_ context.Context, l *ledger.Limit) error {
	if _, ok := t.limits[l.ID]; !ok {
		return ledger.ErrNotFound
	}
	stored := *l
	stored.CategoryID = cloneID(l.CategoryID)
	t.limits[l.ID] = stored
	return nil
}

func (t *tables) DeleteLimit(_ context.Context, id int64) error {
	if _, ok := t.limits[id]; !ok {
		return ledger.ErrNotFound
	}
	delete(t.limits, id)
	return nil
}

func (t *tables) ListLimits(_ context.Context, userID int64) ([]*ledger.Limit, error) {
	var out []*ledger.Limit
	for _, l := range t.limits {
		if l.UserID == userID {
			l := l
			l.CategoryID = cloneID(l.CategoryID)
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tables) CountLimits(_ context.Context, userID int64) (int, error) {
	n := 0
	for _, l := range t.limits {
		if l.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (t *tables) FindLimitByCategory(_ context.Context, userID, categoryID int64) (*ledger.Limit, error) {
	for _, l := range t.limits {
		if l.UserID == userID && l.CategoryID != nil && *l.CategoryID == categoryID {
			l := l
			l.CategoryID = cloneID(l.CategoryID)
			return &l, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (t *tables) ListLimitsDue(_ context.Context, day time.Time) ([]*ledger.Limit, error) {
	day = ledger.DateOnly(day)
	var out []*ledger.Limit
	for _, l := range t.limits {
		if ledger.DateOnly(l.DateUpdate).Equal(day) {
			l := l
			l.CategoryID = cloneID(l.CategoryID)
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// PROJECTS AND TASKS
// =============================================================================

func (t *tables) CreateProject(_ context.Context, p *ledger.Project) error {
	p.ID = t.next("projects")
	t.projects[p.ID] = *p
	return nil
}

func (t *tables) GetProject(_ context.Context, id int64) (*ledger.Project, error) {
	p, ok := t.projects[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &p, nil
}

func (t *tables) SaveProject(_ context.Context, p *ledger.Project) error {
	if _, ok := t.projects[p.ID]; !ok {
		return ledger.ErrNotFound
	}
	t.projects[p.ID] = *p
	return nil
}

func (t *tables) DeleteProject(_ context.Context, id int64) error {
	if _, ok := t.projects[id]; !ok {
		return ledger.ErrNotFound
	}
	for _, tk := range t.tasks {
		if tk.ProjectID == id {
			return fmt.Errorf("project %d still referenced: %w", id, ledger.ErrConflict)
		}
	}
	delete(t.projects, id)
	return nil
}

func (t *tables) ListProjects(_ context.Context, userID int64) ([]*ledger.Project, error) {
	var out []*ledger.Project
	for _, p := range t.projects {
		if p.UserID == userID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tables) CreateTask(_ context.Context, tk *ledger.Task) error {
	tk.ID = t.next("tasks")
	stored := *tk
	stored.AccountID = cloneID(tk.AccountID)
	t.tasks[tk.ID] = stored
	return nil
}

func (t *tables) GetTask(_ context.Context, id int64) (*ledger.Task, error) {
	tk, ok := t.tasks[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	tk.AccountID = cloneID(tk.AccountID)
	return &tk, nil
}

func (t *tables) SaveTask(_ context.Context, tk *ledger.Task) error {
	if _, ok := t.tasks[tk.ID]; !ok {
		return ledger.ErrNotFound
	}
	stored := *tk
	stored.AccountID = cloneID(tk.AccountID)
	t.tasks[tk.ID] = stored
	return nil
}

func (t *tables) DeleteTask(_ context.Context, id int64) error {
	if _, ok := t.tasks[id]; !ok {
		return ledger.ErrNotFound
	}
	delete(t.tasks, id)
	return nil
}

func (t *tables) ListTasks(_ context.Context, projectID int64) ([]*ledger.Task, error) {
	var out []*ledger.Task
	for _, tk := range t.tasks {
		if tk.ProjectID == projectID {
			tk := tk
			tk.AccountID = cloneID(tk.AccountID)
			out = append(out, &tk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tables) CountTasks(_ context.Context, userID int64) (int, error) {
	owned := make(map[int64]bool)
	for _, p := range t.projects {
		if p.UserID == userID {
			owned[p.ID] = true
		}
	}
	n := 0
	for _, tk := range t.tasks {
		if owned[tk.ProjectID] {
			n++
		}
	}
	return n, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func cloneTx(tx ledger.Transaction) ledger.Transaction {
	tx.CategoryID = cloneID(tx.CategoryID)
	tx.DebtID = cloneID(tx.DebtID)
	tx.TargetID = cloneID(tx.TargetID)
	tx.LimitID = cloneID(tx.LimitID)
	tx.TaskID = cloneID(tx.TaskID)
	tx.Category = nil
	tx.Limit = nil
	return tx
}

func (t *tables) InsertTransaction(_ context.Context, tx *ledger.Transaction) error {
	if tx.IdempotencyKey != "" {
		if _, dup := t.idempotency[tx.IdempotencyKey]; dup {
			return ledger.ErrDuplicateIdempotencyKey
		}
	}
	tx.ID = t.next("transactions")
	t.txs[tx.ID] = cloneTx(*tx)
	if tx.IdempotencyKey != "" {
		t.idempotency[tx.IdempotencyKey] = tx.ID
	}
	return nil
}

func (t *tables) GetTransaction(_ context.Context, id int64) (*ledger.Transaction, error) {
	tx, ok := t.txs[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	tx = cloneTx(tx)
	return &tx, nil
}

func (t *tables) DeleteTransaction(_ context.Context, id int64) error {
	tx, ok := t.txs[id]
	if !ok {
		return ledger.ErrNotFound
	}
	if tx.IdempotencyKey != "" {
		delete(t.idempotency, tx.IdempotencyKey)
	}
	delete(t.txs, id)
	return nil
}

func (t *tables) ListTransactions(_ context.Context, userID int64, f ledger.TransactionFilter) ([]*ledger.Transaction, error) {
	var all []ledger.Transaction
	for _, tx := range t.txs {
		if tx.UserID != userID {
			continue
		}
		if f.AccountID != nil && tx.AccountID != *f.AccountID {
			continue
		}
		if f.LimitID != nil && (tx.LimitID == nil || *tx.LimitID != *f.LimitID) {
			continue
		}
		if f.TargetID != nil && (tx.TargetID == nil || *tx.TargetID != *f.TargetID) {
			continue
		}
		if f.DebtID != nil && (tx.DebtID == nil || *tx.DebtID != *f.DebtID) {
			continue
		}
		if f.Direction != nil && tx.Direction != *f.Direction {
			continue
		}
		if f.From != nil && tx.OccurredAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !tx.OccurredAt.Before(*f.To) {
			continue
		}
		all = append(all, tx)
	}
	sort.Slice(all, func(i, j int) bool {
		if f.Ascending {
			return all[i].OccurredAt.Before(all[j].OccurredAt)
		}
		return all[j].OccurredAt.Before(all[i].OccurredAt)
	})
	all = paginate(all, f.Offset, f.Limit)
	out := make([]*ledger.Transaction, 0, len(all))
	for _, tx := range all {
		tx := cloneTx(tx)
		out = append(out, &tx)
	}
	return out, nil
}

// =============================================================================
// REPEAT OPERATIONS
// =============================================================================

func cloneRepeat(op ledger.RepeatOperation) ledger.RepeatOperation {
	op.CategoryID = cloneID(op.CategoryID)
	op.DebtID = cloneID(op.DebtID)
	op.TargetID = cloneID(op.TargetID)
	op.LimitID = cloneID(op.LimitID)
	op.TaskID = cloneID(op.TaskID)
	return op
}

func (t *tables) InsertRepeatOperations(_ context.Context, ops []*ledger.RepeatOperation) error {
	for _, op := range ops {
		op.ID = t.next("repeat_operations")
		t.repeats[op.ID] = cloneRepeat(*op)
	}
	return nil
}

func (t *tables) GetRepeatOperation(_ context.Context, id int64) (*ledger.RepeatOperation, error) {
	op, ok := t.repeats[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	op = cloneRepeat(op)
	return &op, nil
}

func (t *tables) DeleteRepeatOperation(_ context.Context, id int64) error {
	if _, ok := t.repeats[id]; !ok {
		return ledger.ErrNotFound
	}
	delete(t.repeats, id)
	return nil
}

func (t *tables) ListRepeatOperations(_ context.Context, userID int64, f ledger.RepeatFilter) ([]*ledger.RepeatOperation, int, error) {
	var all []ledger.RepeatOperation
	for _, op := range t.repeats {
		if op.UserID != userID {
			continue
		}
		if f.From != nil && op.PlannedDate.Before(*f.From) {
			continue
		}
		if f.To != nil && !op.PlannedDate.Before(*f.To) {
			continue
		}
		if f.Completed != nil && op.Completed != *f.Completed {
			continue
		}
		all = append(all, op)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].PlannedDate.Equal(all[j].PlannedDate) {
			return all[i].ID < all[j].ID
		}
		return all[i].PlannedDate.Before(all[j].PlannedDate)
	})
	total := len(all)
	all = paginate(all, f.Offset, f.Limit)
	out := make([]*ledger.RepeatOperation, 0, len(all))
	for _, op := range all {
		op := cloneRepeat(op)
		out = append(out, &op)
	}
	return out, total, nil
}

func (t *tables) ListDueRepeatOperations(_ context.Context, from, to time.Time) ([]*ledger.RepeatOperation, error) {
	var out []*ledger.RepeatOperation
	for _, op := range t.repeats {
		if op.PlannedDate.Before(from) || !op.PlannedDate.Before(to) {
			continue
		}
		op := cloneRepeat(op)
		out = append(out, &op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tables) ClaimRepeatOperation(_ context.Context, id int64) (bool, error) {
	op, ok := t.repeats[id]
	if !ok {
		return false, ledger.ErrNotFound
	}
	if op.Completed {
		return false, nil
	}
	op.Completed = true
	op.UpdatedAt = time.Now().UTC()
	t.repeats[id] = op
	return true, nil
}

// =============================================================================
// FEATURE LIMITS
// =============================================================================

func (t *tables) CreateFeatureLimits(_ context.Context, fl *ledger.FeatureLimits) error {
	fl.ID = t.next("feature_limits")
	t.features[fl.UserID] = *fl
	return nil
}

func (t *tables) GetFeatureLimits(_ context.Context, userID int64) (*ledger.FeatureLimits, error) {
	fl, ok := t.features[userID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &fl, nil
}

func (t *tables) SaveFeatureLimits(_ context.Context, fl *ledger.FeatureLimits) error {
	if _, ok := t.features[fl.UserID]; !ok {
		return ledger.ErrNotFound
	}
	t.features[fl.UserID] = *fl
	return nil
}

func paginate[T any](in []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(in) {
			return nil
		}
		in = in[offset:]
	}
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

// =============================================================================
// TRANSACTIONAL WRAPPER
// =============================================================================

// Store is an in-memory ledger.TxStore. Safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	t  *tables
}

func New() *Store {
	return &Store{t: newTables()}
}

// WithTx executes fn while holding the write lock. On error the pre-call
// snapshot is restored, so a failed unit of work leaves no trace.
func (m *Store) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.t.snapshot()
	if err := fn(m.t); err != nil {
		m.t = snapshot
		return err
	}
	return nil
}

func (t *tables) snapshot() *tables {
	c := newTables()
	for k, v := range t.seq {
		c.seq[k] = v
	}
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.accounts {
		c.accounts[k] = v
	}
	for k, v := range t.categories {
		c.categories[k] = v
	}
	for k, v := range t.debts {
		c.debts[k] = v
	}
	for k, v := range t.targets {
		c.targets[k] = v
	}
	for k, v := range t.limits {
		v.CategoryID = cloneID(v.CategoryID)
		c.limits[k] = v
	}
	for k, v := range t.projects {
		c.projects[k] = v
	}
	for k, v := range t.tasks {
		v.AccountID = cloneID(v.AccountID)
		c.tasks[k] = v
	}
	for k, v := range t.txs {
		c.txs[k] = cloneTx(v)
	}
	for k, v := range t.repeats {
		c.repeats[k] = cloneRepeat(v)
	}
	for k, v := range t.features {
		c.features[k] = v
	}
	for k, v := range t.idempotency {
		c.idempotency[k] = v
	}
	return c
}
