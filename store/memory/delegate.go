package memory

import (
	"context"
	"time"

	"github.com/Polvory/Easy-Plan-back/ledger"
)

// Locked delegations. Each public method takes the lock and forwards to the
// unlocked tables; WithTx bypasses these by handing fn the tables directly.

func (m *Store) CreateUser(ctx context.Context, u *ledger.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.CreateUser(ctx, u)
}

func (m *Store) GetUser(ctx context.Context, id int64) (*ledger.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetUser(ctx, id)
}

func (m *Store) GetUserByEmail(ctx context.Context, email string) (*ledger.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetUserByEmail(ctx, email)
}

func (m *Store) SaveUser(ctx context.Context, u *ledger.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.SaveUser(ctx, u)
}

func (m *Store) CreateAccount(ctx context.Context, a *ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.CreateAccount(ctx, a)
}

func (m *Store) GetAccount(ctx context.Context, id int64) (*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetAccount(ctx, id)
}

func (m *Store) SaveAccount(ctx context.Context, a *ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.SaveAccount(ctx, a)
}

func (m *Store) DeleteAccount(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.DeleteAccount(ctx, id)
}

func (m *Store) ListAccounts(ctx context.Context, userID int64) ([]*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.ListAccounts(ctx, userID)
}

func (m *Store) CountAccounts(ctx context.Context, userID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.CountAccounts(ctx, userID)
}

func (m *Store) CreateCategory(ctx context.Context, c *ledger.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.CreateCategory(ctx, c)
}

func (m *Store) GetCategory(ctx context.Context, id int64) (*ledger.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetCategory(ctx, id)
}

func (m *Store) SaveCategory(ctx context.Context, c *ledger.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.SaveCategory(ctx, c)
}

func (m *Store) DeleteCategory(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.DeleteCategory(ctx, id)
}

func (m *Store) ListCategories(ctx context.Context, userID int64) ([]*ledger.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.ListCategories(ctx, userID)
}

func (m *Store) CreateDebt(ctx context.Context, d *ledger.Debt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.CreateDebt(ctx, d)
}

func (m *Store) GetDebt(ctx context.Context, id int64) (*ledger.Debt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetDebt(ctx, id)
}

func (m *Store) SaveDebt(ctx context.Context, d *ledger.Debt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.SaveDebt(ctx, d)
}

func (m *Store) DeleteDebt(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.DeleteDebt(ctx, id)
}

func (m *Store) ListDebts(ctx context.Context, userID int64) ([]*ledger.Debt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.ListDebts(ctx, userID)
}

func (m *Store) CountDebts(ctx context.Context, userID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.CountDebts(ctx, userID)
}

func (m *Store) CreateTarget(ctx context.Context, tg *ledger.Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.CreateTarget(ctx, tg)
}

func (m *Store) GetTarget(ctx context.Context, id int64) (*ledger.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetTarget(ctx, id)
}

func (m *Store) SaveTarget(ctx context.Context, tg *ledger.Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.SaveTarget(ctx, tg)
}

func (m *Store) DeleteTarget(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.DeleteTarget(ctx, id)
}

func (m *Store) ListTargets(ctx context.Context, userID int64) ([]*ledger.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.ListTargets(ctx, userID)
}

func (m *Store) CountTargets(ctx context.Context, userID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.CountTargets(ctx, userID)
}

func (m *Store) CreateLimit(ctx context.Context, l *ledger.Limit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.CreateLimit(ctx, l)
}

func (m *Store) GetLimit(ctx context.Context, id int64) (*ledger.Limit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetLimit(ctx, id)
}

func (m *Store) SaveLimit(ctx context.Context, l *ledger.Limit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.SaveLimit(ctx, l)
}

func (m *Store) DeleteLimit(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.DeleteLimit(ctx, id)
}

func (m *Store) ListLimits(ctx context.Context, userID int64) ([]*ledger.Limit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.ListLimits(ctx, userID)
}

func (m *Store) CountLimits(ctx context.Context, userID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.CountLimits(ctx, userID)
}

func (m *Store) FindLimitByCategory(ctx context.Context, userID, categoryID int64) (*ledger.Limit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.FindLimitByCategory(ctx, userID, categoryID)
}

func (m *Store) ListLimitsDue(ctx context.Context, day time.Time) ([]*ledger.Limit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.ListLimitsDue(ctx, day)
}

func (m *Store) CreateProject(ctx context.Context, p *ledger.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.CreateProject(ctx, p)
}

func (m *Store) GetProject(ctx context.Context, id int64) (*ledger.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetProject(ctx, id)
}

func (m *Store) SaveProject(ctx context.Context, p *ledger.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.SaveProject(ctx, p)
}

func (m *Store) DeleteProject(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.DeleteProject(ctx, id)
}

func (m *Store) ListProjects(ctx context.Context, userID int64) ([]*ledger.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.ListProjects(ctx, userID)
}

func (m *Store) CreateTask(ctx context.Context, tk *ledger.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.CreateTask(ctx, tk)
}

func (m *Store) GetTask(ctx context.Context, id int64) (*ledger.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetTask(ctx, id)
}

func (m *Store) SaveTask(ctx context.Context, tk *ledger.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.SaveTask(ctx, tk)
}

func (m *Store) DeleteTask(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.DeleteTask(ctx, id)
}

func (m *Store) ListTasks(ctx context.Context, projectID int64) ([]*ledger.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.ListTasks(ctx, projectID)
}

func (m *Store) CountTasks(ctx context.Context, userID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.CountTasks(ctx, userID)
}

func (m *Store) InsertTransaction(ctx context.Context, tx *ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.InsertTransaction(ctx, tx)
}

func (m *Store) GetTransaction(ctx context.Context, id int64) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetTransaction(ctx, id)
}

func (m *Store) DeleteTransaction(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.DeleteTransaction(ctx, id)
}

func (m *Store) ListTransactions(ctx context.Context, userID int64, f ledger.TransactionFilter) ([]*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.ListTransactions(ctx, userID, f)
}

func (m *Store) InsertRepeatOperations(ctx context.Context, ops []*ledger.RepeatOperation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.InsertRepeatOperations(ctx, ops)
}

func (m *Store) GetRepeatOperation(ctx context.Context, id int64) (*ledger.RepeatOperation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetRepeatOperation(ctx, id)
}

func (m *Store) DeleteRepeatOperation(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.DeleteRepeatOperation(ctx, id)
}

func (m *Store) ListRepeatOperations(ctx context.Context, userID int64, f ledger.RepeatFilter) ([]*ledger.RepeatOperation, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.ListRepeatOperations(ctx, userID, f)
}

func (m *Store) ListDueRepeatOperations(ctx context.Context, from, to time.Time) ([]*ledger.RepeatOperation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.ListDueRepeatOperations(ctx, from, to)
}

func (m *Store) ClaimRepeatOperation(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.ClaimRepeatOperation(ctx, id)
}

func (m *Store) CreateFeatureLimits(ctx context.Context, fl *ledger.FeatureLimits) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.CreateFeatureLimits(ctx, fl)
}

func (m *Store) GetFeatureLimits(ctx context.Context, userID int64) (*ledger.FeatureLimits, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetFeatureLimits(ctx, userID)
}

func (m *Store) SaveFeatureLimits(ctx context.Context, fl *ledger.FeatureLimits) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.SaveFeatureLimits(ctx, fl)
}

var _ ledger.TxStore = (*Store)(nil)
