package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Polvory/Easy-Plan-back/ledger"
)

// =============================================================================
// USERS
// =============================================================================

func (q *queries) CreateUser(ctx context.Context, u *ledger.User) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, premium, premium_type, timezone, role, language, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Email, u.PasswordHash, u.Premium, u.PremiumType, u.Timezone,
		string(u.Role), string(u.Language), fmtTime(u.CreatedAt), fmtTime(u.UpdatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("email %s: %w", u.Email, ledger.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = lastInsertID(res)
	return err
}

const userCols = `id, email, password_hash, premium, premium_type, timezone, role, language, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*ledger.User, error) {
	var u ledger.User
	var created, updated string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Premium, &u.PremiumType,
		&u.Timezone, &u.Role, &u.Language, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	var dc decoder
	u.CreatedAt, u.UpdatedAt = dc.time(created), dc.time(updated)
	if dc.err != nil {
		return nil, fmt.Errorf("decode user: %w", dc.err)
	}
	return &u, nil
}

func (q *queries) GetUser(ctx context.Context, id int64) (*ledger.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id))
}

func (q *queries) GetUserByEmail(ctx context.Context, email string) (*ledger.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email = ?`, email))
}

func (q *queries) SaveUser(ctx context.Context, u *ledger.User) error {
	return q.exec(ctx, "user", u.ID, `
		UPDATE users SET email = ?, password_hash = ?, premium = ?, premium_type = ?,
			timezone = ?, role = ?, language = ?, updated_at = ?
		WHERE id = ?`,
		u.Email, u.PasswordHash, u.Premium, u.PremiumType, u.Timezone,
		string(u.Role), string(u.Language), fmtTime(u.UpdatedAt), u.ID)
}

// exec runs a single-row UPDATE/DELETE, maps zero affected rows to
// ErrNotFound and a foreign key violation to ErrConflict.
func (q *queries) exec(ctx context.Context, what string, id int64, query string, args ...any) error {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isForeignKeyConstraintError(err) {
			return fmt.Errorf("%s %d still referenced: %w", what, id, ledger.ErrConflict)
		}
		return fmt.Errorf("%s %d: %w", what, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ledger.ErrNotFound)
	}
	return nil
}

func (q *queries) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// =============================================================================
// ACCOUNTS
// =============================================================================

const accountCols = `id, user_id, name, currency, balance, archive, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*ledger.Account, error) {
	var a ledger.Account
	var balance, created, updated string
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Currency, &balance, &a.Archived, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	var dc decoder
	a.Balance = dc.dec(balance)
	a.CreatedAt, a.UpdatedAt = dc.time(created), dc.time(updated)
	if dc.err != nil {
		return nil, fmt.Errorf("decode account: %w", dc.err)
	}
	return &a, nil
}

func (q *queries) CreateAccount(ctx context.Context, a *ledger.Account) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO accounts (user_id, name, currency, balance, archive, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.Name, string(a.Currency), a.Balance.String(), a.Archived,
		fmtTime(a.CreatedAt), fmtTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	a.ID, err = lastInsertID(res)
	return err
}

func (q *queries) GetAccount(ctx context.Context, id int64) (*ledger.Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, `SELECT `+accountCols+` FROM accounts WHERE id = ?`, id))
}

func (q *queries) SaveAccount(ctx context.Context, a *ledger.Account) error {
	return q.exec(ctx, "account", a.ID, `
		UPDATE accounts SET name = ?, currency = ?, balance = ?, archive = ?, updated_at = ?
		WHERE id = ?`,
		a.Name, string(a.Currency), a.Balance.String(), a.Archived, fmtTime(time.Now()), a.ID)
}

func (q *queries) DeleteAccount(ctx context.Context, id int64) error {
	return q.exec(ctx, "account", id, `DELETE FROM accounts WHERE id = ?`, id)
}

func (q *queries) ListAccounts(ctx context.Context, userID int64) ([]*ledger.Account, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()
	var out []*ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q *queries) CountAccounts(ctx context.Context, userID int64) (int, error) {
	return q.count(ctx, `SELECT COUNT(*) FROM accounts WHERE user_id = ?`, userID)
}

// =============================================================================
// CATEGORIES
// =============================================================================

const categoryCols = `id, user_id, name, icon, color, svg, kind, moded, created_at, updated_at`

func scanCategory(row interface{ Scan(...any) error }) (*ledger.Category, error) {
	var c ledger.Category
	var created, updated string
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Icon, &c.Color, &c.SVG, &c.Kind, &c.Direction, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("scan category: %w", err)
	}
	var dc decoder
	c.CreatedAt, c.UpdatedAt = dc.time(created), dc.time(updated)
	if dc.err != nil {
		return nil, fmt.Errorf("decode category: %w", dc.err)
	}
	return &c, nil
}

func (q *queries) CreateCategory(ctx context.Context, c *ledger.Category) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO categories (user_id, name, icon, color, svg, kind, moded, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Name, c.Icon, c.Color, c.SVG, c.Kind, string(c.Direction),
		fmtTime(c.CreatedAt), fmtTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	c.ID, err = lastInsertID(res)
	return err
}

func (q *queries) GetCategory(ctx context.Context, id int64) (*ledger.Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, `SELECT `+categoryCols+` FROM categories WHERE id = ?`, id))
}

func (q *queries) SaveCategory(ctx context.Context, c *ledger.Category) error {
	return q.exec(ctx, "category", c.ID, `
		UPDATE categories SET name = ?, icon = ?, color = ?, svg = ?, kind = ?, moded = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.Icon, c.Color, c.SVG, c.Kind, string(c.Direction), fmtTime(time.Now()), c.ID)
}

func (q *queries) DeleteCategory(ctx context.Context, id int64) error {
	return q.exec(ctx, "category", id, `DELETE FROM categories WHERE id = ?`, id)
}

func (q *queries) ListCategories(ctx context.Context, userID int64) ([]*ledger.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+categoryCols+` FROM categories WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	var out []*ledger.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// =============================================================================
// DEBTS
// =============================================================================

const debtCols = `id, user_id, account_id, name, who_gave, comments, svg, date_take, date_end, balance, completed, created_at, updated_at`

func scanDebt(row interface{ Scan(...any) error }) (*ledger.Debt, error) {
	var d ledger.Debt
	var taken, end, balance, created, updated string
	err := row.Scan(&d.ID, &d.UserID, &d.AccountID, &d.Name, &d.WhoGave, &d.Comments, &d.SVG,
		&taken, &end, &balance, &d.Completed, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("scan debt: %w", err)
	}
	var dc decoder
	d.DateTaken, d.DateEnd = dc.time(taken), dc.time(end)
	d.Balance = dc.dec(balance)
	d.CreatedAt, d.UpdatedAt = dc.time(created), dc.time(updated)
	if dc.err != nil {
		return nil, fmt.Errorf("decode debt: %w", dc.err)
	}
	return &d, nil
}

func (q *queries) CreateDebt(ctx context.Context, d *ledger.Debt) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO debts (user_id, account_id, name, who_gave, comments, svg, date_take, date_end, balance, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.UserID, d.AccountID, d.Name, d.WhoGave, d.Comments, d.SVG,
		fmtTime(d.DateTaken), fmtTime(d.DateEnd), d.Balance.String(), d.Completed,
		fmtTime(d.CreatedAt), fmtTime(d.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert debt: %w", err)
	}
	d.ID, err = lastInsertID(res)
	return err
}

func (q *queries) GetDebt(ctx context.Context, id int64) (*ledger.Debt, error) {
	return scanDebt(q.db.QueryRowContext(ctx, `SELECT `+debtCols+` FROM debts WHERE id = ?`, id))
}

func (q *queries) SaveDebt(ctx context.Context, d *ledger.Debt) error {
	return q.exec(ctx, "debt", d.ID, `
		UPDATE debts SET name = ?, who_gave = ?, comments = ?, svg = ?, date_take = ?, date_end = ?,
			balance = ?, completed = ?, updated_at = ?
		WHERE id = ?`,
		d.Name, d.WhoGave, d.Comments, d.SVG, fmtTime(d.DateTaken), fmtTime(d.DateEnd),
		d.Balance.String(), d.Completed, fmtTime(time.Now()), d.ID)
}

func (q *queries) DeleteDebt(ctx context.Context, id int64) error {
	return q.exec(ctx, "debt", id, `DELETE FROM debts WHERE id = ?`, id)
}

func (q *queries) ListDebts(ctx context.Context, userID int64) ([]*ledger.Debt, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+debtCols+` FROM debts WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	defer rows.Close()
	var out []*ledger.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (q *queries) CountDebts(ctx context.Context, userID int64) (int, error) {
	return q.count(ctx, `SELECT COUNT(*) FROM debts WHERE user_id = ?`, userID)
}

// =============================================================================
// TARGETS
// =============================================================================

const targetCols = `id, user_id, account_id, name, balance, balance_target, date_end, completed, svg, icon, created_at, updated_at`

func scanTarget(row interface{ Scan(...any) error }) (*ledger.Target, error) {
	var t ledger.Target
	var balance, balanceTarget, end, created, updated string
	err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &t.Name, &balance, &balanceTarget,
		&end, &t.Completed, &t.SVG, &t.Icon, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("scan target: %w", err)
	}
	var dc decoder
	t.Balance, t.BalanceTarget = dc.dec(balance), dc.dec(balanceTarget)
	t.DateEnd = dc.time(end)
	t.CreatedAt, t.UpdatedAt = dc.time(created), dc.time(updated)
	if dc.err != nil {
		return nil, fmt.Errorf("decode target: %w", dc.err)
	}
	return &t, nil
}

func (q *queries) CreateTarget(ctx context.Context, t *ledger.Target) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO targets (user_id, account_id, name, balance, balance_target, date_end, completed, svg, icon, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.AccountID, t.Name, t.Balance.String(), t.BalanceTarget.String(),
		fmtTime(t.DateEnd), t.Completed, t.SVG, t.Icon, fmtTime(t.CreatedAt), fmtTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert target: %w", err)
	}
	t.ID, err = lastInsertID(res)
	return err
}

func (q *queries) GetTarget(ctx context.Context, id int64) (*ledger.Target, error) {
	return scanTarget(q.db.QueryRowContext(ctx, `SELECT `+targetCols+` FROM targets WHERE id = ?`, id))
}

func (q *queries) SaveTarget(ctx context.Context, t *ledger.Target) error {
	return q.exec(ctx, "target", t.ID, `
		UPDATE targets SET name = ?, balance = ?, balance_target = ?, date_end = ?,
			completed = ?, svg = ?, icon = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.Balance.String(), t.BalanceTarget.String(), fmtTime(t.DateEnd),
		t.Completed, t.SVG, t.Icon, fmtTime(time.Now()), t.ID)
}

func (q *queries) DeleteTarget(ctx context.Context, id int64) error {
	return q.exec(ctx, "target", id, `DELETE FROM targets WHERE id = ?`, id)
}

func (q *queries) ListTargets(ctx context.Context, userID int64) ([]*ledger.Target, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+targetCols+` FROM targets WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()
	var out []*ledger.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *queries) CountTargets(ctx context.Context, userID int64) (int, error) {
	return q.count(ctx, `SELECT COUNT(*) FROM targets WHERE user_id = ?`, userID)
}

// =============================================================================
// LIMITS
// =============================================================================

const limitCols = `id, user_id, category_id, balance, current_spent, date_update, created_at, updated_at`

func scanLimit(row interface{ Scan(...any) error }) (*ledger.Limit, error) {
	var l ledger.Limit
	var categoryID sql.NullInt64
	var balance, spent, dateUpdate, created, updated string
	err := row.Scan(&l.ID, &l.UserID, &categoryID, &balance, &spent, &dateUpdate, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("scan limit: %w", err)
	}
	l.CategoryID = fromNullInt64(categoryID)
	var dc decoder
	l.Balance, l.CurrentSpent = dc.dec(balance), dc.dec(spent)
	l.DateUpdate = dc.time(dateUpdate)
	l.CreatedAt, l.UpdatedAt = dc.time(created), dc.time(updated)
	if dc.err != nil {
		return nil, fmt.Errorf("decode limit: %w", dc.err)
	}
	return &l, nil
}

func (q *queries) CreateLimit(ctx context.Context, l *ledger.Limit) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO limits (user_id, category_id, balance, current_spent, date_update, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.UserID, nullInt64(l.CategoryID), l.Balance.String(), l.CurrentSpent.String(),
		fmtTime(l.DateUpdate), fmtTime(l.CreatedAt), fmtTime(l.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert limit: %w", err)
	}
	l.ID, err = lastInsertID(res)
	return err
}

func (q *queries) GetLimit(ctx context.Context, id int64) (*ledger.Limit, error) {
	return scanLimit(q.db.QueryRowContext(ctx, `SELECT `+limitCols+` FROM limits WHERE id = ?`, id))
}

func (q *queries) SaveLimit(ctx context.Context, l *ledger.Limit) error {
	return q.exec(ctx, "limit", l.ID, `
		UPDATE limits SET category_id = ?, balance = ?, current_spent = ?, date_update = ?, updated_at = ?
		WHERE id = ?`,
		nullInt64(l.CategoryID), l.Balance.String(), l.CurrentSpent.String(),
		fmtTime(l.DateUpdate), fmtTime(time.Now()), l.ID)
}

func (q *queries) DeleteLimit(ctx context.Context, id int64) error {
	return q.exec(ctx, "limit", id, `DELETE FROM limits WHERE id = ?`, id)
}

func (q *queries) ListLimits(ctx context.Context, userID int64) ([]*ledger.Limit, error) {
	return q.queryLimits(ctx, `SELECT `+limitCols+` FROM limits WHERE user_id = ? ORDER BY id`, userID)
}

func (q *queries) CountLimits(ctx context.Context, userID int64) (int, error) {
	return q.count(ctx, `SELECT COUNT(*) FROM limits WHERE user_id = ?`, userID)
}

func (q *queries) FindLimitByCategory(ctx context.Context, userID, categoryID int64) (*ledger.Limit, error) {
	return scanLimit(q.db.QueryRowContext(ctx,
		`SELECT `+limitCols+` FROM limits WHERE user_id = ? AND category_id = ? LIMIT 1`,
		userID, categoryID))
}

func (q *queries) ListLimitsDue(ctx context.Context, day time.Time) ([]*ledger.Limit, error) {
	return q.queryLimits(ctx,
		`SELECT `+limitCols+` FROM limits WHERE DATE(date_update) = ? ORDER BY id`,
		day.UTC().Format("2006-01-02"))
}

func (q *queries) queryLimits(ctx context.Context, query string, args ...any) ([]*ledger.Limit, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query limits: %w", err)
	}
	defer rows.Close()
	var out []*ledger.Limit
	for rows.Next() {
		l, err := scanLimit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// =============================================================================
// PROJECTS AND TASKS
// =============================================================================

const projectCols = `id, user_id, name, color, completed, progress, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (*ledger.Project, error) {
	var p ledger.Project
	var created, updated string
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Color, &p.Completed, &p.Progress, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}
	var dc decoder
	p.CreatedAt, p.UpdatedAt = dc.time(created), dc.time(updated)
	if dc.err != nil {
		return nil, fmt.Errorf("decode project: %w", dc.err)
	}
	return &p, nil
}

func (q *queries) CreateProject(ctx context.Context, p *ledger.Project) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO projects (user_id, name, color, completed, progress, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.Name, p.Color, p.Completed, p.Progress, fmtTime(p.CreatedAt), fmtTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	p.ID, err = lastInsertID(res)
	return err
}

func (q *queries) GetProject(ctx context.Context, id int64) (*ledger.Project, error) {
	return scanProject(q.db.QueryRowContext(ctx, `SELECT `+projectCols+` FROM projects WHERE id = ?`, id))
}

func (q *queries) SaveProject(ctx context.Context, p *ledger.Project) error {
	return q.exec(ctx, "project", p.ID, `
		UPDATE projects SET name = ?, color = ?, completed = ?, progress = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Color, p.Completed, p.Progress, fmtTime(time.Now()), p.ID)
}

func (q *queries) DeleteProject(ctx context.Context, id int64) error {
	return q.exec(ctx, "project", id, `DELETE FROM projects WHERE id = ?`, id)
}

func (q *queries) ListProjects(ctx context.Context, userID int64) ([]*ledger.Project, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+projectCols+` FROM projects WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()
	var out []*ledger.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const taskCols = `id, project_id, account_id, name, date_end, sum, comments, moded, completed, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (*ledger.Task, error) {
	var t ledger.Task
	var accountID sql.NullInt64
	var end, sum, created, updated string
	err := row.Scan(&t.ID, &t.ProjectID, &accountID, &t.Name, &end, &sum,
		&t.Comments, &t.Direction, &t.Completed, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	t.AccountID = fromNullInt64(accountID)
	var dc decoder
	t.DateEnd = dc.time(end)
	t.Sum = dc.dec(sum)
	t.CreatedAt, t.UpdatedAt = dc.time(created), dc.time(updated)
	if dc.err != nil {
		return nil, fmt.Errorf("decode task: %w", dc.err)
	}
	return &t, nil
}

func (q *queries) CreateTask(ctx context.Context, t *ledger.Task) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO tasks (project_id, account_id, name, date_end, sum, comments, moded, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ProjectID, nullInt64(t.AccountID), t.Name, fmtTime(t.DateEnd), t.Sum.String(),
		t.Comments, string(t.Direction), t.Completed, fmtTime(t.CreatedAt), fmtTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	t.ID, err = lastInsertID(res)
	return err
}

func (q *queries) GetTask(ctx context.Context, id int64) (*ledger.Task, error) {
	return scanTask(q.db.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE id = ?`, id))
}

func (q *queries) SaveTask(ctx context.Context, t *ledger.Task) error {
	return q.exec(ctx, "task", t.ID, `
		UPDATE tasks SET account_id = ?, name = ?, date_end = ?, sum = ?, comments = ?,
			moded = ?, completed = ?, updated_at = ?
		WHERE id = ?`,
		nullInt64(t.AccountID), t.Name, fmtTime(t.DateEnd), t.Sum.String(),
		t.Comments, string(t.Direction), t.Completed, fmtTime(time.Now()), t.ID)
}

func (q *queries) DeleteTask(ctx context.Context, id int64) error {
	return q.exec(ctx, "task", id, `DELETE FROM tasks WHERE id = ?`, id)
}

func (q *queries) ListTasks(ctx context.Context, projectID int64) ([]*ledger.Task, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	var out []*ledger.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *queries) CountTasks(ctx context.Context, userID int64) (int, error) {
	return q.count(ctx, `
		SELECT COUNT(*) FROM tasks t
		JOIN projects p ON p.id = t.project_id
		WHERE p.user_id = ?`, userID)
}

// =============================================================================
// FEATURE LIMITS
// =============================================================================

const featureCols = `id, user_id, subscription_type, account_management, goals, tasks, limits, debts, open_ai_balance, open_ai_tasks, created_at, updated_at`

func scanFeatureLimits(row interface{ Scan(...any) error }) (*ledger.FeatureLimits, error) {
	var fl ledger.FeatureLimits
	var created, updated string
	err := row.Scan(&fl.ID, &fl.UserID, &fl.SubscriptionType, &fl.Accounts, &fl.Goals,
		&fl.Tasks, &fl.Limits, &fl.Debts, &fl.AIBalance, &fl.AITasks, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("scan feature limits: %w", err)
	}
	var dc decoder
	fl.CreatedAt, fl.UpdatedAt = dc.time(created), dc.time(updated)
	if dc.err != nil {
		return nil, fmt.Errorf("decode feature limits: %w", dc.err)
	}
	return &fl, nil
}

func (q *queries) CreateFeatureLimits(ctx context.Context, fl *ledger.FeatureLimits) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO feature_limits (user_id, subscription_type, account_management, goals, tasks, limits, debts, open_ai_balance, open_ai_tasks, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fl.UserID, fl.SubscriptionType, fl.Accounts, fl.Goals, fl.Tasks, fl.Limits,
		fl.Debts, fl.AIBalance, fl.AITasks, fmtTime(fl.CreatedAt), fmtTime(fl.UpdatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("feature limits for user %d: %w", fl.UserID, ledger.ErrConflict)
		}
		return fmt.Errorf("insert feature limits: %w", err)
	}
	fl.ID, err = lastInsertID(res)
	return err
}

func (q *queries) GetFeatureLimits(ctx context.Context, userID int64) (*ledger.FeatureLimits, error) {
	return scanFeatureLimits(q.db.QueryRowContext(ctx,
		`SELECT `+featureCols+` FROM feature_limits WHERE user_id = ?`, userID))
}

func (q *queries) SaveFeatureLimits(ctx context.Context, fl *ledger.FeatureLimits) error {
	return q.exec(ctx, "feature limits", fl.UserID, `
		UPDATE feature_limits SET subscription_type = ?, account_management = ?, goals = ?,
			tasks = ?, limits = ?, debts = ?, open_ai_balance = ?, open_ai_tasks = ?, updated_at = ?
		WHERE user_id = ?`,
		fl.SubscriptionType, fl.Accounts, fl.Goals, fl.Tasks, fl.Limits, fl.Debts,
		fl.AIBalance, fl.AITasks, fmtTime(fl.UpdatedAt), fl.UserID)
}
