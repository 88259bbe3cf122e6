package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Polvory/Easy-Plan-back/ledger"
)

// =============================================================================
// TRANSACTIONS
// =============================================================================

const txCols = `id, user_id, account_id, sum, moded, currency, balance_after, repeat_operation, category_id, debt_id, target_id, limit_id, task_id, idempotency_key, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (*ledger.Transaction, error) {
	var t ledger.Transaction
	var sum, balanceAfter, created, updated string
	var categoryID, debtID, targetID, limitID, taskID sql.NullInt64
	var idemKey sql.NullString
	err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &sum, &t.Direction, &t.Currency,
		&balanceAfter, &t.FromRecurrence, &categoryID, &debtID, &targetID, &limitID,
		&taskID, &idemKey, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	var dc decoder
	t.Amount, t.BalanceAfter = dc.dec(sum), dc.dec(balanceAfter)
	t.CategoryID = fromNullInt64(categoryID)
	t.DebtID = fromNullInt64(debtID)
	t.TargetID = fromNullInt64(targetID)
	t.LimitID = fromNullInt64(limitID)
	t.TaskID = fromNullInt64(taskID)
	t.IdempotencyKey = idemKey.String
	t.OccurredAt, t.UpdatedAt = dc.time(created), dc.time(updated)
	if dc.err != nil {
		return nil, fmt.Errorf("decode transaction: %w", dc.err)
	}
	return &t, nil
}

func (q *queries) InsertTransaction(ctx context.Context, t *ledger.Transaction) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, account_id, sum, moded, currency, balance_after, repeat_operation, category_id, debt_id, target_id, limit_id, task_id, idempotency_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.AccountID, t.Amount.String(), string(t.Direction), string(t.Currency),
		t.BalanceAfter.String(), t.FromRecurrence,
		nullInt64(t.CategoryID), nullInt64(t.DebtID), nullInt64(t.TargetID),
		nullInt64(t.LimitID), nullInt64(t.TaskID), nullString(t.IdempotencyKey),
		fmtTime(t.OccurredAt), fmtTime(t.UpdatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	t.ID, err = lastInsertID(res)
	return err
}

func (q *queries) GetTransaction(ctx context.Context, id int64) (*ledger.Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx,
		`SELECT `+txCols+` FROM transactions WHERE id = ?`, id))
}

func (q *queries) DeleteTransaction(ctx context.Context, id int64) error {
	return q.exec(ctx, "transaction", id, `DELETE FROM transactions WHERE id = ?`, id)
}

func (q *queries) ListTransactions(ctx context.Context, userID int64, f ledger.TransactionFilter) ([]*ledger.Transaction, error) {
	var where []string
	var args []any
	where = append(where, "user_id = ?")
	args = append(args, userID)

	if f.AccountID != nil {
		where = append(where, "account_id = ?")
		args = append(args, *f.AccountID)
	}
	if f.LimitID != nil {
		where = append(where, "limit_id = ?")
		args = append(args, *f.LimitID)
	}
	if f.TargetID != nil {
		where = append(where, "target_id = ?")
		args = append(args, *f.TargetID)
	}
	if f.DebtID != nil {
		where = append(where, "debt_id = ?")
		args = append(args, *f.DebtID)
	}
	if f.Direction != nil {
		where = append(where, "moded = ?")
		args = append(args, string(*f.Direction))
	}
	if f.From != nil {
		where = append(where, "created_at >= ?")
		args = append(args, fmtTime(*f.From))
	}
	if f.To != nil {
		where = append(where, "created_at < ?")
		args = append(args, fmtTime(*f.To))
	}

	order := "DESC"
	if f.Ascending {
		order = "ASC"
	}
	query := `SELECT ` + txCols + ` FROM transactions WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at ` + order + `, id ` + order
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	} else if f.Offset > 0 {
		query += fmt.Sprintf(" LIMIT -1 OFFSET %d", f.Offset)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	var out []*ledger.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// =============================================================================
// REPEAT OPERATIONS
// =============================================================================

const repeatCols = `id, user_id, account_id, balance, moded, name, planned_date, completed, category_id, debt_id, target_id, limit_id, task_id, created_at, updated_at`

func scanRepeat(row interface{ Scan(...any) error }) (*ledger.RepeatOperation, error) {
	var op ledger.RepeatOperation
	var amount, planned, created, updated string
	var categoryID, debtID, targetID, limitID, taskID sql.NullInt64
	err := row.Scan(&op.ID, &op.UserID, &op.AccountID, &amount, &op.Direction, &op.Name,
		&planned, &op.Completed, &categoryID, &debtID, &targetID, &limitID, &taskID,
		&created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("scan repeat operation: %w", err)
	}
	var dc decoder
	op.Amount = dc.dec(amount)
	op.PlannedDate = dc.time(planned)
	op.CategoryID = fromNullInt64(categoryID)
	op.DebtID = fromNullInt64(debtID)
	op.TargetID = fromNullInt64(targetID)
	op.LimitID = fromNullInt64(limitID)
	op.TaskID = fromNullInt64(taskID)
	op.CreatedAt, op.UpdatedAt = dc.time(created), dc.time(updated)
	if dc.err != nil {
		return nil, fmt.Errorf("decode repeat operation: %w", dc.err)
	}
	return &op, nil
}

func (q *queries) InsertRepeatOperations(ctx context.Context, ops []*ledger.RepeatOperation) error {
	for _, op := range ops {
		res, err := q.db.ExecContext(ctx, `
			INSERT INTO repeat_operations (user_id, account_id, balance, moded, name, planned_date, completed, category_id, debt_id, target_id, limit_id, task_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			op.UserID, op.AccountID, op.Amount.String(), string(op.Direction), op.Name,
			fmtTime(op.PlannedDate), op.Completed,
			nullInt64(op.CategoryID), nullInt64(op.DebtID), nullInt64(op.TargetID),
			nullInt64(op.LimitID), nullInt64(op.TaskID),
			fmtTime(op.CreatedAt), fmtTime(op.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert repeat operation: %w", err)
		}
		if op.ID, err = lastInsertID(res); err != nil {
			return err
		}
	}
	return nil
}

func (q *queries) GetRepeatOperation(ctx context.Context, id int64) (*ledger.RepeatOperation, error) {
	return scanRepeat(q.db.QueryRowContext(ctx,
		`SELECT `+repeatCols+` FROM repeat_operations WHERE id = ?`, id))
}

func (q *queries) DeleteRepeatOperation(ctx context.Context, id int64) error {
	return q.exec(ctx, "repeat operation", id, `DELETE FROM repeat_operations WHERE id = ?`, id)
}

func (q *queries) ListRepeatOperations(ctx context.Context, userID int64, f ledger.RepeatFilter) ([]*ledger.RepeatOperation, int, error) {
	var where []string
	var args []any
	where = append(where, "user_id = ?")
	args = append(args, userID)

	if f.From != nil {
		where = append(where, "planned_date >= ?")
		args = append(args, fmtTime(*f.From))
	}
	if f.To != nil {
		where = append(where, "planned_date < ?")
		args = append(args, fmtTime(*f.To))
	}
	if f.Completed != nil {
		where = append(where, "completed = ?")
		args = append(args, *f.Completed)
	}
	cond := strings.Join(where, " AND ")

	total, err := q.count(ctx, `SELECT COUNT(*) FROM repeat_operations WHERE `+cond, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("count repeat operations: %w", err)
	}

	query := `SELECT ` + repeatCols + ` FROM repeat_operations WHERE ` + cond +
		` ORDER BY planned_date ASC, id ASC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	} else if f.Offset > 0 {
		query += fmt.Sprintf(" LIMIT -1 OFFSET %d", f.Offset)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list repeat operations: %w", err)
	}
	defer rows.Close()
	var out []*ledger.RepeatOperation
	for rows.Next() {
		op, err := scanRepeat(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, op)
	}
	return out, total, rows.Err()
}

func (q *queries) ListDueRepeatOperations(ctx context.Context, from, to time.Time) ([]*ledger.RepeatOperation, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+repeatCols+` FROM repeat_operations
		 WHERE planned_date >= ? AND planned_date < ?
		 ORDER BY id ASC`,
		fmtTime(from), fmtTime(to))
	if err != nil {
		return nil, fmt.Errorf("list due repeat operations: %w", err)
	}
	defer rows.Close()
	var out []*ledger.RepeatOperation
	for rows.Next() {
		op, err := scanRepeat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

// ClaimRepeatOperation flips completed 0 -> 1 with a conditional UPDATE; the
// affected-row count decides the race.
func (q *queries) ClaimRepeatOperation(ctx context.Context, id int64) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE repeat_operations SET completed = 1, updated_at = ?
		WHERE id = ? AND completed = 0`,
		fmtTime(time.Now()), id)
	if err != nil {
		return false, fmt.Errorf("claim repeat operation %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim repeat operation %d: %w", id, err)
	}
	if n == 1 {
		return true, nil
	}

	// Nothing updated: either already completed or the row is gone.
	var exists int
	err = q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM repeat_operations WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	if exists == 0 {
		return false, fmt.Errorf("repeat operation %d: %w", id, ledger.ErrNotFound)
	}
	return false, nil
}
