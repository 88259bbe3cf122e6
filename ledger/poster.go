/*
poster.go - Transaction posting

PURPOSE:
  The Poster applies one financial event to the ledger: it adjusts the
  account balance, optionally a debt, a category limit and a savings target,
  and appends an immutable Transaction snapshot - all inside one store
  transaction. It is the leaf operation the recurrence engine calls for
  every due instance.

SIDE EFFECT RULES:
  Account:  balance -= amount on expense, += on income. Always.
  Debt:     only income postings tied to a debt reduce its balance, floored
            at zero; reaching zero marks the debt completed. Expense
            postings against a debt leave it untouched (only repayments
            count).
  Limit:    a limit matching (category, user) gets current_spent += amount
            for BOTH directions. Soft cap: exceeding balance is logged.
  Target:   a target owned by the caller accumulates the amount; reaching
            balance_target marks it completed.

DELETE:
  Deleting a transaction reverses the account balance adjustment and removes
  the row. Debt/limit/target side effects of the original post are NOT
  reversed; that matches the system this ledger stays compatible with.

FAILURE:
  Any step failing rolls back the entire unit. No partial balance mutation
  is ever observable.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PostRequest describes one financial event to record.
type PostRequest struct {
	Amount         decimal.Decimal
	Direction      Direction
	AccountID      int64
	CategoryID     *int64
	DebtID         *int64
	TargetID       *int64
	TaskID         *int64
	OccurredAt     *time.Time // nil = now; callers may backdate
	FromRecurrence bool
	IdempotencyKey string
}

// Poster turns financial events into permanent Transactions.
type Poster struct {
	store TxStore
	log   *logrus.Logger
}

func NewPoster(store TxStore, log *logrus.Logger) *Poster {
	return &Poster{store: store, log: log}
}

// Post records one event inside a single store transaction.
func (p *Poster) Post(ctx context.Context, caller Caller, req PostRequest) (*Transaction, error) {
	var created *Transaction
	err := p.store.WithTx(ctx, func(s Store) error {
		tx, err := p.PostIn(ctx, s, caller, req)
		if err != nil {
			return err
		}
		created = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// PostIn records one event against an already-open transactional store view.
// The recurrence engine uses it to claim an instance and post its
// transaction in the same unit of work.
func (p *Poster) PostIn(ctx context.Context, s Store, caller Caller, req PostRequest) (*Transaction, error) {
	// All validation happens before the first mutation.
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: sum must be positive, got %s", ErrInvalidArgument, req.Amount)
	}
	if _, err := ParseDirection(string(req.Direction)); err != nil {
		return nil, err
	}
	if _, err := s.GetUser(ctx, caller.UserID); err != nil {
		return nil, fmt.Errorf("user %d: %w", caller.UserID, err)
	}

	account, err := s.GetAccount(ctx, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("account %d: %w", req.AccountID, err)
	}
	if account.UserID != caller.UserID {
		return nil, fmt.Errorf("account %d: %w", req.AccountID, ErrNotFound)
	}

	var debt *Debt
	if req.DebtID != nil {
		debt, err = s.GetDebt(ctx, *req.DebtID)
		if err != nil || debt.UserID != caller.UserID {
			return nil, fmt.Errorf("debt %d: %w", *req.DebtID, ErrNotFound)
		}
	}

	// A stale category reference is tolerated: the transaction posts without
	// a category. A live category with the wrong direction is not.
	var category *Category
	if req.CategoryID != nil {
		category, err = s.GetCategory(ctx, *req.CategoryID)
		if IsNotFound(err) {
			p.log.WithFields(logrus.Fields{
				"category_id": *req.CategoryID,
				"user_id":     caller.UserID,
			}).Warn("category missing, posting without it")
			category = nil
		} else if err != nil {
			return nil, err
		} else if category.Direction != req.Direction {
			return nil, &CategoryMismatchError{
				CategoryID: category.ID,
				Category:   category.Direction,
				Requested:  req.Direction,
			}
		}
	}

	// 1. Account balance.
	switch req.Direction {
	case Expense:
		account.Balance = account.Balance.Sub(req.Amount)
	case Income:
		account.Balance = account.Balance.Add(req.Amount)
	}
	if err := s.SaveAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("adjust account balance: %w", err)
	}

	// 2. Debt repayment. Income only; floor at zero.
	if debt != nil && req.Direction == Income && debt.Balance.IsPositive() {
		debt.Balance = debt.Balance.Sub(req.Amount)
		if !debt.Balance.IsPositive() {
			debt.Balance = decimal.Zero
			debt.Completed = true
			p.log.WithField("debt_id", debt.ID).Info("debt fully repaid")
		}
		if err := s.SaveDebt(ctx, debt); err != nil {
			return nil, fmt.Errorf("adjust debt balance: %w", err)
		}
	}

	// 3. Category limit counter.
	var limit *Limit
	if category != nil {
		limit, err = s.FindLimitByCategory(ctx, caller.UserID, category.ID)
		if err != nil && !IsNotFound(err) {
			return nil, err
		}
		if limit != nil {
			limit.CurrentSpent = limit.CurrentSpent.Add(req.Amount)
			if limit.CurrentSpent.GreaterThan(limit.Balance) {
				p.log.WithFields(logrus.Fields{
					"limit_id": limit.ID,
					"spent":    limit.CurrentSpent,
					"cap":      limit.Balance,
				}).Warn("limit exceeded")
			}
			if err := s.SaveLimit(ctx, limit); err != nil {
				return nil, fmt.Errorf("adjust limit: %w", err)
			}
		}
	}

	// 4. Savings target.
	var target *Target
	if req.TargetID != nil {
		target, err = s.GetTarget(ctx, *req.TargetID)
		if IsNotFound(err) || (err == nil && target.UserID != caller.UserID) {
			target = nil
		} else if err != nil {
			return nil, err
		}
		if target != nil {
			target.Balance = target.Balance.Add(req.Amount)
			if target.Balance.GreaterThanOrEqual(target.BalanceTarget) {
				target.Completed = true
				p.log.WithField("target_id", target.ID).Info("target reached")
			}
			if err := s.SaveTarget(ctx, target); err != nil {
				return nil, fmt.Errorf("adjust target: %w", err)
			}
		}
	}

	// 5. Immutable snapshot row.
	occurred := time.Now().UTC()
	if req.OccurredAt != nil {
		occurred = req.OccurredAt.UTC()
	}
	tx := &Transaction{
		UserID:         caller.UserID,
		AccountID:      account.ID,
		Amount:         req.Amount,
		Direction:      req.Direction,
		Currency:       account.Currency,
		BalanceAfter:   account.Balance,
		FromRecurrence: req.FromRecurrence,
		DebtID:         req.DebtID,
		TaskID:         req.TaskID,
		IdempotencyKey: req.IdempotencyKey,
		OccurredAt:     occurred,
		UpdatedAt:      occurred,
	}
	if category != nil {
		tx.CategoryID = &category.ID
	}
	if limit != nil {
		tx.LimitID = &limit.ID
	}
	if target != nil {
		tx.TargetID = &target.ID
	}
	if err := s.InsertTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	tx.Category = category
	tx.Limit = limit
	p.log.WithFields(logrus.Fields{
		"transaction_id": tx.ID,
		"user_id":        tx.UserID,
		"account_id":     tx.AccountID,
		"moded":          tx.Direction,
		"sum":            tx.Amount,
	}).Info("transaction posted")
	return tx, nil
}

// Delete removes a transaction and restores the account balance it moved.
// Debt, limit and target side effects of the original post stay applied.
// Another user's transaction reads as absent, same as every other lookup.
func (p *Poster) Delete(ctx context.Context, caller Caller, txID int64) error {
	return p.store.WithTx(ctx, func(s Store) error {
		tx, err := s.GetTransaction(ctx, txID)
		if err != nil {
			return fmt.Errorf("transaction %d: %w", txID, err)
		}
		if tx.UserID != caller.UserID {
			return fmt.Errorf("transaction %d: %w", txID, ErrNotFound)
		}

		account, err := s.GetAccount(ctx, tx.AccountID)
		if err != nil {
			return fmt.Errorf("account %d: %w", tx.AccountID, err)
		}
		switch tx.Direction {
		case Expense:
			account.Balance = account.Balance.Add(tx.Amount)
		case Income:
			account.Balance = account.Balance.Sub(tx.Amount)
		}
		if err := s.SaveAccount(ctx, account); err != nil {
			return fmt.Errorf("restore account balance: %w", err)
		}
		if err := s.DeleteTransaction(ctx, tx.ID); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		p.log.WithFields(logrus.Fields{
			"transaction_id": tx.ID,
			"user_id":        caller.UserID,
		}).Info("transaction deleted, balance restored")
		return nil
	})
}

// ResetDueLimits zeroes current_spent on every limit whose reset date is the
// given day and advances the reset date one calendar month. Returns true if
// at least one limit was reset. Driven by the scheduler.
func (p *Poster) ResetDueLimits(ctx context.Context, day time.Time) (bool, error) {
	reset := 0
	err := p.store.WithTx(ctx, func(s Store) error {
		due, err := s.ListLimitsDue(ctx, DateOnly(day))
		if err != nil {
			return err
		}
		for _, l := range due {
			l.CurrentSpent = decimal.Zero
			l.DateUpdate = AddCalendarMonths(l.DateUpdate, 1)
			if err := s.SaveLimit(ctx, l); err != nil {
				return fmt.Errorf("reset limit %d: %w", l.ID, err)
			}
			reset++
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if reset > 0 {
		p.log.WithField("count", reset).Info("limits reset")
	}
	return reset > 0, nil
}
