/*
Package recurrence owns repeating financial operations.

PURPOSE:
  A user states an intent once ("5000 income into account A, monthly from
  Jan 1, 3 times"); the engine expands it into dated planned instances,
  posts each one through the ledger Poster exactly once - either when the
  daily sweep finds it due or when the user completes it by hand - and marks
  it completed.

EXACTLY-ONCE:
  Posting and completion-marking happen inside ONE store transaction, and
  the completed flag is claimed with a compare-and-set: whoever flips it
  false->true posts; everyone else skips. The posted transaction also
  carries a per-instance idempotency key backed by a unique index, so even
  a store that lost the claim semantics cannot record a duplicate.

PARTIAL FAILURE:
  The sweep isolates instances: one failing post rolls back only its own
  claim and transaction, is logged, and is retried on the next pass because
  the instance is still uncompleted.

SEE ALSO:
  - expand.go: rule-to-dates expansion
  - ledger/poster.go: the posting leaf operation
*/
package recurrence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Polvory/Easy-Plan-back/ledger"
)

// Definition is a user's intent to repeat a financial event. It is expanded
// at creation time; only the dated instances are persisted.
type Definition struct {
	Amount     decimal.Decimal
	Direction  ledger.Direction
	Name       string
	StartDate  time.Time
	Interval   ledger.Interval
	Count      int
	AccountID  int64
	CategoryID *int64
	DebtID     *int64
	TargetID   *int64
	LimitID    *int64
	TaskID     *int64
}

type Engine struct {
	store  ledger.TxStore
	poster *ledger.Poster
	log    *logrus.Logger
}

func NewEngine(store ledger.TxStore, poster *ledger.Poster, log *logrus.Logger) *Engine {
	return &Engine{store: store, poster: poster, log: log}
}

// CreateDefinition validates the definition's links, expands it into count
// dated instances and persists them as one atomic batch.
func (e *Engine) CreateDefinition(ctx context.Context, caller ledger.Caller, def Definition) ([]*ledger.RepeatOperation, error) {
	if !def.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: sum must be positive, got %s", ledger.ErrInvalidArgument, def.Amount)
	}
	if _, err := ledger.ParseDirection(string(def.Direction)); err != nil {
		return nil, err
	}
	if _, err := e.store.GetUser(ctx, caller.UserID); err != nil {
		return nil, fmt.Errorf("user %d: %w", caller.UserID, err)
	}

	account, err := e.store.GetAccount(ctx, def.AccountID)
	if err != nil || account.UserID != caller.UserID {
		return nil, fmt.Errorf("account %d: %w", def.AccountID, ledger.ErrNotFound)
	}
	if def.CategoryID != nil {
		category, err := e.store.GetCategory(ctx, *def.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("category %d: %w", *def.CategoryID, ledger.ErrNotFound)
		}
		if category.Direction != def.Direction {
			return nil, &ledger.CategoryMismatchError{
				CategoryID: category.ID,
				Category:   category.Direction,
				Requested:  def.Direction,
			}
		}
	}
	if def.DebtID != nil {
		debt, err := e.store.GetDebt(ctx, *def.DebtID)
		if err != nil || debt.UserID != caller.UserID {
			return nil, fmt.Errorf("debt %d: %w", *def.DebtID, ledger.ErrNotFound)
		}
	}
	if def.TargetID != nil {
		target, err := e.store.GetTarget(ctx, *def.TargetID)
		if err != nil || target.UserID != caller.UserID {
			return nil, fmt.Errorf("target %d: %w", *def.TargetID, ledger.ErrNotFound)
		}
	}
	if def.LimitID != nil {
		limit, err := e.store.GetLimit(ctx, *def.LimitID)
		if err != nil || limit.UserID != caller.UserID {
			return nil, fmt.Errorf("limit %d: %w", *def.LimitID, ledger.ErrNotFound)
		}
	}
	if def.TaskID != nil {
		// Tasks carry no user id; ownership goes through the project.
		task, err := e.store.GetTask(ctx, *def.TaskID)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", *def.TaskID, ledger.ErrNotFound)
		}
		project, err := e.store.GetProject(ctx, task.ProjectID)
		if err != nil || project.UserID != caller.UserID {
			return nil, fmt.Errorf("task %d: %w", *def.TaskID, ledger.ErrNotFound)
		}
	}

	dates, err := ExpandDates(def.StartDate, def.Interval, def.Count)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ops := make([]*ledger.RepeatOperation, 0, len(dates))
	for _, d := range dates {
		ops = append(ops, &ledger.RepeatOperation{
			UserID:      caller.UserID,
			AccountID:   def.AccountID,
			Amount:      def.Amount,
			Direction:   def.Direction,
			Name:        def.Name,
			PlannedDate: d,
			CategoryID:  def.CategoryID,
			DebtID:      def.DebtID,
			TargetID:    def.TargetID,
			LimitID:     def.LimitID,
			TaskID:      def.TaskID,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	// Single atomic batch: either every occurrence exists or none do.
	err = e.store.WithTx(ctx, func(s ledger.Store) error {
		return s.InsertRepeatOperations(ctx, ops)
	})
	if err != nil {
		return nil, fmt.Errorf("create repeat operations: %w", err)
	}

	e.log.WithFields(logrus.Fields{
		"user_id":  caller.UserID,
		"interval": def.Interval,
		"count":    len(ops),
		"first":    ops[0].PlannedDate.Format("2006-01-02"),
	}).Info("repeat operations created")
	return ops, nil
}

// CompleteInstance posts one planned instance now, on the user's request.
// Fails with ErrConflict if the instance was already completed; the failed
// call creates no transaction.
func (e *Engine) CompleteInstance(ctx context.Context, caller ledger.Caller, id int64) (*ledger.RepeatOperation, error) {
	op, err := e.store.GetRepeatOperation(ctx, id)
	if err != nil || op.UserID != caller.UserID {
		return nil, fmt.Errorf("repeat operation %d: %w", id, ledger.ErrNotFound)
	}
	if op.Completed {
		return nil, fmt.Errorf("repeat operation %d already completed: %w", id, ledger.ErrConflict)
	}

	claimed, err := e.postInstance(ctx, op, caller)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, fmt.Errorf("repeat operation %d already completed: %w", id, ledger.ErrConflict)
	}
	op.Completed = true
	op.UpdatedAt = time.Now().UTC()
	return op, nil
}

// Sweep finds every instance planned for today (UTC) and posts each
// uncompleted one exactly once. Returns true if at least one instance was
// processed. A failing instance is logged and left uncompleted for the next
// pass; it never blocks the rest of the batch.
func (e *Engine) Sweep(ctx context.Context) (bool, error) {
	runID := uuid.NewString()
	from, to := ledger.DayWindowUTC(time.Now())
	due, err := e.store.ListDueRepeatOperations(ctx, from, to)
	if err != nil {
		return false, fmt.Errorf("list due repeat operations: %w", err)
	}
	if len(due) == 0 {
		e.log.WithField("run_id", runID).Debug("sweep: nothing due today")
		return false, nil
	}

	processed := 0
	for _, op := range due {
		if op.Completed {
			e.log.WithField("repeat_id", op.ID).Debug("sweep: already completed, skipping")
			continue
		}
		caller := ledger.SystemCaller(op.UserID)
		claimed, err := e.postInstance(ctx, op, caller)
		if err != nil {
			e.log.WithFields(logrus.Fields{
				"run_id":    runID,
				"repeat_id": op.ID,
				"user_id":   op.UserID,
			}).WithError(err).Error("sweep: posting failed, will retry next pass")
			continue
		}
		if !claimed {
			continue
		}
		processed++
	}

	e.log.WithFields(logrus.Fields{
		"run_id":    runID,
		"due":       len(due),
		"processed": processed,
	}).Info("sweep finished")
	return processed > 0, nil
}

// postInstance claims the instance and posts its transaction in one store
// transaction. The claim is a compare-and-set on the completed flag: losing
// it means another run already posted this instance.
func (e *Engine) postInstance(ctx context.Context, op *ledger.RepeatOperation, caller ledger.Caller) (bool, error) {
	won := false
	err := e.store.WithTx(ctx, func(s ledger.Store) error {
		claimed, err := s.ClaimRepeatOperation(ctx, op.ID)
		if err != nil {
			return fmt.Errorf("claim repeat operation %d: %w", op.ID, err)
		}
		if !claimed {
			return nil
		}
		won = true
		_, err = e.poster.PostIn(ctx, s, caller, ledger.PostRequest{
			Amount:         op.Amount,
			Direction:      op.Direction,
			AccountID:      op.AccountID,
			CategoryID:     op.CategoryID,
			DebtID:         op.DebtID,
			TargetID:       op.TargetID,
			TaskID:         op.TaskID,
			FromRecurrence: true,
			IdempotencyKey: fmt.Sprintf("repeat-op-%d", op.ID),
		})
		return err
	})
	if err != nil {
		return false, err
	}
	return won, nil
}

// List returns the caller's planned instances, oldest first, with the total
// matching count for pagination.
func (e *Engine) List(ctx context.Context, caller ledger.Caller, f ledger.RepeatFilter) ([]*ledger.RepeatOperation, int, error) {
	return e.store.ListRepeatOperations(ctx, caller.UserID, f)
}

// DeleteInstance removes one planned instance. Transactions already posted
// from it are untouched.
func (e *Engine) DeleteInstance(ctx context.Context, caller ledger.Caller, id int64) error {
	op, err := e.store.GetRepeatOperation(ctx, id)
	if err != nil || op.UserID != caller.UserID {
		return fmt.Errorf("repeat operation %d: %w", id, ledger.ErrNotFound)
	}
	return e.store.DeleteRepeatOperation(ctx, id)
}
