/*
Package quota enforces per-user subscription feature limits.

The gate is consulted before creating accounts, goals, debts, budget limits
and tasks, and before AI calls. Quotas live in one row per user
(ledger.FeatureLimits); entity features compare a count against the cap, AI
features are countdown counters decremented on use.

Feature dimensions are an enumerated type with an explicit switch - never a
reflective attribute lookup - so a new dimension that is not wired into the
switch fails loudly at compile review, not silently at runtime.
*/
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Polvory/Easy-Plan-back/ledger"
)

// Feature is one quota dimension.
type Feature string

const (
	FeatureAccounts  Feature = "account_management"
	FeatureGoals     Feature = "goals"
	FeatureDebts     Feature = "debts"
	FeatureLimits    Feature = "limits"
	FeatureTasks     Feature = "tasks"
	FeatureAIBalance Feature = "open_ai_balance"
	FeatureAITasks   Feature = "open_ai_tasks"
)

// Plan maps feature dimensions to their caps for a subscription tier.
type Plan map[Feature]int

var Plans = map[string]Plan{
	"basic": {
		FeatureAccounts:  1,
		FeatureGoals:     2,
		FeatureTasks:     3,
		FeatureLimits:    2,
		FeatureDebts:     1,
		FeatureAIBalance: 3,
		FeatureAITasks:   3,
	},
	"pro": {
		FeatureAccounts:  100,
		FeatureGoals:     100,
		FeatureTasks:     200,
		FeatureLimits:    200,
		FeatureDebts:     200,
		FeatureAIBalance: 50,
		FeatureAITasks:   50,
	},
}

type Gate struct {
	store ledger.TxStore
	log   *logrus.Logger
}

func NewGate(store ledger.TxStore, log *logrus.Logger) *Gate {
	return &Gate{store: store, log: log}
}

// Check verifies the user may use one more unit of the feature. Returns a
// QuotaExceededError (unwrapping to ErrPermissionDenied) on exhaustion.
func (g *Gate) Check(ctx context.Context, userID int64, f Feature) error {
	fl, err := g.store.GetFeatureLimits(ctx, userID)
	if err != nil {
		return fmt.Errorf("feature limits for user %d: %w", userID, err)
	}

	var allowed, used int
	switch f {
	case FeatureAccounts:
		allowed = fl.Accounts
		used, err = g.store.CountAccounts(ctx, userID)
	case FeatureGoals:
		allowed = fl.Goals
		used, err = g.store.CountTargets(ctx, userID)
	case FeatureDebts:
		allowed = fl.Debts
		used, err = g.store.CountDebts(ctx, userID)
	case FeatureLimits:
		allowed = fl.Limits
		used, err = g.store.CountLimits(ctx, userID)
	case FeatureTasks:
		allowed = fl.Tasks
		used, err = g.store.CountTasks(ctx, userID)
	case FeatureAIBalance:
		// Countdown counters: remaining uses, not an entity count.
		if fl.AIBalance <= 0 {
			return &ledger.QuotaExceededError{Feature: string(f), Allowed: fl.AIBalance}
		}
		return nil
	case FeatureAITasks:
		if fl.AITasks <= 0 {
			return &ledger.QuotaExceededError{Feature: string(f), Allowed: fl.AITasks}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown feature %q", ledger.ErrInvalidArgument, f)
	}
	if err != nil {
		return fmt.Errorf("count %s for user %d: %w", f, userID, err)
	}
	if used >= allowed {
		return &ledger.QuotaExceededError{Feature: string(f), Allowed: allowed, Used: used}
	}
	return nil
}

// ConsumeAI decrements an AI countdown counter after a successful call.
func (g *Gate) ConsumeAI(ctx context.Context, userID int64, f Feature) error {
	return g.store.WithTx(ctx, func(s ledger.Store) error {
		fl, err := s.GetFeatureLimits(ctx, userID)
		if err != nil {
			return fmt.Errorf("feature limits for user %d: %w", userID, err)
		}
		switch f {
		case FeatureAIBalance:
			if fl.AIBalance > 0 {
				fl.AIBalance--
			}
		case FeatureAITasks:
			if fl.AITasks > 0 {
				fl.AITasks--
			}
		default:
			return fmt.Errorf("%w: %q is not a consumable feature", ledger.ErrInvalidArgument, f)
		}
		fl.UpdatedAt = time.Now().UTC()
		return s.SaveFeatureLimits(ctx, fl)
	})
}

// Provision creates or re-points the user's quota row at the given plan.
// Called on registration (basic) and on subscription change.
func (g *Gate) Provision(ctx context.Context, userID int64, plan string) (*ledger.FeatureLimits, error) {
	cfg, ok := Plans[plan]
	if !ok {
		return nil, fmt.Errorf("%w: unknown plan %q", ledger.ErrInvalidArgument, plan)
	}

	now := time.Now().UTC()
	fl, err := g.store.GetFeatureLimits(ctx, userID)
	if ledger.IsNotFound(err) {
		fl = &ledger.FeatureLimits{UserID: userID, CreatedAt: now}
	} else if err != nil {
		return nil, err
	}

	fl.SubscriptionType = plan
	fl.Accounts = cfg[FeatureAccounts]
	fl.Goals = cfg[FeatureGoals]
	fl.Tasks = cfg[FeatureTasks]
	fl.Limits = cfg[FeatureLimits]
	fl.Debts = cfg[FeatureDebts]
	fl.AIBalance = cfg[FeatureAIBalance]
	fl.AITasks = cfg[FeatureAITasks]
	fl.UpdatedAt = now

	if fl.ID == 0 {
		err = g.store.CreateFeatureLimits(ctx, fl)
	} else {
		err = g.store.SaveFeatureLimits(ctx, fl)
	}
	if err != nil {
		return nil, fmt.Errorf("provision %s limits for user %d: %w", plan, userID, err)
	}
	g.log.WithFields(logrus.Fields{"user_id": userID, "plan": plan}).Info("feature limits provisioned")
	return fl, nil
}
