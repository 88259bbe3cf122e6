package quota_test

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Polvory/Easy-Plan-back/ledger"
	"github.com/Polvory/Easy-Plan-back/quota"
	"github.com/Polvory/Easy-Plan-back/store/memory"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newGate(t *testing.T) (*quota.Gate, *memory.Store, int64) {
	store := memory.New()
	ctx := context.Background()

	user := &ledger.User{Email: "anna@example.com", Role: ledger.RoleUser}
	require.NoError(t, store.CreateUser(ctx, user))

	gate := quota.NewGate(store, testLogger())
	_, err := gate.Provision(ctx, user.ID, "basic")
	require.NoError(t, err)
	return gate, store, user.ID
}

func TestProvision_BasicPlanCaps(t *testing.T) {
	_, store, userID := newGate(t)

	fl, err := store.GetFeatureLimits(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "basic", fl.SubscriptionType)
	assert.Equal(t, 1, fl.Accounts)
	assert.Equal(t, 2, fl.Goals)
	assert.Equal(t, 3, fl.AIBalance)
}

func TestProvision_UnknownPlan(t *testing.T) {
	gate, _, userID := newGate(t)
	_, err := gate.Provision(context.Background(), userID, "platinum")
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
}

func TestProvision_UpgradeRewritesCaps(t *testing.T) {
	gate, store, userID := newGate(t)
	ctx := context.Background()

	_, err := gate.Provision(ctx, userID, "pro")
	require.NoError(t, err)

	fl, _ := store.GetFeatureLimits(ctx, userID)
	assert.Equal(t, "pro", fl.SubscriptionType)
	assert.Equal(t, 100, fl.Accounts)
}

func TestCheck_EntityQuota(t *testing.T) {
	// GIVEN: Basic plan (1 account)
	// WHEN: Checking before the first and after the first account
	// THEN: First passes, second is a quota violation mapping to 403

	gate, store, userID := newGate(t)
	ctx := context.Background()

	require.NoError(t, gate.Check(ctx, userID, quota.FeatureAccounts))

	account := &ledger.Account{UserID: userID, Name: "main", Currency: ledger.USD, Balance: decimal.Zero}
	require.NoError(t, store.CreateAccount(ctx, account))

	err := gate.Check(ctx, userID, quota.FeatureAccounts)
	var exceeded *ledger.QuotaExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, 1, exceeded.Allowed)
	assert.Equal(t, 1, exceeded.Used)
	assert.ErrorIs(t, err, ledger.ErrPermissionDenied)
}

func TestCheck_OtherUsersEntitiesDoNotCount(t *testing.T) {
	gate, store, userID := newGate(t)
	ctx := context.Background()

	other := &ledger.User{Email: "bob@example.com", Role: ledger.RoleUser}
	require.NoError(t, store.CreateUser(ctx, other))
	foreign := &ledger.Account{UserID: other.ID, Name: "theirs", Currency: ledger.USD, Balance: decimal.Zero}
	require.NoError(t, store.CreateAccount(ctx, foreign))

	assert.NoError(t, gate.Check(ctx, userID, quota.FeatureAccounts))
}

func TestConsumeAI_CountsDown(t *testing.T) {
	gate, store, userID := newGate(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, gate.Check(ctx, userID, quota.FeatureAIBalance))
		require.NoError(t, gate.ConsumeAI(ctx, userID, quota.FeatureAIBalance))
	}

	err := gate.Check(ctx, userID, quota.FeatureAIBalance)
	assert.ErrorIs(t, err, ledger.ErrPermissionDenied)

	fl, _ := store.GetFeatureLimits(ctx, userID)
	assert.Equal(t, 0, fl.AIBalance)
	assert.Equal(t, 3, fl.AITasks, "sibling counter untouched")
}

func TestConsumeAI_NonConsumableFeature(t *testing.T) {
	gate, _, userID := newGate(t)
	err := gate.ConsumeAI(context.Background(), userID, quota.FeatureAccounts)
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
}

func TestCheck_MissingFeatureLimitsRow(t *testing.T) {
	store := memory.New()
	gate := quota.NewGate(store, testLogger())

	err := gate.Check(context.Background(), 42, quota.FeatureAccounts)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
