package recurrence_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Polvory/Easy-Plan-back/ledger"
	"github.com/Polvory/Easy-Plan-back/recurrence"
	"github.com/Polvory/Easy-Plan-back/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fixture struct {
	store   *memory.Store
	poster  *ledger.Poster
	engine  *recurrence.Engine
	caller  ledger.Caller
	account *ledger.Account
	ctx     context.Context
}

func newFixture(t *testing.T) *fixture {
	store := memory.New()
	ctx := context.Background()

	user := &ledger.User{Email: "anna@example.com", Role: ledger.RoleUser, Language: ledger.LanguageEN}
	require.NoError(t, store.CreateUser(ctx, user))

	account := &ledger.Account{UserID: user.ID, Name: "main", Currency: ledger.USD, Balance: dec("1000")}
	require.NoError(t, store.CreateAccount(ctx, account))

	log := testLogger()
	poster := ledger.NewPoster(store, log)
	return &fixture{
		store:   store,
		poster:  poster,
		engine:  recurrence.NewEngine(store, poster, log),
		caller:  ledger.Caller{UserID: user.ID, Role: ledger.RoleUser, Language: ledger.LanguageEN},
		account: account,
		ctx:     ctx,
	}
}

func (f *fixture) definition(amount string, start time.Time, interval ledger.Interval, count int) recurrence.Definition {
	return recurrence.Definition{
		Amount:    dec(amount),
		Direction: ledger.Income,
		Name:      "salary",
		StartDate: start,
		Interval:  interval,
		Count:     count,
		AccountID: f.account.ID,
	}
}

// =============================================================================
// DEFINITION CREATION
// =============================================================================

func TestCreateDefinition_ExpandsMonthlyOccurrences(t *testing.T) {
	// GIVEN: 5000 monthly from Jan 31, 3 times
	// THEN: Three planned instances at Jan 31 / Feb 28 / Mar 31, none completed

	f := newFixture(t)
	start := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)

	ops, err := f.engine.CreateDefinition(f.ctx, f.caller, f.definition("5000", start, ledger.IntervalMonth, 3))
	require.NoError(t, err)
	require.Len(t, ops, 3)

	assert.Equal(t, time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC), ops[0].PlannedDate)
	assert.Equal(t, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), ops[1].PlannedDate)
	assert.Equal(t, time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC), ops[2].PlannedDate)
	for _, op := range ops {
		assert.False(t, op.Completed)
		assert.True(t, op.Amount.Equal(dec("5000")))
		assert.NotZero(t, op.ID)
	}

	// No money moved at definition time.
	account, _ := f.store.GetAccount(f.ctx, f.account.ID)
	assert.True(t, account.Balance.Equal(dec("1000")))
}

func TestCreateDefinition_Validation(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := f.engine.CreateDefinition(f.ctx, f.caller, f.definition("0", start, ledger.IntervalMonth, 2))
		assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
	})

	t.Run("zero count", func(t *testing.T) {
		_, err := f.engine.CreateDefinition(f.ctx, f.caller, f.definition("100", start, ledger.IntervalMonth, 0))
		assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
	})

	t.Run("unknown interval", func(t *testing.T) {
		_, err := f.engine.CreateDefinition(f.ctx, f.caller, f.definition("100", start, ledger.Interval("decade"), 2))
		assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
	})

	t.Run("foreign account", func(t *testing.T) {
		other := &ledger.User{Email: "bob@example.com", Role: ledger.RoleUser}
		require.NoError(t, f.store.CreateUser(f.ctx, other))
		foreign := &ledger.Account{UserID: other.ID, Name: "theirs", Currency: ledger.USD, Balance: dec("0")}
		require.NoError(t, f.store.CreateAccount(f.ctx, foreign))

		def := f.definition("100", start, ledger.IntervalMonth, 2)
		def.AccountID = foreign.ID
		_, err := f.engine.CreateDefinition(f.ctx, f.caller, def)
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})

	t.Run("foreign task", func(t *testing.T) {
		other := &ledger.User{Email: "carol@example.com", Role: ledger.RoleUser}
		require.NoError(t, f.store.CreateUser(f.ctx, other))
		project := &ledger.Project{UserID: other.ID, Name: "their remodel"}
		require.NoError(t, f.store.CreateProject(f.ctx, project))
		task := &ledger.Task{ProjectID: project.ID, Name: "deposit", Sum: dec("100")}
		require.NoError(t, f.store.CreateTask(f.ctx, task))

		def := f.definition("100", start, ledger.IntervalMonth, 2)
		def.TaskID = &task.ID
		_, err := f.engine.CreateDefinition(f.ctx, f.caller, def)
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})

	t.Run("category direction mismatch", func(t *testing.T) {
		category := &ledger.Category{UserID: f.caller.UserID, Name: "rent", Direction: ledger.Expense}
		require.NoError(t, f.store.CreateCategory(f.ctx, category))

		def := f.definition("100", start, ledger.IntervalMonth, 2)
		def.CategoryID = &category.ID
		_, err := f.engine.CreateDefinition(f.ctx, f.caller, def)

		var mismatch *ledger.CategoryMismatchError
		assert.ErrorAs(t, err, &mismatch)
	})

	// No instance slipped through any failed creation.
	ops, total, err := f.engine.List(f.ctx, f.caller, ledger.RepeatFilter{})
	require.NoError(t, err)
	assert.Empty(t, ops)
	assert.Zero(t, total)
}

// =============================================================================
// SWEEP
// =============================================================================

func TestSweep_PostsDueInstanceExactlyOnce(t *testing.T) {
	// GIVEN: One instance due today
	// WHEN: Sweeping twice
	// THEN: Exactly one transaction, balance moved once, instance completed

	f := newFixture(t)
	_, err := f.engine.CreateDefinition(f.ctx, f.caller, f.definition("250", time.Now().UTC(), ledger.IntervalMonth, 1))
	require.NoError(t, err)

	ran, err := f.engine.Sweep(f.ctx)
	require.NoError(t, err)
	assert.True(t, ran)

	ran, err = f.engine.Sweep(f.ctx)
	require.NoError(t, err)
	assert.False(t, ran, "second sweep has nothing to do")

	account, _ := f.store.GetAccount(f.ctx, f.account.ID)
	assert.True(t, account.Balance.Equal(dec("1250")), "balance = %s", account.Balance)

	txs, err := f.store.ListTransactions(f.ctx, f.caller.UserID, ledger.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].FromRecurrence)

	ops, _, err := f.engine.List(f.ctx, f.caller, ledger.RepeatFilter{})
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.True(t, ops[0].Completed)
}

func TestSweep_IgnoresFutureInstances(t *testing.T) {
	f := newFixture(t)
	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	_, err := f.engine.CreateDefinition(f.ctx, f.caller, f.definition("250", tomorrow, ledger.IntervalMonth, 2))
	require.NoError(t, err)

	ran, err := f.engine.Sweep(f.ctx)
	require.NoError(t, err)
	assert.False(t, ran)

	account, _ := f.store.GetAccount(f.ctx, f.account.ID)
	assert.True(t, account.Balance.Equal(dec("1000")))
}

func TestSweep_OneFailureDoesNotBlockTheBatch(t *testing.T) {
	// GIVEN: Two instances due today, one repaying a debt that no longer exists
	// WHEN: Sweeping
	// THEN: The healthy instance posts; the broken one stays uncompleted

	f := newFixture(t)
	now := time.Now().UTC()
	_, err := f.engine.CreateDefinition(f.ctx, f.caller, f.definition("100", now, ledger.IntervalMonth, 1))
	require.NoError(t, err)

	debt := &ledger.Debt{UserID: f.caller.UserID, AccountID: f.account.ID, Name: "loan", Balance: dec("500")}
	require.NoError(t, f.store.CreateDebt(f.ctx, debt))
	def := f.definition("50", now, ledger.IntervalMonth, 1)
	def.DebtID = &debt.ID
	broken, err := f.engine.CreateDefinition(f.ctx, f.caller, def)
	require.NoError(t, err)
	require.NoError(t, f.store.DeleteDebt(f.ctx, debt.ID))

	ran, err := f.engine.Sweep(f.ctx)
	require.NoError(t, err)
	assert.True(t, ran)

	account, _ := f.store.GetAccount(f.ctx, f.account.ID)
	assert.True(t, account.Balance.Equal(dec("1100")), "only the healthy instance posted, balance = %s", account.Balance)

	// The broken instance rolled back its claim and will be retried.
	got, err := f.store.GetRepeatOperation(f.ctx, broken[0].ID)
	require.NoError(t, err)
	assert.False(t, got.Completed)
}

// =============================================================================
// MANUAL COMPLETION
// =============================================================================

func TestCompleteInstance_PostsOnceThenConflicts(t *testing.T) {
	// GIVEN: A future instance completed by hand
	// WHEN: Completing it again
	// THEN: ErrConflict, and no second transaction exists

	f := newFixture(t)
	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	ops, err := f.engine.CreateDefinition(f.ctx, f.caller, f.definition("300", tomorrow, ledger.IntervalMonth, 1))
	require.NoError(t, err)

	done, err := f.engine.CompleteInstance(f.ctx, f.caller, ops[0].ID)
	require.NoError(t, err)
	assert.True(t, done.Completed)

	_, err = f.engine.CompleteInstance(f.ctx, f.caller, ops[0].ID)
	assert.ErrorIs(t, err, ledger.ErrConflict)

	txs, _ := f.store.ListTransactions(f.ctx, f.caller.UserID, ledger.TransactionFilter{})
	assert.Len(t, txs, 1)

	account, _ := f.store.GetAccount(f.ctx, f.account.ID)
	assert.True(t, account.Balance.Equal(dec("1300")))
}

func TestCompleteInstance_ForeignInstance_NotFound(t *testing.T) {
	f := newFixture(t)
	ops, err := f.engine.CreateDefinition(f.ctx, f.caller, f.definition("10", time.Now().UTC(), ledger.IntervalMonth, 1))
	require.NoError(t, err)

	other := &ledger.User{Email: "bob@example.com", Role: ledger.RoleUser}
	require.NoError(t, f.store.CreateUser(f.ctx, other))

	_, err = f.engine.CompleteInstance(f.ctx, ledger.Caller{UserID: other.ID, Role: ledger.RoleUser}, ops[0].ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

// =============================================================================
// INSTANCE DELETION AND LISTING
// =============================================================================

func TestDeleteInstance_LeavesPostedTransactionsAlone(t *testing.T) {
	f := newFixture(t)
	ops, err := f.engine.CreateDefinition(f.ctx, f.caller, f.definition("100", time.Now().UTC(), ledger.IntervalMonth, 1))
	require.NoError(t, err)

	_, err = f.engine.CompleteInstance(f.ctx, f.caller, ops[0].ID)
	require.NoError(t, err)

	require.NoError(t, f.engine.DeleteInstance(f.ctx, f.caller, ops[0].ID))

	txs, _ := f.store.ListTransactions(f.ctx, f.caller.UserID, ledger.TransactionFilter{})
	assert.Len(t, txs, 1, "posted transaction survives instance deletion")
}

func TestList_FiltersAndPaginates(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	_, err := f.engine.CreateDefinition(f.ctx, f.caller, f.definition("10", start, ledger.IntervalMonth, 6))
	require.NoError(t, err)

	page, total, err := f.engine.List(f.ctx, f.caller, ledger.RepeatFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	require.Len(t, page, 2)
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), page[0].PlannedDate)

	completed := false
	pending, total, err := f.engine.List(f.ctx, f.caller, ledger.RepeatFilter{Completed: &completed})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Len(t, pending, 6)
}
