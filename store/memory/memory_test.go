package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Polvory/Easy-Plan-back/ledger"
	"github.com/Polvory/Easy-Plan-back/store/memory"
)

func seedAccount(t *testing.T, store *memory.Store) *ledger.Account {
	ctx := context.Background()
	user := &ledger.User{Email: "anna@example.com", Role: ledger.RoleUser}
	require.NoError(t, store.CreateUser(ctx, user))
	account := &ledger.Account{UserID: user.ID, Name: "main", Currency: ledger.USD, Balance: decimal.NewFromInt(1000)}
	require.NoError(t, store.CreateAccount(ctx, account))
	return account
}

func TestWithTx_RollbackLeavesNoTrace(t *testing.T) {
	// GIVEN: A balance mutation and an insert inside one unit of work
	// WHEN: The unit fails
	// THEN: Neither change is visible afterwards

	store := memory.New()
	ctx := context.Background()
	account := seedAccount(t, store)

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(s ledger.Store) error {
		a, err := s.GetAccount(ctx, account.ID)
		require.NoError(t, err)
		a.Balance = a.Balance.Sub(decimal.NewFromInt(300))
		require.NoError(t, s.SaveAccount(ctx, a))

		require.NoError(t, s.InsertTransaction(ctx, &ledger.Transaction{
			UserID:    account.UserID,
			AccountID: account.ID,
			Amount:    decimal.NewFromInt(300),
			Direction: ledger.Expense,
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(1000)), "balance = %s", got.Balance)

	txs, err := store.ListTransactions(ctx, account.UserID, ledger.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestWithTx_CommitPersists(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	account := seedAccount(t, store)

	err := store.WithTx(ctx, func(s ledger.Store) error {
		a, err := s.GetAccount(ctx, account.ID)
		if err != nil {
			return err
		}
		a.Balance = a.Balance.Add(decimal.NewFromInt(500))
		return s.SaveAccount(ctx, a)
	})
	require.NoError(t, err)

	got, _ := store.GetAccount(ctx, account.ID)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(1500)))
}

func TestInsertTransaction_DuplicateIdempotencyKey(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	account := seedAccount(t, store)

	tx := func() *ledger.Transaction {
		return &ledger.Transaction{
			UserID: account.UserID, AccountID: account.ID,
			Amount: decimal.NewFromInt(10), Direction: ledger.Expense,
			IdempotencyKey: "repeat-op-7",
		}
	}
	require.NoError(t, store.InsertTransaction(ctx, tx()))
	err := store.InsertTransaction(ctx, tx())
	assert.ErrorIs(t, err, ledger.ErrDuplicateIdempotencyKey)
}

func TestClaimRepeatOperation_CompareAndSet(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	account := seedAccount(t, store)

	op := &ledger.RepeatOperation{
		UserID: account.UserID, AccountID: account.ID,
		Amount: decimal.NewFromInt(10), Direction: ledger.Income,
	}
	require.NoError(t, store.InsertRepeatOperations(ctx, []*ledger.RepeatOperation{op}))

	claimed, err := store.ClaimRepeatOperation(ctx, op.ID)
	require.NoError(t, err)
	assert.True(t, claimed, "first claim wins")

	claimed, err = store.ClaimRepeatOperation(ctx, op.ID)
	require.NoError(t, err)
	assert.False(t, claimed, "second claim loses")

	_, err = store.ClaimRepeatOperation(ctx, 9999)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestDeleteAccount_StillReferenced_Conflict(t *testing.T) {
	// Matches the SQL store's foreign keys: an account with transactions
	// cannot be deleted, one without can.
	store := memory.New()
	ctx := context.Background()
	account := seedAccount(t, store)

	require.NoError(t, store.InsertTransaction(ctx, &ledger.Transaction{
		UserID: account.UserID, AccountID: account.ID,
		Amount: decimal.NewFromInt(10), Direction: ledger.Expense,
	}))

	err := store.DeleteAccount(ctx, account.ID)
	assert.ErrorIs(t, err, ledger.ErrConflict)

	_, err = store.GetAccount(ctx, account.ID)
	assert.NoError(t, err, "failed delete leaves the row in place")

	spare := &ledger.Account{UserID: account.UserID, Name: "spare", Currency: ledger.USD}
	require.NoError(t, store.CreateAccount(ctx, spare))
	assert.NoError(t, store.DeleteAccount(ctx, spare.ID))
}

func TestDeleteCategory_WithLimit_Conflict(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	account := seedAccount(t, store)

	category := &ledger.Category{UserID: account.UserID, Name: "food", Direction: ledger.Expense}
	require.NoError(t, store.CreateCategory(ctx, category))
	require.NoError(t, store.CreateLimit(ctx, &ledger.Limit{
		UserID: account.UserID, CategoryID: &category.ID,
		Balance: decimal.NewFromInt(200), CurrentSpent: decimal.Zero,
	}))

	err := store.DeleteCategory(ctx, category.ID)
	assert.ErrorIs(t, err, ledger.ErrConflict)
}

func TestDeleteProject_WithTasks_Conflict(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	account := seedAccount(t, store)

	project := &ledger.Project{UserID: account.UserID, Name: "remodel"}
	require.NoError(t, store.CreateProject(ctx, project))
	task := &ledger.Task{ProjectID: project.ID, Name: "deposit", Sum: decimal.NewFromInt(50)}
	require.NoError(t, store.CreateTask(ctx, task))

	err := store.DeleteProject(ctx, project.ID)
	assert.ErrorIs(t, err, ledger.ErrConflict)

	require.NoError(t, store.DeleteTask(ctx, task.ID))
	assert.NoError(t, store.DeleteProject(ctx, project.ID))
}

func TestGetReturnsCopies(t *testing.T) {
	// Mutating a returned row must not leak into the store.
	store := memory.New()
	ctx := context.Background()
	account := seedAccount(t, store)

	got, err := store.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	got.Balance = decimal.NewFromInt(-1)

	again, _ := store.GetAccount(ctx, account.ID)
	assert.True(t, again.Balance.Equal(decimal.NewFromInt(1000)))
}
