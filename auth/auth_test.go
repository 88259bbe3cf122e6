package auth_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Polvory/Easy-Plan-back/auth"
	"github.com/Polvory/Easy-Plan-back/ledger"
	"github.com/Polvory/Easy-Plan-back/quota"
	"github.com/Polvory/Easy-Plan-back/store/memory"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newService(t *testing.T) (*auth.Service, *auth.Manager, *memory.Store) {
	store := memory.New()
	log := testLogger()
	tokens := auth.NewManager("access-secret", "refresh-secret", 30*time.Minute, 7*24*time.Hour)
	gate := quota.NewGate(store, log)
	return auth.NewService(store, tokens, gate, log), tokens, store
}

func TestRegister_CreatesUserWithBasicPlan(t *testing.T) {
	// GIVEN: A fresh email
	// WHEN: Registering
	// THEN: User exists, basic quotas are provisioned, tokens verify

	svc, tokens, store := newService(t)
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, "Anna@Example.com", "secret1", ledger.LanguageRU)
	require.NoError(t, err)
	assert.Equal(t, "anna@example.com", user.Email, "email is normalized")
	assert.Equal(t, ledger.RoleUser, user.Role)
	assert.Equal(t, ledger.LanguageRU, user.Language)
	assert.NotEqual(t, "secret1", user.PasswordHash)

	fl, err := store.GetFeatureLimits(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "basic", fl.SubscriptionType)

	claims, err := tokens.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, ledger.LanguageRU, claims.Language)
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "not-an-email", "secret1", "")
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	_, _, err = svc.Register(ctx, "anna@example.com", "short", "")
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "anna@example.com", "secret1", "")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "ANNA@example.com", "secret2", "")
	assert.ErrorIs(t, err, ledger.ErrConflict)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, _, err := svc.Register(ctx, "anna@example.com", "secret1", "")
	require.NoError(t, err)

	t.Run("correct credentials", func(t *testing.T) {
		user, pair, err := svc.Login(ctx, "anna@example.com", "secret1")
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.Equal(t, "anna@example.com", user.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "anna@example.com", "wrong")
		assert.ErrorIs(t, err, ledger.ErrPermissionDenied)
	})

	t.Run("unknown email", func(t *testing.T) {
		// Indistinguishable from a wrong password.
		_, _, err := svc.Login(ctx, "ghost@example.com", "secret1")
		assert.ErrorIs(t, err, ledger.ErrPermissionDenied)
	})
}

func TestRefresh(t *testing.T) {
	svc, tokens, _ := newService(t)
	ctx := context.Background()
	user, pair, err := svc.Register(ctx, "anna@example.com", "secret1", "")
	require.NoError(t, err)

	fresh, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	claims, err := tokens.VerifyAccess(fresh.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	// The two token kinds are signed with different secrets; an access token
	// can never pass as a refresh token.
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, pair, err := svc.Register(ctx, "anna@example.com", "secret1", "")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ledger.ErrPermissionDenied)
}

func TestVerifyAccess_GarbageToken(t *testing.T) {
	tokens := auth.NewManager("a", "b", time.Minute, time.Hour)
	_, err := tokens.VerifyAccess("not.a.jwt")
	assert.ErrorIs(t, err, ledger.ErrPermissionDenied)
}

func TestUpgrade_SwitchesPlanAndQuotas(t *testing.T) {
	svc, _, store := newService(t)
	ctx := context.Background()
	user, _, err := svc.Register(ctx, "anna@example.com", "secret1", "")
	require.NoError(t, err)

	caller := ledger.Caller{UserID: user.ID, Role: ledger.RoleUser}
	fl, err := svc.Upgrade(ctx, caller, "pro")
	require.NoError(t, err)
	assert.Equal(t, "pro", fl.SubscriptionType)

	got, _ := store.GetUser(ctx, user.ID)
	assert.True(t, got.Premium)
	assert.Equal(t, "pro", got.PremiumType)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("secret1")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(hash, "secret1"))
	assert.False(t, auth.CheckPassword(hash, "secret2"))
}
