/*
handlers_test.go - HTTP surface tests

Drives the real router with httptest over the in-memory store: register,
authenticate, create entities, post money, and verify the error-to-status
mapping end to end.
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Polvory/Easy-Plan-back/auth"
	"github.com/Polvory/Easy-Plan-back/ledger"
	"github.com/Polvory/Easy-Plan-back/quota"
	"github.com/Polvory/Easy-Plan-back/recurrence"
	"github.com/Polvory/Easy-Plan-back/store/memory"
)

type apiFixture struct {
	router *chi.Mux
	store  *memory.Store
	token  string
	userID int64
}

func newFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := memory.New()
	log := logrus.New()
	log.SetOutput(io.Discard)

	tokens := auth.NewManager("access-secret", "refresh-secret", 30*time.Minute, 7*24*time.Hour)
	gate := quota.NewGate(store, log)
	authSvc := auth.NewService(store, tokens, gate, log)
	poster := ledger.NewPoster(store, log)
	engine := recurrence.NewEngine(store, poster, log)

	h := NewHandler(store, poster, engine, gate, authSvc, tokens, log)
	f := &apiFixture{router: NewRouter(h, []string{"*"}), store: store}

	resp := f.do(t, http.MethodPost, "/api/auth/register",
		map[string]any{"email": "anna@example.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var body struct {
		User struct {
			ID int64 `json:"id"`
		} `json:"user"`
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	f.token = body.AccessToken
	f.userID = body.User.ID
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, payload any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) createAccount(t *testing.T, name string) int64 {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/accounts/",
		map[string]any{"name": name, "currency": "USD", "balance": "1000"}, f.token)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var account struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &account))
	return account.ID
}

// =============================================================================
// AUTH AND MIDDLEWARE
// =============================================================================

func TestRouter_UnauthenticatedRequestsRejected(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/accounts/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = f.do(t, http.MethodGet, "/api/accounts/", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRouter_Me(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/users/me", nil, f.token)
	require.Equal(t, http.StatusOK, resp.Code)

	var user struct {
		Email string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &user))
	assert.Equal(t, "anna@example.com", user.Email)
}

func TestRouter_AdminJobsRequireAdminRole(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/admin/jobs/sweep", nil, f.token)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

// =============================================================================
// ACCOUNTS AND QUOTAS
// =============================================================================

func TestRouter_AccountQuotaEnforced(t *testing.T) {
	// Basic plan allows exactly one account.
	f := newFixture(t)

	f.createAccount(t, "main")

	resp := f.do(t, http.MethodPost, "/api/accounts/",
		map[string]any{"name": "second", "currency": "USD"}, f.token)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRouter_GetUnknownAccountIs404(t *testing.T) {
	f := newFixture(t)
	f.createAccount(t, "main")

	resp := f.do(t, http.MethodGet, "/api/accounts/9999", nil, f.token)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestRouter_PostTransactionMovesMoney(t *testing.T) {
	// GIVEN: An account holding 1000
	// WHEN: Posting a 250 expense over HTTP
	// THEN: 201, and a later GET shows the new balance and one transaction

	f := newFixture(t)
	accountID := f.createAccount(t, "main")

	resp := f.do(t, http.MethodPost, "/api/transactions/",
		map[string]any{"sum": "250", "moded": "expense", "account_id": accountID}, f.token)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var posted struct {
		BalanceAfter string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &posted))
	assert.Equal(t, "750", posted.BalanceAfter)

	list := f.do(t, http.MethodGet, "/api/transactions/", nil, f.token)
	require.Equal(t, http.StatusOK, list.Code)
	var txs []json.RawMessage
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &txs))
	assert.Len(t, txs, 1)
}

func TestRouter_PostTransactionValidation(t *testing.T) {
	f := newFixture(t)
	accountID := f.createAccount(t, "main")

	resp := f.do(t, http.MethodPost, "/api/transactions/",
		map[string]any{"sum": "abc", "moded": "expense", "account_id": accountID}, f.token)
	assert.Equal(t, http.StatusBadRequest, resp.Code, "unparseable sum")

	resp = f.do(t, http.MethodPost, "/api/transactions/",
		map[string]any{"sum": "10", "moded": "expense", "account_id": int64(555)}, f.token)
	assert.Equal(t, http.StatusNotFound, resp.Code, "unknown account")
}

func TestRouter_IdempotencyKeyHeaderMakesRetriesSafe(t *testing.T) {
	f := newFixture(t)
	accountID := f.createAccount(t, "main")

	post := func() *httptest.ResponseRecorder {
		raw, _ := json.Marshal(map[string]any{"sum": "100", "moded": "expense", "account_id": accountID})
		req := httptest.NewRequest(http.MethodPost, "/api/transactions/", bytes.NewReader(raw))
		req.Header.Set("Authorization", "Bearer "+f.token)
		req.Header.Set("Idempotency-Key", "client-retry-1")
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusCreated, post().Code)
	assert.Equal(t, http.StatusBadRequest, post().Code, "replay is rejected, money moves once")
}

// =============================================================================
// RECURRING OPERATIONS
// =============================================================================

func TestRouter_RepeatLifecycle(t *testing.T) {
	f := newFixture(t)
	accountID := f.createAccount(t, "main")

	resp := f.do(t, http.MethodPost, "/api/repeat/", map[string]any{
		"sum": "50", "moded": "income", "name": "salary",
		"start_date": "2026-01-31", "interval": "month", "count": 3,
		"account_id": accountID,
	}, f.token)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var ops []struct {
		ID          int64  `json:"id"`
		PlannedDate string `json:"planned_date"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &ops))
	require.Len(t, ops, 3)
	assert.Contains(t, ops[1].PlannedDate, "2026-02-28", "February clamps")

	complete := f.do(t, http.MethodPost, fmt.Sprintf("/api/repeat/%d/complete", ops[0].ID), nil, f.token)
	require.Equal(t, http.StatusOK, complete.Code, complete.Body.String())

	again := f.do(t, http.MethodPost, fmt.Sprintf("/api/repeat/%d/complete", ops[0].ID), nil, f.token)
	assert.Equal(t, http.StatusConflict, again.Code, "second completion conflicts")

	list := f.do(t, http.MethodGet, "/api/repeat/?completed=false", nil, f.token)
	require.Equal(t, http.StatusOK, list.Code)
	var page struct {
		Items []json.RawMessage `json:"items"`
		Total int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Total)
}
