/*
handlers.go - HTTP handlers

PURPOSE:
  Thin JSON adapters over the domain: decode, resolve the caller, call the
  component, map the error taxonomy to a status code. No business rule
  lives here.

ERROR MAPPING:
  ledger.ErrNotFound           -> 404 (absent row, or another user's row)
  ledger.ErrInvalidArgument    -> 400 (includes category mismatch)
  ledger.ErrDuplicateIdempotencyKey -> 400
  ledger.ErrConflict           -> 409 (already completed, still referenced)
  ledger.ErrPermissionDenied   -> 403 (quota, bad credentials)
  anything else                -> 500
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Polvory/Easy-Plan-back/auth"
	"github.com/Polvory/Easy-Plan-back/ledger"
	"github.com/Polvory/Easy-Plan-back/quota"
	"github.com/Polvory/Easy-Plan-back/recurrence"
)

// Handler carries every component the HTTP surface needs.
type Handler struct {
	store  ledger.TxStore
	poster *ledger.Poster
	engine *recurrence.Engine
	gate   *quota.Gate
	auth   *auth.Service
	tokens *auth.Manager
	log    *logrus.Logger
}

func NewHandler(store ledger.TxStore, poster *ledger.Poster, engine *recurrence.Engine,
	gate *quota.Gate, authSvc *auth.Service, tokens *auth.Manager, log *logrus.Logger) *Handler {
	return &Handler{
		store:  store,
		poster: poster,
		engine: engine,
		gate:   gate,
		auth:   authSvc,
		tokens: tokens,
		log:    log,
	}
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]string{"error": message}
	if err != nil {
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}

// respondError maps the domain error taxonomy to a status code.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found", err)
	case ledger.IsConflict(err):
		writeError(w, http.StatusConflict, "conflict", err)
	case ledger.IsPermissionDenied(err):
		writeError(w, http.StatusForbidden, "forbidden", err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, "bad request", err)
	default:
		h.log.WithError(err).Error("internal error")
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func decode(r *http.Request, into any) error {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return ledger.ErrInvalidArgument
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, ledger.ErrInvalidArgument
	}
	return id, nil
}

// caller panics-free accessor; the auth middleware guarantees presence on
// protected routes.
func caller(r *http.Request) ledger.Caller {
	c, _ := callerFrom(r.Context())
	return c
}

// =============================================================================
// AUTH
// =============================================================================

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	user, pair, err := h.auth.Register(r.Context(), req.Email, req.Password, ledger.Language(req.Language))
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{User: user, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	user, pair, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: user, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUser(r.Context(), caller(r).UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) Upgrade(w http.ResponseWriter, r *http.Request) {
	var req upgradeRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	fl, err := h.auth.Upgrade(r.Context(), caller(r), req.Plan)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fl)
}

func (h *Handler) GetFeatureLimits(w http.ResponseWriter, r *http.Request) {
	fl, err := h.store.GetFeatureLimits(r.Context(), caller(r).UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fl)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	sum, err := parseSum(req.Sum)
	if err != nil {
		h.respondError(w, err)
		return
	}
	// Clients may supply their own key to make retries safe; otherwise each
	// post gets a fresh one.
	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey == "" {
		idemKey = uuid.NewString()
	}
	post := ledger.PostRequest{
		Amount:         sum,
		Direction:      ledger.Direction(req.Direction),
		AccountID:      req.AccountID,
		CategoryID:     req.CategoryID,
		DebtID:         req.DebtID,
		TargetID:       req.TargetID,
		TaskID:         req.TaskID,
		IdempotencyKey: idemKey,
	}
	if req.CreatedAt != "" {
		at, err := time.Parse(time.RFC3339, req.CreatedAt)
		if err != nil {
			h.respondError(w, ledger.ErrInvalidArgument)
			return
		}
		post.OccurredAt = &at
	}
	tx, err := h.poster.Post(r.Context(), caller(r), post)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	f := ledger.TransactionFilter{}
	q := r.URL.Query()
	for name, dst := range map[string]**int64{
		"account_id": &f.AccountID,
		"limit_id":   &f.LimitID,
		"target_id":  &f.TargetID,
		"debt_id":    &f.DebtID,
	} {
		if v := q.Get(name); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				h.respondError(w, ledger.ErrInvalidArgument)
				return
			}
			*dst = &id
		}
	}
	if v := q.Get("moded"); v != "" {
		d, err := ledger.ParseDirection(v)
		if err != nil {
			h.respondError(w, err)
			return
		}
		f.Direction = &d
	}
	if v := q.Get("from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			h.respondError(w, err)
			return
		}
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			h.respondError(w, err)
			return
		}
		f.To = &t
	}
	f.Ascending = q.Get("order") == "asc"
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))

	txs, err := h.store.ListTransactions(r.Context(), caller(r).UserID, f)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if txs == nil {
		txs = []*ledger.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.poster.Delete(r.Context(), caller(r), id); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// RECURRING OPERATIONS
// =============================================================================

func (h *Handler) CreateRepeatOperations(w http.ResponseWriter, r *http.Request) {
	var req repeatRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	sum, err := parseSum(req.Sum)
	if err != nil {
		h.respondError(w, err)
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		h.respondError(w, err)
		return
	}
	interval, err := ledger.ParseInterval(req.Interval)
	if err != nil {
		h.respondError(w, err)
		return
	}
	ops, err := h.engine.CreateDefinition(r.Context(), caller(r), recurrence.Definition{
		Amount:     sum,
		Direction:  ledger.Direction(req.Direction),
		Name:       req.Name,
		StartDate:  start,
		Interval:   interval,
		Count:      req.Count,
		AccountID:  req.AccountID,
		CategoryID: req.CategoryID,
		DebtID:     req.DebtID,
		TargetID:   req.TargetID,
		LimitID:    req.LimitID,
		TaskID:     req.TaskID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ops)
}

func (h *Handler) ListRepeatOperations(w http.ResponseWriter, r *http.Request) {
	f := ledger.RepeatFilter{}
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			h.respondError(w, err)
			return
		}
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			h.respondError(w, err)
			return
		}
		f.To = &t
	}
	if v := q.Get("completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.respondError(w, ledger.ErrInvalidArgument)
			return
		}
		f.Completed = &b
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))

	ops, total, err := h.engine.List(r.Context(), caller(r), f)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if ops == nil {
		ops = []*ledger.RepeatOperation{}
	}
	writeJSON(w, http.StatusOK, repeatListResponse{Items: ops, Total: total})
}

func (h *Handler) CompleteRepeatOperation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	op, err := h.engine.CompleteInstance(r.Context(), caller(r), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

func (h *Handler) DeleteRepeatOperation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.engine.DeleteInstance(r.Context(), caller(r), id); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// SCHEDULED JOBS - manual triggers (admin)
// =============================================================================

func (h *Handler) RunSweep(w http.ResponseWriter, r *http.Request) {
	ran, err := h.engine.Sweep(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobResponse{Ran: ran})
}

func (h *Handler) RunLimitReset(w http.ResponseWriter, r *http.Request) {
	ran, err := h.poster.ResetDueLimits(r.Context(), time.Now().UTC())
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobResponse{Ran: ran})
}
