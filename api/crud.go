/*
crud.go - Entity CRUD handlers

Creation of quota-gated entities (accounts, targets, debts, limits, tasks)
consults the feature gate first; an exhausted quota maps to 403.
Reads and writes check ownership and translate a foreign row into 404, so
the API never reveals whether another user's id exists.
*/
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Polvory/Easy-Plan-back/ledger"
	"github.com/Polvory/Easy-Plan-back/quota"
)

// =============================================================================
// ACCOUNTS
// =============================================================================

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	c := caller(r)
	if err := h.gate.Check(r.Context(), c.UserID, quota.FeatureAccounts); err != nil {
		h.respondError(w, err)
		return
	}
	var req accountRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	if !ledger.Currency(req.Currency).Valid() {
		h.respondError(w, ledger.ErrInvalidArgument)
		return
	}
	balance := decimal.Zero
	if req.Balance != "" {
		var err error
		if balance, err = parseSum(req.Balance); err != nil {
			h.respondError(w, err)
			return
		}
	}
	now := time.Now().UTC()
	account := &ledger.Account{
		UserID:    c.UserID,
		Name:      req.Name,
		Currency:  ledger.Currency(req.Currency),
		Balance:   balance,
		Archived:  req.Archived,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreateAccount(r.Context(), account); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.ListAccounts(r.Context(), caller(r).UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if accounts == nil {
		accounts = []*ledger.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) ownedAccount(r *http.Request) (*ledger.Account, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	account, err := h.store.GetAccount(r.Context(), id)
	if err != nil || account.UserID != caller(r).UserID {
		return nil, ledger.ErrNotFound
	}
	return account, nil
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.ownedAccount(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.ownedAccount(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	var req accountRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	if req.Name != "" {
		account.Name = req.Name
	}
	if req.Currency != "" {
		if !ledger.Currency(req.Currency).Valid() {
			h.respondError(w, ledger.ErrInvalidArgument)
			return
		}
		account.Currency = ledger.Currency(req.Currency)
	}
	account.Archived = req.Archived
	account.UpdatedAt = time.Now().UTC()
	if err := h.store.SaveAccount(r.Context(), account); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.ownedAccount(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.store.DeleteAccount(r.Context(), account.ID); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// CATEGORIES
// =============================================================================

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	direction, err := ledger.ParseDirection(req.Direction)
	if err != nil {
		h.respondError(w, err)
		return
	}
	now := time.Now().UTC()
	category := &ledger.Category{
		UserID:    caller(r).UserID,
		Name:      req.Name,
		Icon:      req.Icon,
		Color:     req.Color,
		SVG:       req.SVG,
		Kind:      req.Kind,
		Direction: direction,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreateCategory(r.Context(), category); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context(), caller(r).UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if categories == nil {
		categories = []*ledger.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	category, err := h.store.GetCategory(r.Context(), id)
	if err != nil || category.UserID != caller(r).UserID {
		h.respondError(w, ledger.ErrNotFound)
		return
	}
	if err := h.store.DeleteCategory(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// DEBTS
// =============================================================================

func (h *Handler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	c := caller(r)
	if err := h.gate.Check(r.Context(), c.UserID, quota.FeatureDebts); err != nil {
		h.respondError(w, err)
		return
	}
	var req debtRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	account, err := h.store.GetAccount(r.Context(), req.AccountID)
	if err != nil || account.UserID != c.UserID {
		h.respondError(w, ledger.ErrNotFound)
		return
	}
	balance, err := parseSum(req.Balance)
	if err != nil {
		h.respondError(w, err)
		return
	}
	taken, err := parseDate(req.DateTaken)
	if err != nil {
		h.respondError(w, err)
		return
	}
	end, err := parseDate(req.DateEnd)
	if err != nil {
		h.respondError(w, err)
		return
	}
	now := time.Now().UTC()
	debt := &ledger.Debt{
		UserID:    c.UserID,
		AccountID: account.ID,
		Name:      req.Name,
		WhoGave:   req.WhoGave,
		Comments:  req.Comments,
		SVG:       req.SVG,
		DateTaken: taken,
		DateEnd:   end,
		Balance:   balance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreateDebt(r.Context(), debt); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, debt)
}

func (h *Handler) ListDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := h.store.ListDebts(r.Context(), caller(r).UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if debts == nil {
		debts = []*ledger.Debt{}
	}
	writeJSON(w, http.StatusOK, debts)
}

func (h *Handler) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	debt, err := h.store.GetDebt(r.Context(), id)
	if err != nil || debt.UserID != caller(r).UserID {
		h.respondError(w, ledger.ErrNotFound)
		return
	}
	if err := h.store.DeleteDebt(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// TARGETS
// =============================================================================

func (h *Handler) CreateTarget(w http.ResponseWriter, r *http.Request) {
	c := caller(r)
	if err := h.gate.Check(r.Context(), c.UserID, quota.FeatureGoals); err != nil {
		h.respondError(w, err)
		return
	}
	var req targetRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	account, err := h.store.GetAccount(r.Context(), req.AccountID)
	if err != nil || account.UserID != c.UserID {
		h.respondError(w, ledger.ErrNotFound)
		return
	}
	balanceTarget, err := parseSum(req.BalanceTarget)
	if err != nil {
		h.respondError(w, err)
		return
	}
	balance := decimal.Zero
	if req.Balance != "" {
		if balance, err = parseSum(req.Balance); err != nil {
			h.respondError(w, err)
			return
		}
	}
	end, err := parseDate(req.DateEnd)
	if err != nil {
		h.respondError(w, err)
		return
	}
	now := time.Now().UTC()
	target := &ledger.Target{
		UserID:        c.UserID,
		AccountID:     account.ID,
		Name:          req.Name,
		Balance:       balance,
		BalanceTarget: balanceTarget,
		DateEnd:       end,
		SVG:           req.SVG,
		Icon:          req.Icon,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.store.CreateTarget(r.Context(), target); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, target)
}

func (h *Handler) ListTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := h.store.ListTargets(r.Context(), caller(r).UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if targets == nil {
		targets = []*ledger.Target{}
	}
	writeJSON(w, http.StatusOK, targets)
}

func (h *Handler) DeleteTarget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	target, err := h.store.GetTarget(r.Context(), id)
	if err != nil || target.UserID != caller(r).UserID {
		h.respondError(w, ledger.ErrNotFound)
		return
	}
	if err := h.store.DeleteTarget(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// LIMITS
// =============================================================================

func (h *Handler) CreateLimit(w http.ResponseWriter, r *http.Request) {
	c := caller(r)
	if err := h.gate.Check(r.Context(), c.UserID, quota.FeatureLimits); err != nil {
		h.respondError(w, err)
		return
	}
	var req limitRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	if req.CategoryID != nil {
		category, err := h.store.GetCategory(r.Context(), *req.CategoryID)
		if err != nil || category.UserID != c.UserID {
			h.respondError(w, ledger.ErrNotFound)
			return
		}
		// One limit per category.
		if _, err := h.store.FindLimitByCategory(r.Context(), c.UserID, *req.CategoryID); err == nil {
			h.respondError(w, fmt.Errorf("%w: category %d already has a limit", ledger.ErrConflict, *req.CategoryID))
			return
		} else if !ledger.IsNotFound(err) {
			h.respondError(w, err)
			return
		}
	}
	balance, err := parseSum(req.Balance)
	if err != nil {
		h.respondError(w, err)
		return
	}
	now := time.Now().UTC()
	// Default reset date: one calendar month out.
	dateUpdate := ledger.AddCalendarMonths(ledger.DateOnly(now), 1)
	if req.DateUpdate != "" {
		if dateUpdate, err = parseDate(req.DateUpdate); err != nil {
			h.respondError(w, err)
			return
		}
	}
	limit := &ledger.Limit{
		UserID:       c.UserID,
		CategoryID:   req.CategoryID,
		Balance:      balance,
		CurrentSpent: decimal.Zero,
		DateUpdate:   dateUpdate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.store.CreateLimit(r.Context(), limit); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, limit)
}

func (h *Handler) ListLimits(w http.ResponseWriter, r *http.Request) {
	limits, err := h.store.ListLimits(r.Context(), caller(r).UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if limits == nil {
		limits = []*ledger.Limit{}
	}
	writeJSON(w, http.StatusOK, limits)
}

func (h *Handler) DeleteLimit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	limit, err := h.store.GetLimit(r.Context(), id)
	if err != nil || limit.UserID != caller(r).UserID {
		h.respondError(w, ledger.ErrNotFound)
		return
	}
	if err := h.store.DeleteLimit(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// PROJECTS AND TASKS
// =============================================================================

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	now := time.Now().UTC()
	project := &ledger.Project{
		UserID:    caller(r).UserID,
		Name:      req.Name,
		Color:     req.Color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreateProject(r.Context(), project); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.ListProjects(r.Context(), caller(r).UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if projects == nil {
		projects = []*ledger.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	project, err := h.store.GetProject(r.Context(), id)
	if err != nil || project.UserID != caller(r).UserID {
		h.respondError(w, ledger.ErrNotFound)
		return
	}
	if err := h.store.DeleteProject(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) ownedProject(r *http.Request, projectID int64) (*ledger.Project, error) {
	project, err := h.store.GetProject(r.Context(), projectID)
	if err != nil || project.UserID != caller(r).UserID {
		return nil, ledger.ErrNotFound
	}
	return project, nil
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	c := caller(r)
	if err := h.gate.Check(r.Context(), c.UserID, quota.FeatureTasks); err != nil {
		h.respondError(w, err)
		return
	}
	var req taskRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	if _, err := h.ownedProject(r, req.ProjectID); err != nil {
		h.respondError(w, err)
		return
	}
	if req.AccountID != nil {
		account, err := h.store.GetAccount(r.Context(), *req.AccountID)
		if err != nil || account.UserID != c.UserID {
			h.respondError(w, ledger.ErrNotFound)
			return
		}
	}
	end, err := parseDate(req.DateEnd)
	if err != nil {
		h.respondError(w, err)
		return
	}
	sum := decimal.Zero
	if req.Sum != "" {
		if sum, err = parseSum(req.Sum); err != nil {
			h.respondError(w, err)
			return
		}
	}
	var direction ledger.Direction
	if req.Direction != "" {
		if direction, err = ledger.ParseDirection(req.Direction); err != nil {
			h.respondError(w, err)
			return
		}
	}
	now := time.Now().UTC()
	task := &ledger.Task{
		ProjectID: req.ProjectID,
		AccountID: req.AccountID,
		Name:      req.Name,
		DateEnd:   end,
		Sum:       sum,
		Comments:  req.Comments,
		Direction: direction,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreateTask(r.Context(), task); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if _, err := h.ownedProject(r, projectID); err != nil {
		h.respondError(w, err)
		return
	}
	tasks, err := h.store.ListTasks(r.Context(), projectID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*ledger.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	task, err := h.store.GetTask(r.Context(), id)
	if err != nil {
		h.respondError(w, ledger.ErrNotFound)
		return
	}
	if _, err := h.ownedProject(r, task.ProjectID); err != nil {
		h.respondError(w, err)
		return
	}
	var req taskRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	if req.Name != "" {
		task.Name = req.Name
	}
	if req.DateEnd != "" {
		if task.DateEnd, err = parseDate(req.DateEnd); err != nil {
			h.respondError(w, err)
			return
		}
	}
	if req.Sum != "" {
		if task.Sum, err = parseSum(req.Sum); err != nil {
			h.respondError(w, err)
			return
		}
	}
	if req.Comments != "" {
		task.Comments = req.Comments
	}
	task.Completed = req.Completed
	task.UpdatedAt = time.Now().UTC()
	if err := h.store.SaveTask(r.Context(), task); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	task, err := h.store.GetTask(r.Context(), id)
	if err != nil {
		h.respondError(w, ledger.ErrNotFound)
		return
	}
	if _, err := h.ownedProject(r, task.ProjectID); err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.store.DeleteTask(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
