/*
dto.go - Request/response shapes

PURPOSE:
  JSON contracts of the HTTP API, kept separate from domain types so wire
  changes never force domain changes. Money crosses the wire as decimal
  strings ("150.25"); dates as "2006-01-02"; full timestamps as RFC3339.
*/
package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Polvory/Easy-Plan-back/ledger"
)

// dateFormat is the wire format for calendar dates.
const dateFormat = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q, want YYYY-MM-DD", ledger.ErrInvalidArgument, s)
	}
	return t, nil
}

func parseSum(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: sum %q", ledger.ErrInvalidArgument, s)
	}
	return d, nil
}

// ---- auth ----

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Language string `json:"language,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type authResponse struct {
	User         *ledger.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

type upgradeRequest struct {
	Plan string `json:"plan"`
}

// ---- accounts ----

type accountRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Balance  string `json:"balance,omitempty"`
	Archived bool   `json:"archive,omitempty"`
}

// ---- categories ----

type categoryRequest struct {
	Name      string `json:"name"`
	Icon      string `json:"icon,omitempty"`
	Color     string `json:"color,omitempty"`
	SVG       string `json:"svg,omitempty"`
	Kind      string `json:"type,omitempty"`
	Direction string `json:"moded"`
}

// ---- debts ----

type debtRequest struct {
	AccountID int64  `json:"account_id"`
	Name      string `json:"name"`
	WhoGave   string `json:"who_gave,omitempty"`
	Comments  string `json:"comments,omitempty"`
	SVG       string `json:"svg,omitempty"`
	DateTaken string `json:"date_take"`
	DateEnd   string `json:"date_end"`
	Balance   string `json:"balance"`
}

// ---- targets ----

type targetRequest struct {
	AccountID     int64  `json:"account_id"`
	Name          string `json:"name"`
	Balance       string `json:"balance,omitempty"`
	BalanceTarget string `json:"balance_target"`
	DateEnd       string `json:"date_end"`
	SVG           string `json:"svg,omitempty"`
	Icon          string `json:"icon,omitempty"`
}

// ---- limits ----

type limitRequest struct {
	CategoryID *int64 `json:"category_id,omitempty"`
	Balance    string `json:"balance"`
	DateUpdate string `json:"date_update,omitempty"`
}

// ---- projects and tasks ----

type projectRequest struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type taskRequest struct {
	ProjectID int64  `json:"project_id"`
	AccountID *int64 `json:"account_id,omitempty"`
	Name      string `json:"name"`
	DateEnd   string `json:"date_end"`
	Sum       string `json:"sum,omitempty"`
	Comments  string `json:"comments,omitempty"`
	Direction string `json:"moded,omitempty"`
	Completed bool   `json:"completed,omitempty"`
}

// ---- transactions ----

type transactionRequest struct {
	Sum        string `json:"sum"`
	Direction  string `json:"moded"`
	AccountID  int64  `json:"account_id"`
	CategoryID *int64 `json:"category_id,omitempty"`
	DebtID     *int64 `json:"debt_id,omitempty"`
	TargetID   *int64 `json:"target_id,omitempty"`
	TaskID     *int64 `json:"task_id,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"` // RFC3339; empty = now
}

// ---- recurring operations ----

type repeatRequest struct {
	Sum        string `json:"sum"`
	Direction  string `json:"moded"`
	Name       string `json:"name,omitempty"`
	StartDate  string `json:"start_date"`
	Interval   string `json:"interval"`
	Count      int    `json:"count"`
	AccountID  int64  `json:"account_id"`
	CategoryID *int64 `json:"category_id,omitempty"`
	DebtID     *int64 `json:"debt_id,omitempty"`
	TargetID   *int64 `json:"target_id,omitempty"`
	LimitID    *int64 `json:"limit_id,omitempty"`
	TaskID     *int64 `json:"task_id,omitempty"`
}

type repeatListResponse struct {
	Items []*ledger.RepeatOperation `json:"items"`
	Total int                       `json:"total"`
}

// ---- scheduler ----

type jobResponse struct {
	Ran bool `json:"ran"`
}
