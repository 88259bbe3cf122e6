/*
server.go - HTTP router

PURPOSE:
  Wires URLs to handlers with chi. Auth endpoints are public; everything
  else sits behind the Bearer-token middleware. Manual job triggers are
  admin-only.

ROUTE GROUPS:
  /api/auth/*          register, login, refresh (public)
  /api/users/*         profile, subscription, feature limits
  /api/accounts/*      account CRUD
  /api/categories/*    category CRUD
  /api/debts/*         debt CRUD
  /api/targets/*       savings target CRUD
  /api/limits/*        budget limit CRUD
  /api/projects/*      project/task CRUD
  /api/transactions/*  posting, listing, deletion
  /api/repeat/*        recurring operation definitions and instances
  /api/admin/jobs/*    manual sweep and limit reset
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Polvory/Easy-Plan-back/ledger"
)

// NewRouter creates the router with all routes configured.
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)
		})

		// Everything below requires a valid access token.
		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", h.Me)
				r.Post("/subscription", h.Upgrade)
				r.Get("/feature-limits", h.GetFeatureLimits)
			})

			r.Route("/accounts", func(r chi.Router) {
				r.Get("/", h.ListAccounts)
				r.Post("/", h.CreateAccount)
				r.Get("/{id}", h.GetAccount)
				r.Put("/{id}", h.UpdateAccount)
				r.Delete("/{id}", h.DeleteAccount)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", h.ListCategories)
				r.Post("/", h.CreateCategory)
				r.Delete("/{id}", h.DeleteCategory)
			})

			r.Route("/debts", func(r chi.Router) {
				r.Get("/", h.ListDebts)
				r.Post("/", h.CreateDebt)
				r.Delete("/{id}", h.DeleteDebt)
			})

			r.Route("/targets", func(r chi.Router) {
				r.Get("/", h.ListTargets)
				r.Post("/", h.CreateTarget)
				r.Delete("/{id}", h.DeleteTarget)
			})

			r.Route("/limits", func(r chi.Router) {
				r.Get("/", h.ListLimits)
				r.Post("/", h.CreateLimit)
				r.Delete("/{id}", h.DeleteLimit)
			})

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", h.ListProjects)
				r.Post("/", h.CreateProject)
				r.Delete("/{id}", h.DeleteProject)
				r.Get("/{id}/tasks", h.ListTasks)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", h.CreateTask)
				r.Put("/{id}", h.UpdateTask)
				r.Delete("/{id}", h.DeleteTask)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", h.ListTransactions)
				r.Post("/", h.CreateTransaction)
				r.Delete("/{id}", h.DeleteTransaction)
			})

			r.Route("/repeat", func(r chi.Router) {
				r.Get("/", h.ListRepeatOperations)
				r.Post("/", h.CreateRepeatOperations)
				r.Post("/{id}/complete", h.CompleteRepeatOperation)
				r.Delete("/{id}", h.DeleteRepeatOperation)
			})

			r.Route("/admin/jobs", func(r chi.Router) {
				r.Use(RequireRole(ledger.RoleAdmin))
				r.Post("/sweep", h.RunSweep)
				r.Post("/limit-reset", h.RunLimitReset)
			})
		})
	})

	return r
}
