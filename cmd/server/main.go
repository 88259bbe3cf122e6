/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Easy Plan backend: configuration, logging,
  storage, domain components, scheduler, HTTP server, graceful shutdown.

STARTUP SEQUENCE:
  1. Load config from environment
  2. Configure logrus (JSON, level from LOG_LEVEL)
  3. Open SQLite store and migrate schema
  4. Wire poster, recurrence engine, quota gate, auth
  5. Start the cron scheduler (daily sweep + limit reset)
  6. Start HTTP server

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections, drain for up to 30s
  2. Stop the scheduler and wait for a running job to finish
  3. Close the database

SEE ALSO:
  - config/config.go: environment variables and defaults
  - api/server.go: router configuration
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Polvory/Easy-Plan-back/api"
	"github.com/Polvory/Easy-Plan-back/auth"
	"github.com/Polvory/Easy-Plan-back/config"
	"github.com/Polvory/Easy-Plan-back/ledger"
	"github.com/Polvory/Easy-Plan-back/quota"
	"github.com/Polvory/Easy-Plan-back/recurrence"
	"github.com/Polvory/Easy-Plan-back/store/sqlite"
)

func main() {
	cfg := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	poster := ledger.NewPoster(store, log)
	engine := recurrence.NewEngine(store, poster, log)
	gate := quota.NewGate(store, log)
	tokens := auth.NewManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	authSvc := auth.NewService(store, tokens, gate, log)

	scheduler := api.NewScheduler(engine, poster, log)
	if err := scheduler.Start(cfg.SweepSchedule, cfg.LimitResetSchedule); err != nil {
		log.WithError(err).Fatal("failed to start scheduler")
	}

	handler := api.NewHandler(store, poster, engine, gate, authSvc, tokens, log)
	router := api.NewRouter(handler, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
	scheduler.Stop()
	log.Info("server stopped")
}
