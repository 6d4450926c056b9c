/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the back-office ledger server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env / environment, flag overrides)
  2. Build the process logger
  3. Initialize SQLite store
  4. Create API handler with dependencies
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -addr    Listen address (overrides SKYTRAIL_ADDR)
  -db      SQLite database path (overrides SKYTRAIL_DB)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/backoffice.db"

  # Run with in-memory database
  ./server -db=":memory:"

SEE ALSO:
  - config/config.go: Environment configuration
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skytrail/backoffice/api"
	"github.com/skytrail/backoffice/config"
	"github.com/skytrail/backoffice/store/sqlite"
)

func main() {
	cfg := config.Load()

	// Flags override the environment
	addr := flag.String("addr", cfg.Addr, "listen address")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	log := config.NewLogger(cfg)

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	handler := api.NewHandler(store, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", *addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}
