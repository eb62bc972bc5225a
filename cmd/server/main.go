package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phuslu/log"

	"github.com/orcatt/crayon-bs/internal/adapter/repository/postgres"
	"github.com/orcatt/crayon-bs/internal/adapter/rest"
	"github.com/orcatt/crayon-bs/internal/config"
	"github.com/orcatt/crayon-bs/internal/usecase/batch"
	"github.com/orcatt/crayon-bs/internal/usecase/ledger"
	"github.com/orcatt/crayon-bs/internal/usecase/valuation"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	// 1. Load configuration (defaults -> file -> env)
	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := log.Logger{
		Level:      log.ParseLevel(cfg.Logging.Level),
		TimeFormat: time.RFC3339,
		Writer:     &log.ConsoleWriter{Writer: os.Stderr},
	}

	// 2. Setup the position store
	db, err := postgres.NewDB(postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	uow := postgres.NewUnitOfWork(db)

	// 3. Initialize services (use cases)
	ledgerService := ledger.NewService(uow)
	valuationService := valuation.NewService(uow)
	batchCoordinator := batch.NewCoordinator(uow)

	// 4. Start HTTP server
	router := chi.NewRouter()
	server := rest.NewServer(ledgerService, valuationService, batchCoordinator, cfg.Auth.APIToken, logger)
	server.Mount(router)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to serve")
		}
	}()

	waitForShutdown(httpServer, logger)
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(server *http.Server, logger log.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	logger.Info().Msg("http server stopped")
}
