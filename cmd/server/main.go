package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"pos-reconciliation/internal/api"
	"pos-reconciliation/internal/config"
	"pos-reconciliation/internal/gateway"
	"pos-reconciliation/internal/logging"
	"pos-reconciliation/internal/storage"
	"pos-reconciliation/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	flag.Parse()

	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	cfg, err := config.LoadOrEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.NewLoggerWithSystem(cfg.Logging, "api")

	mode, err := cfg.Reconciliation.ModeValue()
	if err != nil {
		log.Fatalf("Invalid reconciliation mode: %v", err)
	}
	opts, err := cfg.Reconciliation.Options()
	if err != nil {
		log.Fatalf("Invalid reconciliation options: %v", err)
	}

	store, err := storage.Open(cfg.Storage.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open session store: %v", err)
	}
	defer store.Close()

	reconciliationUseCase := usecase.NewReconciliationUseCase(gateway.NewFileLedgerRepository(), store, logger)
	handler := api.NewReconciliationHandler(reconciliationUseCase, api.Defaults{
		Mode:    mode,
		Options: opts,
		Persist: true,
	}, logger)

	if logging.ParseLevel(cfg.Logging.Level) == slog.LevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(handler, cfg.Server, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr, "database", cfg.Storage.DatabasePath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
