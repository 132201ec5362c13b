package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	importeradapter "github.com/mfell/hornbill/internal/adapter/driven/importer"
	sqliteadapter "github.com/mfell/hornbill/internal/adapter/driven/sqlite"
	truelayeradapter "github.com/mfell/hornbill/internal/adapter/driven/truelayer"
	httphandler "github.com/mfell/hornbill/internal/adapter/driving/http"
	"github.com/mfell/hornbill/internal/application"
	"github.com/mfell/hornbill/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"import_interval", cfg.ImportInterval,
		"import_url", cfg.ImportURL,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode, 0600 on first create).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	tokenStore := sqliteadapter.NewTokenRepo(db)
	accountStore := sqliteadapter.NewAccountRepo(db)
	bankClient := truelayeradapter.NewClient(cfg.TrueLayerClientID, cfg.TrueLayerClientSecret)
	importClient := importeradapter.NewClient(cfg.ImportURL)

	// 6. Create services.
	tokenSvc := application.NewTokenService(tokenStore, bankClient, cfg.TrueLayerCode)
	importSvc := application.NewImportService(tokenSvc, accountStore, bankClient, importClient, cfg.ImportFrom)
	scheduler := application.NewScheduler(importSvc, cfg.ImportInterval)
	go scheduler.Start(ctx)

	// 7. Create HTTP handler and server.
	handler := httphandler.NewHandler(importSvc, accountStore, slog.Default())
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(handler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// 8. Log startup complete.
	slog.Info("hornbill started",
		"listen_addr", cfg.ListenAddr,
		"import_interval", cfg.ImportInterval,
	)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout for HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
