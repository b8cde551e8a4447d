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

	githubadapter "github.com/ericfisherdev/autopatch/internal/adapter/driven/github"
	openaiadapter "github.com/ericfisherdev/autopatch/internal/adapter/driven/openai"
	sqliteadapter "github.com/ericfisherdev/autopatch/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/autopatch/internal/adapter/driving/http"
	"github.com/ericfisherdev/autopatch/internal/application"
	"github.com/ericfisherdev/autopatch/internal/config"
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
		"model", cfg.OpenAIModel,
		"threshold", cfg.SecurityThreshold,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
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

	// 5. Wire driven adapters.
	store := sqliteadapter.NewAnalysisRepo(db)
	ghClient := githubadapter.NewClient(cfg.GitHubToken)
	assessor := openaiadapter.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)

	// 6. Wire application services.
	remediator := application.NewRemediator(ghClient, store)
	commitSvc := application.NewCommitService(ghClient, store, assessor, remediator, cfg.SecurityThreshold)
	syncSvc := application.NewSyncService(ghClient, commitSvc, cfg.SyncPageSize)
	reportSvc := application.NewReportService(store, assessor)

	// 7. Create HTTP handler and register routes.
	apiHandler := httphandler.NewHandler(store, syncSvc, reportSvc, cfg.WebhookSecret, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Manual sync rounds run inside the request and can hold several
		// assessor calls.
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// 8. Log startup complete.
	slog.Info("autopatch started",
		"listen_addr", cfg.ListenAddr,
		"threshold", cfg.SecurityThreshold,
		"page_size", cfg.SyncPageSize,
	)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout to drain in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
