package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clearminutes/internal/blob"
	"clearminutes/internal/config"
	"clearminutes/internal/groq"
	"clearminutes/internal/ingest"
	"clearminutes/internal/orchestrator"
	"clearminutes/internal/server"
	"clearminutes/internal/store"
	"clearminutes/internal/summarize"
	"clearminutes/internal/transcribe"
)

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Logging.Level)}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg.Storage.DBPath, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	blobs := blob.NewStore(cfg.Storage.UploadDir, logger)

	client := groq.NewClient(groq.Config{
		APIKey:          cfg.Groq.APIKey,
		BaseURL:         cfg.Groq.BaseURL,
		TranscribeModel: cfg.Groq.TranscribeModel,
		ChatModel:       cfg.Groq.ChatModel,
		Timeout:         cfg.Groq.Timeout,
	}, logger)

	orch := orchestrator.New(
		st,
		blobs,
		transcribe.NewAdapter(client),
		summarize.NewAdapter(client),
		orchestrator.Config{Workers: cfg.Worker.Count, JobTimeout: cfg.Worker.JobTimeout},
		logger,
	)
	if err := orch.Start(ctx); err != nil {
		logger.Error("failed to start orchestrator", "error", err)
		os.Exit(1)
	}

	if cfg.Storage.WatchDir != "" {
		watcher, err := ingest.New(cfg.Storage.WatchDir, orch, logger)
		if err != nil {
			logger.Error("failed to start watch-folder intake", "error", err)
			os.Exit(1)
		}
		defer watcher.Close()
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("watch-folder intake stopped", "error", err)
			}
		}()
	}

	app := server.NewApp(logger, orch, st, blobs)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server started", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		_ = srv.Close()
	}

	cancel()
	orch.Stop()
	logger.Info("server stopped")
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
