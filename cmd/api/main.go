package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/app"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/config"
	apphttp "github.com/mayo124/aiAdaptiveLearningEnv18/internal/http"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/logging"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return &rag.ConfigurationError{Key: "LOG_LEVEL", Err: err}
	}
	defer func() { _ = logger.Sync() }()

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	h := apphttp.NewHandler(components.Service, components.Words, components.Counter, apphttp.HandlerConfig{
		AskTimeout:   cfg.Server.AskTimeout,
		LearnTimeout: cfg.Server.LearnTimeout,
	}, logger)
	router := apphttp.NewRouter(h, apphttp.RouterConfig{
		CORSOrigins: cfg.Server.CORSOrigins,
		Metrics:     components.Metrics,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API listening",
			zap.String("addr", srv.Addr),
			zap.String("subject", cfg.RAG.Subject),
			zap.String("store", components.Store.Name()),
			zap.String("llm", cfg.LLM.Provider),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
