package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/mkhara/regionmaster/internal/catalog"
	"github.com/mkhara/regionmaster/internal/config"
	"github.com/mkhara/regionmaster/internal/leaderboard"
	"github.com/mkhara/regionmaster/internal/logging"
	"github.com/mkhara/regionmaster/internal/quiz"
	"github.com/mkhara/regionmaster/internal/server"
	ws "github.com/mkhara/regionmaster/pkg/http/ws"
)

// Application aggregates shared infrastructure (catalog, store, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	store *leaderboard.Store
	hub   *ws.Hub
	http  *http.Server
}

// New bootstraps config, logger, catalog, leaderboard store and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	cat, err := catalog.Load(cfg.Catalog.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	logger.Info().Int("regions", cat.Len()).Str("path", cfg.Catalog.Path).Msg("catalog loaded")

	store, err := leaderboard.Open(cfg.Leaderboard.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open leaderboard: %w", err)
	}

	hub := ws.NewHub(logger)

	quizHandler := quiz.NewHandler(
		cat,
		store,
		hub,
		quiz.SessionConfig{
			CorrectAdvanceDelay: cfg.Quiz.CorrectAdvanceDelay,
			WrongAdvanceDelay:   cfg.Quiz.WrongAdvanceDelay,
		},
		quiz.GeneratorConfig{
			TargetCount: cfg.Quiz.TargetQuestionCount,
			MaxAttempts: cfg.Quiz.MaxGenerateAttempts,
		},
		logger,
	)

	apiServer := server.NewHTTPServer(cfg, logger, cat, store, quizHandler.HandleWebSocket)

	return &Application{
		cfg:    cfg,
		logger: logger,
		store:  store,
		hub:    hub,
		http:   apiServer,
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	// Closing the hub tears down live sessions; their read pumps exit and
	// cancel any pending transition timers.
	a.hub.CloseAll()

	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("leaderboard shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
