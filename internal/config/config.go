package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"regionmaster"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Catalog     Catalog
	Leaderboard Leaderboard
	Quiz        Quiz
}

// Catalog points at the externally supplied region data set.
type Catalog struct {
	Path string `env:"CATALOG_PATH" envDefault:"configs/regions.json"`
}

// Leaderboard configures the local high-score store.
type Leaderboard struct {
	DBPath string `env:"LEADERBOARD_DB_PATH" envDefault:"data/leaderboard.db"`
}

// Quiz groups gameplay defaults.
type Quiz struct {
	TargetQuestionCount int           `env:"QUIZ_TARGET_QUESTION_COUNT" envDefault:"20"`
	MaxGenerateAttempts int           `env:"QUIZ_MAX_GENERATE_ATTEMPTS" envDefault:"2000"`
	CorrectAdvanceDelay time.Duration `env:"QUIZ_CORRECT_ADVANCE_DELAY" envDefault:"1500ms"`
	WrongAdvanceDelay   time.Duration `env:"QUIZ_WRONG_ADVANCE_DELAY" envDefault:"1s"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
