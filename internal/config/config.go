// Package config loads and validates the runtime configuration for the
// coordination core. The loading sequence is:
//  1. Enforce UTC to prevent wall-clock drift bugs in deadline math.
//  2. Load a .env file via godotenv (non-fatal if absent).
//  3. Populate the Config struct from the environment via envconfig.
//  4. Validate the struct with go-playground/validator.
//
// Any failure is fatal: the core must not start partially configured.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"fleetcore/internal/types"
)

// Config is the complete runtime configuration.
type Config struct {
	App       AppConfig
	Store     StoreConfig
	Scheduler SchedulerConfig
	Cycle     CycleConfig
	Sync      SyncConfig
	Bridge    BridgeConfig
}

// AppConfig holds process-level settings.
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"oneof=local dev prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	DataDir string `envconfig:"DATA_DIR" default:"./data" validate:"required"`
}

// SchedulerConfig holds mission reminder loop settings.
type SchedulerConfig struct {
	TickInterval time.Duration `envconfig:"SCHEDULER_TICK" default:"1m" validate:"min=1s"`
}

// CycleConfig holds order cycle engine settings.
type CycleConfig struct {
	TemplatePath     string        `envconfig:"ORDER_TEMPLATE_PATH" default:"./templates/orders.yaml" validate:"required"`
	Interval         time.Duration `envconfig:"CYCLE_INTERVAL" default:"24h" validate:"min=1m"`
	GoalThreshold    int           `envconfig:"MONTHLY_GOAL_THRESHOLD" default:"4" validate:"min=1"`
	ExpiredRetention time.Duration `envconfig:"EXPIRED_ORDER_RETENTION" default:"720h" validate:"min=1h"`
}

// SyncConfig holds profile batching queue settings.
type SyncConfig struct {
	FlushInterval time.Duration `envconfig:"SYNC_FLUSH_INTERVAL" default:"30s" validate:"min=1s"`
	ChunkSize     int           `envconfig:"SYNC_CHUNK_SIZE" default:"5" validate:"min=1"`
	ChunkPacing   time.Duration `envconfig:"SYNC_CHUNK_PACING" default:"2s" validate:"min=0"`
}

// BridgeConfig holds the external collaborator endpoints.
type BridgeConfig struct {
	SheetBaseURL      string        `envconfig:"SHEET_BRIDGE_URL" validate:"required,url"`
	MissionWebhookURL string        `envconfig:"MISSION_WEBHOOK_URL" validate:"omitempty,url"`
	OrderWebhookURL   string        `envconfig:"ORDER_WEBHOOK_URL" validate:"omitempty,url"`
	HTTPTimeout       time.Duration `envconfig:"BRIDGE_HTTP_TIMEOUT" default:"10s" validate:"min=1s"`
	UserAgent         string        `envconfig:"BRIDGE_USER_AGENT" default:"FleetCore/1.0"`
}

// Load performs the full loading sequence described in the package comment.
func Load() (*Config, error) {
	time.Local = time.UTC

	// A .env file is a local-development convenience, not a requirement.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, types.NewAppError(types.ErrCodeStartupConfig,
			"processing environment configuration", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, types.NewAppError(types.ErrCodeStartupConfig,
			fmt.Sprintf("configuration validation failed: %v", err), err)
	}

	return &cfg, nil
}
