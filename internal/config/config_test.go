package config

import (
	"testing"
	"time"

	"fleetcore/internal/types"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SHEET_BRIDGE_URL", "http://localhost:8090")
}

func TestLoad_DefaultsWithRequiredOnly(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected defaults to load, got: %v", err)
	}

	if cfg.App.Environment != "local" || cfg.App.LogLevel != "info" {
		t.Errorf("app defaults = %+v", cfg.App)
	}
	if cfg.Store.DataDir != "./data" {
		t.Errorf("data dir = %q", cfg.Store.DataDir)
	}
	if cfg.Scheduler.TickInterval != time.Minute {
		t.Errorf("tick interval = %v", cfg.Scheduler.TickInterval)
	}
	if cfg.Cycle.GoalThreshold != 4 {
		t.Errorf("goal threshold = %d", cfg.Cycle.GoalThreshold)
	}
	if cfg.Cycle.ExpiredRetention != 720*time.Hour {
		t.Errorf("expired retention = %v", cfg.Cycle.ExpiredRetention)
	}
	if cfg.Sync.ChunkSize != 5 || cfg.Sync.FlushInterval != 30*time.Second {
		t.Errorf("sync defaults = %+v", cfg.Sync)
	}
	if cfg.Bridge.SheetBaseURL != "http://localhost:8090" {
		t.Errorf("sheet bridge url = %q", cfg.Bridge.SheetBaseURL)
	}
}

func TestLoad_MissingBridgeURL(t *testing.T) {
	t.Setenv("SHEET_BRIDGE_URL", "")

	_, err := Load()
	if !types.IsCode(err, types.ErrCodeStartupConfig) {
		t.Errorf("error = %v, want code %s", err, types.ErrCodeStartupConfig)
	}
}

func TestLoad_OverridesHonored(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("SCHEDULER_TICK", "30s")
	t.Setenv("MONTHLY_GOAL_THRESHOLD", "5")
	t.Setenv("MISSION_WEBHOOK_URL", "https://chat.example.com/hooks/missions")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.App.Environment != "prod" || cfg.App.LogLevel != "warn" {
		t.Errorf("app overrides = %+v", cfg.App)
	}
	if cfg.Scheduler.TickInterval != 30*time.Second {
		t.Errorf("tick interval = %v", cfg.Scheduler.TickInterval)
	}
	if cfg.Cycle.GoalThreshold != 5 {
		t.Errorf("goal threshold = %d", cfg.Cycle.GoalThreshold)
	}
	if cfg.Bridge.MissionWebhookURL != "https://chat.example.com/hooks/missions" {
		t.Errorf("mission webhook = %q", cfg.Bridge.MissionWebhookURL)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown environment", "APP_ENV", "staging"},
		{"unknown log level", "LOG_LEVEL", "trace"},
		{"tick below minimum", "SCHEDULER_TICK", "100ms"},
		{"unparseable duration", "CYCLE_INTERVAL", "tomorrow"},
		{"zero chunk size", "SYNC_CHUNK_SIZE", "0"},
		{"malformed bridge url", "SHEET_BRIDGE_URL", "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if !types.IsCode(err, types.ErrCodeStartupConfig) {
				t.Errorf("error = %v, want code %s", err, types.ErrCodeStartupConfig)
			}
		})
	}
}

func TestLoad_ForcesUTC(t *testing.T) {
	setRequiredEnv(t)

	if _, err := Load(); err != nil {
		t.Fatal(err)
	}
	if time.Local != time.UTC {
		t.Error("process local time should be pinned to UTC")
	}
}
