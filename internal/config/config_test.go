package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "4000" {
		t.Errorf("Port = %q, want 4000", cfg.Port)
	}
	if cfg.LedCount != 60 {
		t.Errorf("LedCount = %d, want 60", cfg.LedCount)
	}
	if cfg.LedGpioPin != 18 {
		t.Errorf("LedGpioPin = %d, want 18", cfg.LedGpioPin)
	}
	if cfg.EngineTickRate != 100 {
		t.Errorf("EngineTickRate = %d, want 100", cfg.EngineTickRate)
	}
	if cfg.LedHighRateDuration != 2*time.Second {
		t.Errorf("LedHighRateDuration = %v, want 2s", cfg.LedHighRateDuration)
	}
	if cfg.WeatherPollInterval != 10*time.Minute {
		t.Errorf("WeatherPollInterval = %v, want 10m", cfg.WeatherPollInterval)
	}
	if cfg.DayStartHour != 7 || cfg.NightStartHour != 20 {
		t.Errorf("day window = %d-%d, want 7-20", cfg.DayStartHour, cfg.NightStartHour)
	}
	if cfg.ButtonEnabled {
		t.Error("ButtonEnabled should default to false")
	}
	if cfg.PulseSecret != "" {
		t.Error("PulseSecret should default to empty (command disabled)")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("LED_COUNT", "120")
	t.Setenv("LED_ENABLED", "false")
	t.Setenv("PULSE_SECRET", "hunter2")
	t.Setenv("WEATHER_POLL_INTERVAL", "60")

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.LedCount != 120 {
		t.Errorf("LedCount = %d, want 120", cfg.LedCount)
	}
	if cfg.LedEnabled {
		t.Error("LedEnabled should be false")
	}
	if cfg.PulseSecret != "hunter2" {
		t.Errorf("PulseSecret = %q, want hunter2", cfg.PulseSecret)
	}
	if cfg.WeatherPollInterval != time.Minute {
		t.Errorf("WeatherPollInterval = %v, want 1m", cfg.WeatherPollInterval)
	}
}

func TestInvalidEnvValuesFallBack(t *testing.T) {
	t.Setenv("LED_COUNT", "lots")
	t.Setenv("LED_ENABLED", "maybe")

	cfg := Load()

	if cfg.LedCount != 60 {
		t.Errorf("LedCount = %d, want default 60", cfg.LedCount)
	}
	if !cfg.LedEnabled {
		t.Error("LedEnabled should fall back to default true")
	}
}

func TestEnvironmentModes(t *testing.T) {
	cfg := &Config{Env: "development"}
	if !cfg.IsDevelopment() || cfg.IsProduction() {
		t.Error("development flags wrong")
	}

	cfg.Env = "production"
	if cfg.IsDevelopment() || !cfg.IsProduction() {
		t.Error("production flags wrong")
	}
}
