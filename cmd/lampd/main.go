// Package main is the entry point for the presence lamp server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/presencelamp/presencelamp-go/internal/config"
	"github.com/presencelamp/presencelamp-go/internal/database"
	"github.com/presencelamp/presencelamp-go/internal/database/models"
	"github.com/presencelamp/presencelamp-go/internal/database/repositories"
	"github.com/presencelamp/presencelamp-go/internal/engine"
	"github.com/presencelamp/presencelamp-go/internal/services/broadcast"
	"github.com/presencelamp/presencelamp-go/internal/services/button"
	"github.com/presencelamp/presencelamp-go/internal/services/mqttfeed"
	"github.com/presencelamp/presencelamp-go/internal/services/pubsub"
	"github.com/presencelamp/presencelamp-go/internal/services/strip"
	"github.com/presencelamp/presencelamp-go/internal/services/version"
	"github.com/presencelamp/presencelamp-go/internal/services/weather"
	"github.com/presencelamp/presencelamp-go/pkg/openweather"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	printBanner(cfg)

	// Connect to database
	db, err := database.Connect(database.Config{
		URL:         cfg.DatabaseURL,
		MaxIdleConn: 5,
		MaxOpenConn: 10,
		Debug:       cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&models.Setting{},
		&models.EventPlayback{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	settingRepo := repositories.NewSettingRepository(db)
	playbackRepo := repositories.NewEventPlaybackRepository(db)

	// Create and initialize the LED strip
	stripService := strip.NewService(strip.Config{
		Enabled:          cfg.LedEnabled,
		LedCount:         cfg.LedCount,
		GpioPin:          cfg.LedGpioPin,
		RefreshRateHz:    cfg.LedRefreshRate,
		IdleRateHz:       cfg.LedIdleRate,
		HighRateDuration: cfg.LedHighRateDuration,
	})
	if err := stripService.Initialize(); err != nil {
		log.Printf("Warning: strip initialization failed: %v", err)
		// Continue anyway - the engine still runs against the logical buffer
	}

	ps := pubsub.New()

	// Weather collaborator
	var fetcher weather.Fetcher
	if cfg.WeatherAPIKey != "" && cfg.WeatherCity != "" {
		fetcher = &openweather.Client{
			APIKey:  cfg.WeatherAPIKey,
			City:    cfg.WeatherCity,
			Country: cfg.WeatherCountry,
		}
	}

	// Create the engine with persisted state restored
	opts := engine.Options{
		PulseSecret:    cfg.PulseSecret,
		DayStartHour:   cfg.DayStartHour,
		NightStartHour: cfg.NightStartHour,
		Playback:       repositories.NewPlaybackStore(playbackRepo),
		// Fresh-lamp default; a persisted value (including 0) replaces it.
		StaticBrightness: 255,
		OnSnapshot: func(snap engine.Snapshot) {
			ps.Publish(pubsub.TopicSnapshot, snap)
		},
	}
	restoreState(settingRepo, &opts)

	eng := engine.New(stripService, opts)

	weatherService := weather.NewService(fetcher, eng, cfg.WeatherPollInterval)
	// RequestRefresh never blocks, so it is safe to fire under the engine lock.
	eng.SetWeatherRefresh(weatherService.RequestRefresh)

	// Persist externally visible state changes for restart recovery.
	go persistSnapshots(ps, eng, settingRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go weatherService.Run(ctx)
	go eng.Run(ctx, cfg.EngineTickRate)

	// MQTT control and presence feeds
	mqttService := mqttfeed.NewService(mqttfeed.Config{
		Broker:       cfg.MQTTBroker,
		Username:     cfg.MQTTUsername,
		Key:          cfg.MQTTKey,
		CommandFeed:  cfg.MQTTCommandFeed,
		GeofenceFeed: cfg.MQTTGeofenceFeed,
		StateFeed:    cfg.MQTTStateFeed,
	}, eng, ps)
	if cfg.MQTTUsername != "" {
		if err := mqttService.Connect(ctx); err != nil {
			log.Printf("Warning: MQTT connection failed: %v", err)
			// paho keeps retrying in the background
		}
	} else {
		log.Println("MQTT feeds disabled (no credentials configured)")
	}

	// Physical button
	var buttonService *button.Service
	if cfg.ButtonEnabled {
		buttonService = button.NewService(button.Config{
			Chip: cfg.ButtonGpioChip,
			Pin:  cfg.ButtonGpioPin,
		}, eng)
		if err := buttonService.Start(); err != nil {
			log.Printf("Warning: button initialization failed: %v", err)
			buttonService = nil
		}
	}

	// WebSocket broadcast hub and HTTP API
	hub := broadcast.NewHub(eng, ps, cfg.CORSOrigin, cfg.IsDevelopment())
	hub.Start()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      hub.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on http://localhost:%s\n", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Cleanup services in reverse order
	cancel()
	if buttonService != nil {
		buttonService.Stop()
	}
	mqttService.Disconnect()
	hub.Stop()
	stripService.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// restoreState loads the persisted baseline mode and static settings into
// the engine options. Missing or unreadable settings keep the defaults.
func restoreState(repo *repositories.SettingRepository, opts *engine.Options) {
	ctx := context.Background()

	if s, err := repo.FindByKey(ctx, repositories.SettingBaselineMode); err == nil && s != nil {
		if s.Value == "static" {
			opts.Baseline = engine.ModeStatic
		} else if mode, ok := engine.ParseMode(s.Value); ok {
			opts.Baseline = mode
		}
	}
	if s, err := repo.FindByKey(ctx, repositories.SettingStaticColor); err == nil && s != nil {
		if c, ok := engine.ParseHexColor(s.Value); ok {
			opts.StaticColor = c
		}
	}
	if s, err := repo.FindByKey(ctx, repositories.SettingStaticBrightness); err == nil && s != nil {
		if b, err := strconv.Atoi(s.Value); err == nil && b >= 0 && b <= 255 {
			opts.StaticBrightness = uint8(b)
		}
	}
}

// persistSnapshots saves the baseline state whenever it changes.
func persistSnapshots(ps *pubsub.PubSub, eng *engine.Engine, repo *repositories.SettingRepository) {
	sub := ps.Subscribe(pubsub.TopicSnapshot, 16)
	defer ps.Unsubscribe(sub)

	for msg := range sub.Channel {
		if _, ok := msg.(engine.Snapshot); !ok {
			continue
		}

		ctx := context.Background()
		mode := eng.Baseline()
		color, brightness := eng.StaticState()

		if _, err := repo.Upsert(ctx, repositories.SettingBaselineMode, mode.String()); err != nil {
			log.Printf("Warning: failed to persist baseline mode: %v", err)
		}
		if _, err := repo.Upsert(ctx, repositories.SettingStaticColor, engine.HexColor(color)); err != nil {
			log.Printf("Warning: failed to persist static color: %v", err)
		}
		if _, err := repo.Upsert(ctx, repositories.SettingStaticBrightness, strconv.Itoa(int(brightness))); err != nil {
			log.Printf("Warning: failed to persist static brightness: %v", err)
		}
	}
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println("============================================")
	fmt.Println("  Presence Lamp Server")
	fmt.Printf("  Version: %s\n", version.Version)
	fmt.Printf("  Build:   %s\n", version.BuildTime)
	fmt.Printf("  Commit:  %s\n", version.GitCommit)
	fmt.Println("============================================")
	fmt.Printf("  Environment: %s\n", cfg.Env)
	fmt.Printf("  Port:        %s\n", cfg.Port)
	fmt.Printf("  Database:    %s\n", cfg.DatabaseURL)
	fmt.Printf("  LEDs:        %d on GPIO %d (enabled: %v)\n", cfg.LedCount, cfg.LedGpioPin, cfg.LedEnabled)
	fmt.Println("============================================")
}
