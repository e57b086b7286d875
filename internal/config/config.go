// Package config provides configuration management for the lamp server.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the server.
type Config struct {
	// Server configuration
	Port string
	Env  string

	// Database configuration
	DatabaseURL string

	// LED strip configuration
	LedCount            int
	LedGpioPin          int
	LedEnabled          bool
	LedRefreshRate      int           // Hz (active)
	LedIdleRate         int           // Hz (idle)
	LedHighRateDuration time.Duration // Duration to stay in high rate after changes

	// Engine configuration
	EngineTickRate int // Hz

	// MQTT feed configuration (Adafruit-IO-style feeds)
	MQTTBroker       string
	MQTTUsername     string
	MQTTKey          string
	MQTTCommandFeed  string
	MQTTGeofenceFeed string
	MQTTStateFeed    string

	// Private pulse pre-shared code; empty disables the command
	PulseSecret string

	// Weather configuration
	WeatherAPIKey       string
	WeatherCity         string
	WeatherCountry      string
	WeatherPollInterval time.Duration

	// Day/night window for weather color variants
	DayStartHour   int
	NightStartHour int

	// Button configuration
	ButtonEnabled  bool
	ButtonGpioChip string
	ButtonGpioPin  int

	// CORS configuration
	CORSOrigin string
}

// Load loads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		// Server
		Port: getEnv("PORT", "4000"),
		Env:  getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "file:./lamp.db"),

		// LED strip
		LedCount:            getEnvInt("LED_COUNT", 60),
		LedGpioPin:          getEnvInt("LED_GPIO_PIN", 18),
		LedEnabled:          getEnvBool("LED_ENABLED", true),
		LedRefreshRate:      getEnvInt("LED_REFRESH_RATE", 60),
		LedIdleRate:         getEnvInt("LED_IDLE_RATE", 1),
		LedHighRateDuration: time.Duration(getEnvInt("LED_HIGH_RATE_DURATION", 2000)) * time.Millisecond,

		// Engine
		EngineTickRate: getEnvInt("ENGINE_TICK_RATE", 100),

		// MQTT
		MQTTBroker:       getEnv("MQTT_BROKER", "tcp://io.adafruit.com:1883"),
		MQTTUsername:     getEnv("MQTT_USERNAME", ""),
		MQTTKey:          getEnv("MQTT_KEY", ""),
		MQTTCommandFeed:  getEnv("MQTT_COMMAND_FEED", ""),
		MQTTGeofenceFeed: getEnv("MQTT_GEOFENCE_FEED", ""),
		MQTTStateFeed:    getEnv("MQTT_STATE_FEED", ""),

		// Pulse
		PulseSecret: getEnv("PULSE_SECRET", ""),

		// Weather
		WeatherAPIKey:       getEnv("WEATHER_API_KEY", ""),
		WeatherCity:         getEnv("WEATHER_CITY", ""),
		WeatherCountry:      getEnv("WEATHER_COUNTRY", ""),
		WeatherPollInterval: time.Duration(getEnvInt("WEATHER_POLL_INTERVAL", 600)) * time.Second,

		// Day window
		DayStartHour:   getEnvInt("DAY_START_HOUR", 7),
		NightStartHour: getEnvInt("NIGHT_START_HOUR", 20),

		// Button
		ButtonEnabled:  getEnvBool("BUTTON_ENABLED", false),
		ButtonGpioChip: getEnv("BUTTON_GPIO_CHIP", "gpiochip0"),
		ButtonGpioPin:  getEnvInt("BUTTON_GPIO_PIN", 17),

		// CORS
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default value.
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
