package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vibesense/vibesense/internal/logger"
)

type Config struct {
	Server ServerConfig
	DB     DBConfig
	Redis  RedisConfig
	AI     AIConfig
	Heart  HeartConfig
	Logger LoggerConfig
}

type ServerConfig struct {
	Host string
	Port string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Enabled bool
	Host    string
	Port    string
}

// AIConfig selects and configures the suggestion refinement provider.
// Provider "none" disables refinement entirely; the deterministic draft is
// then always the final answer.
type AIConfig struct {
	Provider      string // "gemini", "openai" or "none"
	GeminiAPIKey  string
	OpenAIAPIKey  string
	RefineTimeout time.Duration
}

// HeartConfig holds the smoothing and zone-classification tunables.
//
// SmoothingAlpha is the EWMA weight of the newest reading. With the default
// 0.4 a step change in true heart rate converges to within 5% of the new
// value in 6 readings ((1-0.4)^6 < 0.05).
//
// The zone thresholds partition smoothed BPM into bands; a boundary value
// belongs to the higher zone (60 is light, 170 is peak).
type HeartConfig struct {
	SmoothingAlpha float64
	MinBPM         float64
	MaxBPM         float64
	LightAt        float64
	ModerateAt     float64
	VigorousAt     float64
	PeakAt         float64
}

type LoggerConfig struct {
	Level      logger.LogLevel
	OutputPath string
	Format     string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.LevelDebug
	case "info":
		return logger.LevelInfo
	case "warn", "warning":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnvOrDefault("HOST", "0.0.0.0"),
			Port: getEnvOrDefault("PORT", "8765"),
		},
		DB: DBConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvOrDefault("DB_PORT", "5432"),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrDefault("DB_NAME", "vibesense"),
		},
		Redis: RedisConfig{
			Enabled: getEnvBool("REDIS_ENABLED", false),
			Host:    getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:    getEnvOrDefault("REDIS_PORT", "6379"),
		},
		AI: AIConfig{
			Provider:      strings.ToLower(getEnvOrDefault("AI_PROVIDER", "gemini")),
			GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
			OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
			RefineTimeout: time.Duration(getEnvFloat("REFINE_TIMEOUT_SECONDS", 6)) * time.Second,
		},
		Heart: HeartConfig{
			SmoothingAlpha: getEnvFloat("HEART_SMOOTHING_ALPHA", 0.4),
			MinBPM:         getEnvFloat("HEART_MIN_BPM", 30),
			MaxBPM:         getEnvFloat("HEART_MAX_BPM", 240),
			LightAt:        getEnvFloat("HEART_ZONE_LIGHT_AT", 60),
			ModerateAt:     getEnvFloat("HEART_ZONE_MODERATE_AT", 100),
			VigorousAt:     getEnvFloat("HEART_ZONE_VIGOROUS_AT", 140),
			PeakAt:         getEnvFloat("HEART_ZONE_PEAK_AT", 170),
		},
		Logger: LoggerConfig{
			Level:      parseLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
			OutputPath: getEnvOrDefault("LOG_OUTPUT", "stdout"),
			Format:     getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	h := c.Heart
	if h.SmoothingAlpha <= 0 || h.SmoothingAlpha > 1 {
		return fmt.Errorf("HEART_SMOOTHING_ALPHA must be in (0, 1], got %v", h.SmoothingAlpha)
	}
	if h.MinBPM <= 0 || h.MaxBPM <= h.MinBPM {
		return fmt.Errorf("heart BPM band [%v, %v] is invalid", h.MinBPM, h.MaxBPM)
	}
	if !(h.MinBPM < h.LightAt && h.LightAt < h.ModerateAt && h.ModerateAt < h.VigorousAt && h.VigorousAt < h.PeakAt && h.PeakAt < h.MaxBPM) {
		return fmt.Errorf("zone thresholds must be strictly increasing inside the BPM band")
	}
	switch c.AI.Provider {
	case "gemini", "openai", "none":
	default:
		return fmt.Errorf("AI_PROVIDER must be gemini, openai or none, got %q", c.AI.Provider)
	}
	if c.AI.RefineTimeout <= 0 {
		return fmt.Errorf("REFINE_TIMEOUT_SECONDS must be positive")
	}
	return nil
}
