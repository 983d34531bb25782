package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/morflash/morflash/internal/scheduler"
)

type Config struct {
	Addr     string
	DataDir  string
	LogLevel string

	// Generator is stamped into exported manifests.
	Generator string

	ExportWorkerCount int
	ExportQueueSize   int

	// Scheduler constants; the defaults match scheduler.DefaultParams.
	EaseFloor        float64
	EaseCeiling      float64
	CorrectBonus     float64
	IncorrectPenalty float64
}

// Load reads configuration from a .env file (if present) and environment
// variables, applying defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	def := scheduler.DefaultParams()
	return Config{
		Addr:              envOr("ADDR", ":8080"),
		DataDir:           envOr("DATA_DIR", "decks"),
		LogLevel:          envOr("LOG_LEVEL", "INFO"),
		Generator:         envOr("GENERATOR", "morflash/1.0"),
		ExportWorkerCount: envIntOr("EXPORT_WORKER_COUNT", 2),
		ExportQueueSize:   envIntOr("EXPORT_QUEUE_SIZE", 16),
		EaseFloor:         envFloatOr("EASE_FLOOR", def.EaseFloor),
		EaseCeiling:       envFloatOr("EASE_CEILING", def.EaseCeiling),
		CorrectBonus:      envFloatOr("CORRECT_BONUS", def.CorrectBonus),
		IncorrectPenalty:  envFloatOr("INCORRECT_PENALTY", def.IncorrectPenalty),
	}
}

// SchedulerParams returns the configured scheduler constants.
func (c Config) SchedulerParams() scheduler.Params {
	return scheduler.Params{
		EaseFloor:        c.EaseFloor,
		EaseCeiling:      c.EaseCeiling,
		CorrectBonus:     c.CorrectBonus,
		IncorrectPenalty: c.IncorrectPenalty,
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var problems []string

	if c.Addr == "" {
		problems = append(problems, "ADDR cannot be empty")
	}
	if c.DataDir == "" {
		problems = append(problems, "DATA_DIR cannot be empty")
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		problems = append(problems, fmt.Sprintf("LOG_LEVEL %q is not one of DEBUG, INFO, WARN, ERROR", c.LogLevel))
	}
	if c.ExportWorkerCount <= 0 {
		problems = append(problems, "EXPORT_WORKER_COUNT must be positive")
	}
	if c.ExportQueueSize <= 0 {
		problems = append(problems, "EXPORT_QUEUE_SIZE must be positive")
	}
	if c.EaseFloor < 1.0 {
		problems = append(problems, "EASE_FLOOR must be at least 1.0")
	}
	if c.EaseCeiling < c.EaseFloor {
		problems = append(problems, "EASE_CEILING must not be below EASE_FLOOR")
	}
	if c.CorrectBonus < 0 {
		problems = append(problems, "CORRECT_BONUS must not be negative")
	}
	if c.IncorrectPenalty < 0 {
		problems = append(problems, "INCORRECT_PENALTY must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envFloatOr(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("invalid value for %s=%q, using default %g", key, v, def)
	}
	return def
}
