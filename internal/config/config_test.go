package config_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morflash/morflash/internal/config"
	"github.com/morflash/morflash/internal/scheduler"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"ADDR", "DATA_DIR", "LOG_LEVEL", "GENERATOR",
		"EXPORT_WORKER_COUNT", "EXPORT_QUEUE_SIZE",
		"EASE_FLOOR", "EASE_CEILING", "CORRECT_BONUS", "INCORRECT_PENALTY",
	} {
		t.Setenv(key, "")
	}

	cfg := config.Load()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "decks", cfg.DataDir)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "morflash/1.0", cfg.Generator)
	assert.Equal(t, 2, cfg.ExportWorkerCount)
	assert.Equal(t, 16, cfg.ExportQueueSize)
	assert.Equal(t, scheduler.DefaultParams(), cfg.SchedulerParams())
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ADDR", ":9999")
	t.Setenv("DATA_DIR", "/var/lib/morflash")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("EXPORT_WORKER_COUNT", "4")
	t.Setenv("EASE_FLOOR", "1.5")

	cfg := config.Load()

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, "/var/lib/morflash", cfg.DataDir)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, 4, cfg.ExportWorkerCount)
	assert.Equal(t, 1.5, cfg.SchedulerParams().EaseFloor)
	require.NoError(t, cfg.Validate())
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("EXPORT_WORKER_COUNT", "many")
	t.Setenv("EASE_CEILING", "high")

	cfg := config.Load()

	assert.Equal(t, 2, cfg.ExportWorkerCount)
	assert.Equal(t, scheduler.DefaultParams().EaseCeiling, cfg.EaseCeiling)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := config.Config{
		Addr:              "",
		DataDir:           "",
		LogLevel:          "LOUD",
		ExportWorkerCount: 0,
		ExportQueueSize:   16,
		EaseFloor:         0.5,
		EaseCeiling:       0.2,
		CorrectBonus:      -1,
		IncorrectPenalty:  0.2,
	}

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{"ADDR", "DATA_DIR", "LOG_LEVEL", "EXPORT_WORKER_COUNT", "EASE_FLOOR", "EASE_CEILING", "CORRECT_BONUS"} {
		assert.True(t, strings.Contains(msg, want), "expected %q in %q", want, msg)
	}
}

func TestValidate_SchedulerBounds(t *testing.T) {
	cfg := config.Load()
	cfg.EaseCeiling = cfg.EaseFloor - 0.1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EASE_CEILING")
}
