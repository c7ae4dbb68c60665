package app

import (
	"fmt"
	"math/big"
	"strings"

	"fibtick/internal/config"
	"fibtick/internal/heartbeat"
	"fibtick/internal/journal"
	"fibtick/internal/runtime"
	logx "fibtick/pkg/logx"
)

// The map functions translate the file schema into component configs and
// carry the validation for their section, so the reload validator can run
// them against a candidate config before anything is committed.

func mapLoggingConfig(cfg *config.Config, levelOverride string) logx.Config {
	out := logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		ThrottlePerSec: cfg.Logging.ThrottlePerSec,
	}
	if strings.TrimSpace(levelOverride) != "" {
		out.Level = levelOverride
	}
	return out
}

func mapRuntimeConfig(cfg *config.Config) (runtime.Config, error) {
	period, err := config.ParseDurationOrDefault("runtime.period", cfg.Runtime.Period, runtime.DefaultPeriod)
	if err != nil {
		return runtime.Config{}, err
	}
	floor, err := config.ParseDurationOrDefault("runtime.floor", cfg.Runtime.Floor, runtime.MinPeriod)
	if err != nil {
		return runtime.Config{}, err
	}
	if cfg.Runtime.Batch < 0 {
		return runtime.Config{}, fmt.Errorf("runtime.batch must be >= 0, got %d", cfg.Runtime.Batch)
	}

	out := runtime.Config{
		Period: period,
		Floor:  floor,
		Batch:  cfg.Runtime.Batch,
	}
	if raw := strings.TrimSpace(cfg.Runtime.Ceiling); raw != "" {
		ceiling, ok := new(big.Int).SetString(raw, 10)
		if !ok || ceiling.Sign() < 0 {
			return runtime.Config{}, fmt.Errorf("runtime.ceiling must be a non-negative integer, got %q", raw)
		}
		out.Ceiling = ceiling
	}
	return out, nil
}

func mapJournalConfig(cfg *config.Config) (journal.Config, error) {
	if cfg.Journal == nil {
		return journal.Config{}, nil
	}
	jc := cfg.Journal

	driver := strings.ToLower(strings.TrimSpace(jc.Driver))
	switch driver {
	case "", "none":
		return journal.Config{}, nil
	case "file", "sqlite", "sqlite3":
	default:
		return journal.Config{}, fmt.Errorf("unknown journal.driver: %s", jc.Driver)
	}

	busy, err := config.ParseDurationField("journal.busy_timeout", jc.BusyTimeout)
	if err != nil {
		return journal.Config{}, err
	}
	return journal.Config{
		Driver:      driver,
		Path:        strings.TrimSpace(jc.Path),
		BusyTimeout: busy,
	}, nil
}

func mapHeartbeatConfig(cfg *config.Config) heartbeat.Config {
	return heartbeat.Config{
		Enabled:  cfg.Heartbeat.Enabled,
		Schedule: cfg.Heartbeat.Schedule,
	}
}
