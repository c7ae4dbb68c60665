package config

// Config is the full file schema. Every key is optional; zero values fall
// back to compiled-in defaults at mapping time (internal/app).
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Runtime   RuntimeConfig   `json:"runtime"`
	Journal   *JournalConfig  `json:"journal,omitempty"`
	Heartbeat HeartbeatConfig `json:"heartbeat,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`

	// ThrottlePerSec caps debug/trace lines per second (0 disables).
	// A fast tick period can otherwise flood the log.
	ThrottlePerSec int `json:"throttle_per_sec,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// RuntimeConfig tunes the sequence runtime.
//
// All durations are Go duration strings (e.g. "500ms", "2s", "1m").
//
// Defaults (when fields are omitted/zero):
//   - period: "1s"
//   - floor: "200ms" (at most five blocks per second)
//   - batch: 5
//   - ceiling: "" (unbounded)
//
// Hot reload semantics: floor and batch apply immediately; period and
// ceiling only replace the defaults that the reset command restores, so a
// file edit never overrides a speed or max the user typed interactively.
type RuntimeConfig struct {
	Period string `json:"period,omitempty"`
	Floor  string `json:"floor,omitempty"`
	Batch  int    `json:"batch,omitempty"`

	// Ceiling is a non-negative integer in decimal, arbitrary precision.
	Ceiling string `json:"ceiling,omitempty"`
}

// JournalConfig controls the optional run journal.
//
// Example:
//
//	"journal": { "driver": "file", "path": "./fibtick_journal" }
//
// Driver and path are fixed at startup; editing them under a live process
// only logs a restart-required warning.
type JournalConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// HeartbeatConfig controls the periodic status snapshot log line.
//
// Schedule accepts cron specs with an optional leading seconds field,
// descriptors like "@hourly", and "@every 90s".
type HeartbeatConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"` // default: "@every 1m"
}

// Default returns the compiled-in configuration used when no config file is
// given. It must stay valid under the same checks a file goes through.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}
