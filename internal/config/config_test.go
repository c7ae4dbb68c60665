package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
logging:
  level: debug
  console: true
  file:
    enabled: true
    path: ./fib.log
runtime:
  period: 2s
  floor: 100ms
  batch: 8
  ceiling: "144"
journal:
  driver: file
  path: ./journal
heartbeat:
  enabled: true
  schedule: "@every 30s"
`)

	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.File.Enabled {
		t.Fatalf("logging section mismatch: %+v", cfg.Logging)
	}
	if cfg.Runtime.Period != "2s" || cfg.Runtime.Floor != "100ms" || cfg.Runtime.Batch != 8 {
		t.Fatalf("runtime section mismatch: %+v", cfg.Runtime)
	}
	if cfg.Runtime.Ceiling != "144" {
		t.Fatalf("ceiling = %q, want 144", cfg.Runtime.Ceiling)
	}
	if cfg.Journal == nil || cfg.Journal.Driver != "file" {
		t.Fatalf("journal section mismatch: %+v", cfg.Journal)
	}
	if !cfg.Heartbeat.Enabled || cfg.Heartbeat.Schedule != "@every 30s" {
		t.Fatalf("heartbeat section mismatch: %+v", cfg.Heartbeat)
	}
}

func TestLoadJSONPassthrough(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"runtime": {"batch": 3}}`)

	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Runtime.Batch != 3 {
		t.Fatalf("batch = %d, want 3", cfg.Runtime.Batch)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		file string
		body string
	}{
		{name: "top level", file: "a.yaml", body: "speeed: fast\n"},
		{name: "nested", file: "b.yaml", body: "runtime:\n  periods: 2s\n"},
		{name: "json", file: "c.json", body: `{"runtime": {"floor": "1s", "flor": "1s"}}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeConfig(t, tt.file, tt.body)
			if _, err := NewManager(path).Load(); err == nil {
				t.Fatal("expected unknown-key error")
			}
		})
	}
}

func TestLoadRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"runtime": {}}{"logging": {}}`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected trailing-data error")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{name: "empty is zero", raw: "", want: 0},
		{name: "spaces only", raw: "   ", want: 0},
		{name: "millis", raw: "750ms", want: 750 * time.Millisecond},
		{name: "compound", raw: "1m30s", want: 90 * time.Second},
		{name: "negative rejected", raw: "-1s", wantErr: true},
		{name: "bare number rejected", raw: "5", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDurationField("runtime.period", tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDurationField(%q): expected error", tt.raw)
				}
				if !strings.Contains(err.Error(), "runtime.period") {
					t.Fatalf("error %q does not name the key", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDurationField(%q) error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("ParseDurationField(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSummarizeChange(t *testing.T) {
	t.Parallel()
	oldCfg := Default()
	newCfg := Default()
	newCfg.Logging.Level = "debug"
	newCfg.Runtime.Batch = 10
	newCfg.Heartbeat = HeartbeatConfig{Enabled: true, Schedule: "@every 1m"}

	changed, attrs := SummarizeChange(oldCfg, newCfg)
	want := []string{"logging", "runtime", "heartbeat"}
	if len(changed) != len(want) {
		t.Fatalf("changed = %v, want %v", changed, want)
	}
	for i := range want {
		if changed[i] != want[i] {
			t.Fatalf("changed = %v, want %v", changed, want)
		}
	}
	if len(attrs) == 0 {
		t.Fatal("expected structured attrs for changed sections")
	}

	if c, _ := SummarizeChange(newCfg, newCfg); len(c) != 0 {
		t.Fatalf("identical configs reported changes: %v", c)
	}
}

func TestJournalChangeDetected(t *testing.T) {
	t.Parallel()
	oldCfg := &Config{}
	newCfg := &Config{Journal: &JournalConfig{Driver: "sqlite", Path: "x.db"}}

	changed, _ := SummarizeChange(oldCfg, newCfg)
	if len(changed) != 1 || changed[0] != "journal" {
		t.Fatalf("changed = %v, want [journal]", changed)
	}
}
