package config

import (
	"strings"

	logx "fibtick/pkg/logx"
)

// SummarizeChange returns a compact list of changed sections plus
// structured attrs describing the new values, for the reload log line.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Runtime != newCfg.Runtime {
		changed = append(changed, "runtime")
		attrs = append(attrs,
			logx.String("runtime.period", strings.TrimSpace(newCfg.Runtime.Period)),
			logx.String("runtime.floor", strings.TrimSpace(newCfg.Runtime.Floor)),
			logx.Int("runtime.batch", newCfg.Runtime.Batch),
			logx.Bool("runtime.ceiling_set", strings.TrimSpace(newCfg.Runtime.Ceiling) != ""),
		)
	}

	if !journalEqual(oldCfg.Journal, newCfg.Journal) {
		changed = append(changed, "journal")
		driver := ""
		if newCfg.Journal != nil {
			driver = strings.TrimSpace(newCfg.Journal.Driver)
		}
		attrs = append(attrs, logx.String("journal.driver", driver))
	}

	if oldCfg.Heartbeat != newCfg.Heartbeat {
		changed = append(changed, "heartbeat")
		attrs = append(attrs,
			logx.Bool("heartbeat.enabled", newCfg.Heartbeat.Enabled),
			logx.String("heartbeat.schedule", strings.TrimSpace(newCfg.Heartbeat.Schedule)),
		)
	}

	return changed, attrs
}

func journalEqual(a, b *JournalConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
