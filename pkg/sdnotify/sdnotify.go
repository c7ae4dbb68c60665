// Package sdnotify sends best-effort readiness notifications to systemd.
//
// Outside a systemd unit (no NOTIFY_SOCKET) every call is a no-op, so it is
// safe to use unconditionally, including for plain interactive runs.
package sdnotify

import (
	"github.com/coreos/go-systemd/v22/daemon"

	logx "fibtick/pkg/logx"
)

// Ready notifies systemd that the process finished starting up.
func Ready(log logx.Logger) {
	notify(daemon.SdNotifyReady, log)
}

// Stopping notifies systemd that the process began shutting down.
func Stopping(log logx.Logger) {
	notify(daemon.SdNotifyStopping, log)
}

func notify(state string, log logx.Logger) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		if !log.IsZero() {
			log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		}
		return
	}
	if sent && !log.IsZero() {
		log.Debug("sd_notify sent", logx.String("state", state))
	}
}
