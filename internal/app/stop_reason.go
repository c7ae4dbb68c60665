package app

// StopReason says what triggered the shutdown; it goes into the final log
// lines so a post-mortem can tell a signal from a typed exit.
type StopReason string

const (
	StopUnknown    StopReason = "unknown"
	StopSignal     StopReason = "signal"
	StopConsole    StopReason = "console exit"
	StopFatalError StopReason = "fatal error"
)
