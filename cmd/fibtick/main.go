package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fibtick/internal/app"
)

func main() {
	var (
		cfgPath  string
		logLevel string
	)
	flag.StringVar(&cfgPath, "config", "", "path to config file (yaml or json); empty uses built-in defaults")
	flag.StringVar(&logLevel, "log-level", "", "override logging.level (trace, debug, info, warn, error)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(app.Options{ConfigPath: cfgPath, LogLevel: logLevel})
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	if err := a.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal start:", err)
		os.Exit(1)
	}

	reason := app.StopUnknown
	select {
	case <-ctx.Done():
		reason = app.StopSignal
	case <-a.Done():
		reason = app.StopConsole
		if a.Err() != nil {
			reason = app.StopFatalError
		}
	}

	_ = a.Stop(context.Background(), reason)

	if a.Err() != nil {
		os.Exit(1)
	}
}
