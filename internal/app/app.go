// Package app wires the process together: config, logging, the sequence
// runtime, the console front end, and the optional journal and heartbeat,
// all under one supervisor with an ordered shutdown.
package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"fibtick/internal/config"
	"fibtick/internal/console"
	"fibtick/internal/eventbus"
	"fibtick/internal/heartbeat"
	"fibtick/internal/journal"
	"fibtick/internal/runtime"
	"fibtick/internal/supervisor"
	logx "fibtick/pkg/logx"
	"fibtick/pkg/sdnotify"
)

// Options configure the process before any component starts.
type Options struct {
	ConfigPath string    // empty means compiled-in defaults and no file watching
	LogLevel   string    // overrides the file's logging.level when set
	In         io.Reader // console input; nil means stdin
	Out        io.Writer // console output; nil means stdout
}

type App struct {
	opts Options

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	rt    *runtime.Runtime
	cons  *console.Console
	print *console.Printer
	hb    *heartbeat.Service
	jrnl  journal.Journal

	done     chan struct{}
	doneOnce sync.Once
}

func New(opts Options) (*App, error) {
	var (
		cfgm *config.Manager
		cfg  *config.Config
	)
	if strings.TrimSpace(opts.ConfigPath) != "" {
		cfgm = config.NewManager(opts.ConfigPath)
		loaded, err := cfgm.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg, opts.LogLevel))
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	rtCfg, err := mapRuntimeConfig(cfg)
	if err != nil {
		return nil, err
	}
	rt := runtime.New(rtCfg, bus, log.With(logx.String("comp", "runtime")))

	cons := console.New(console.Config{In: opts.In, Out: opts.Out},
		rt, log.With(logx.String("comp", "console")))
	printer := console.NewPrinter(bus, opts.Out, log.With(logx.String("comp", "printer")))

	// Journal (optional)
	jcfg, err := mapJournalConfig(cfg)
	if err != nil {
		return nil, err
	}
	jrnl, err := journal.Open(jcfg, log.With(logx.String("comp", "journal")))
	if err != nil {
		return nil, err
	}
	if jrnl != nil {
		log.Info("journal enabled", logx.String("driver", jcfg.Driver), logx.String("path", jcfg.Path))
	}

	hb := heartbeat.New(mapHeartbeatConfig(cfg), rt, log.With(logx.String("comp", "heartbeat")))

	return &App{
		opts:  opts,
		cfgm:  cfgm,
		log:   log,
		logs:  logSvc,
		bus:   bus,
		rt:    rt,
		cons:  cons,
		print: printer,
		hb:    hb,
		jrnl:  jrnl,
		done:  make(chan struct{}),
	}, nil
}

// Runtime exposes the sequence runtime, mainly for tests that drive the
// app end to end.
func (a *App) Runtime() *runtime.Runtime { return a.rt }

// Done is closed when the app wants the process to shut down: the console
// exited (exit verb or EOF) or the supervisor canceled on a fatal error.
func (a *App) Done() <-chan struct{} { return a.done }

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.NewSupervisor(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	if a.cfgm != nil {
		a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
		a.cfgm.SetValidator(a.validateConfig)
	}

	if err := a.hb.Start(a.sup.Context()); err != nil {
		return err
	}

	if a.jrnl != nil {
		rec := journal.NewRecorder(a.jrnl, a.bus, a.log.With(logx.String("comp", "journal")))
		a.sup.Go("journal.record", rec.Run)
	}

	a.sup.Go("console.print", a.print.Run)

	// A clean console return (exit verb, EOF) must not cancel the
	// supervisor: Stop closes the runtime first so the final transition
	// still reaches the journal before the recorder unwinds.
	a.sup.Go("console.loop", a.cons.Run)

	if a.cfgm != nil {
		sub := a.cfgm.Subscribe(8)
		a.sup.Go0("config.reload", func(c context.Context) {
			defer a.cfgm.Unsubscribe(sub)
			lastApplied := a.cfgm.Get()
			for {
				select {
				case <-c.Done():
					return
				case newCfg, ok := <-sub:
					if !ok {
						return
					}
					// Coalesce bursts: keep only the latest config.
					for {
						select {
						case newer := <-sub:
							if newer != nil {
								newCfg = newer
							}
						default:
							goto APPLY
						}
					}
				APPLY:
					a.applyReload(lastApplied, newCfg)
					lastApplied = newCfg
				}
			}
		})

		a.sup.Go("config.watch", func(c context.Context) error {
			return a.cfgm.Watch(c)
		})
	}

	go a.watchDone()

	sdnotify.Ready(a.log)
	a.log.Info("app started")
	return nil
}

// watchDone folds the two shutdown triggers into the single Done channel
// main selects on.
func (a *App) watchDone() {
	select {
	case <-a.cons.Done():
	case <-a.sup.Context().Done():
	}
	a.doneOnce.Do(func() { close(a.done) })
}

func (a *App) validateConfig(ctx context.Context, cfg *config.Config) error {
	_ = ctx
	if _, err := mapRuntimeConfig(cfg); err != nil {
		return err
	}
	if _, err := mapJournalConfig(cfg); err != nil {
		return err
	}
	if err := heartbeat.ParseSchedule(cfg.Heartbeat.Schedule); err != nil {
		return fmt.Errorf("heartbeat.schedule: %w", err)
	}
	return nil
}

// applyReload folds a committed config reload into the running components.
// Logging goes first so everything after obeys the new level.
func (a *App) applyReload(oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeChange(oldCfg, newCfg)
	for _, s := range sections {
		if s == "journal" {
			a.log.Warn("journal config changed; restart required for changes to take effect")
			break
		}
	}

	a.logs.Apply(mapLoggingConfig(newCfg, a.opts.LogLevel))

	rtCfg, err := mapRuntimeConfig(newCfg)
	if err != nil {
		// The validator runs before commit, so this path means the
		// validator and the mapper disagree; keep the previous tuning.
		a.log.Warn("invalid runtime config; keeping previous", logx.Err(err))
	} else {
		a.rt.ApplyConfig(rtCfg)
	}

	a.hb.Apply(mapHeartbeatConfig(newCfg))

	if len(sections) > 0 {
		fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
		a.log.Info("config reloaded", fields...)
	} else {
		a.log.Info("config reloaded (no changes)")
	}
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	sdnotify.Stopping(a.log)

	// Helper: run a shutdown step with an upper bound so one component
	// can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()

		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			// respect the caller's deadline; never extend it
			if dl, ok := ctx.Deadline(); ok {
				rem := time.Until(dl)
				if rem <= 0 {
					max = 0
				} else if rem < max {
					max = rem
				}
			}
			if max > 0 {
				stepCtx, cancel = context.WithTimeout(ctx, max)
				defer cancel()
			}
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)))
		}
	}

	// Close the runtime before canceling the supervisor: Close publishes
	// the final exit transition and the recorder is still consuming.
	step("runtime", 2*time.Second, func(c context.Context) error { return a.rt.Close(c) })
	step("heartbeat", 2*time.Second, func(c context.Context) error { a.hb.Stop(c); return nil })

	// Now unwind the supervised loops. The recorder drains its buffer on
	// the way out.
	a.sup.Cancel()
	step("supervisor", 3*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	if a.jrnl != nil {
		step("journal", 1*time.Second, func(context.Context) error { return a.jrnl.Close() })
	}

	a.doneOnce.Do(func() { close(a.done) })
	a.log.Info("stopped", logx.Uint64("events_published", a.bus.Stats().Published))
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
