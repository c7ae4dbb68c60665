// Package heartbeat logs a periodic one-line snapshot of the runtime, so a
// long-lived process leaves a pulse in its logs even when nobody is typing.
package heartbeat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"fibtick/internal/runtime"
	logx "fibtick/pkg/logx"
)

// DefaultSchedule fires once a minute.
const DefaultSchedule = "@every 1m"

// Config controls whether and how often the heartbeat fires. Schedule is a
// cron spec (seconds field optional) or a @-descriptor.
type Config struct {
	Enabled  bool
	Schedule string // empty means DefaultSchedule
}

// Source is the slice of the runtime the heartbeat observes.
type Source interface {
	Snapshot() runtime.Snapshot
}

// ParseSchedule checks a spec against the heartbeat's cron grammar, so a
// config reload can reject a bad schedule before anything restarts.
func ParseSchedule(spec string) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil
	}
	_, err := newParser().Parse(spec)
	return err
}

func newParser() cron.Parser {
	// SecondOptional allows both 5-field and 6-field (with seconds) specs.
	return cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// Service owns the cron instance behind the heartbeat. Start and Stop
// bracket the app lifecycle; Apply reconciles a reloaded config in place.
type Service struct {
	log logx.Logger
	src Source

	parser cron.Parser

	mu      sync.Mutex
	cfg     Config
	c       *cron.Cron
	started bool
}

func New(cfg Config, src Source, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:    log,
		src:    src,
		parser: newParser(),
		cfg:    cfg,
	}
}

// Enabled reports the current config flag. (Thread-safe; Apply may run
// concurrently.)
func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// Start brings the heartbeat up if enabled. A disabled service starts as
// an idle shell that a later Apply can bring to life.
func (s *Service) Start(ctx context.Context) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	return s.startLocked()
}

func (s *Service) startLocked() error {
	if s.c != nil || !s.cfg.Enabled {
		return nil
	}
	spec := s.specLocked()
	c := cron.New(cron.WithParser(s.parser))
	if _, err := c.AddFunc(spec, s.beat); err != nil {
		return fmt.Errorf("heartbeat schedule %q: %w", spec, err)
	}
	c.Start()
	s.c = c
	s.log.Info("heartbeat started", logx.String("schedule", spec))
	return nil
}

// Stop halts firing and waits for an in-flight beat to finish, bounded by
// ctx.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()

	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		// best-effort
	}
	s.log.Info("heartbeat stopped", logx.Duration("took", time.Since(start)))
}

// Apply folds in a reloaded config. Before Start it only records the new
// settings; after, an enable, disable, or schedule change restarts the
// cron instance in place.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldEnabled := s.cfg.Enabled
	oldSpec := s.specLocked()
	s.cfg = cfg

	if !s.started {
		return
	}
	if oldEnabled == cfg.Enabled && oldSpec == s.specLocked() {
		return
	}
	s.restartLocked()
}

// restartLocked tears the running cron down and brings it back up under
// the current config. beat never takes s.mu, so blocking on the stop here
// cannot deadlock.
func (s *Service) restartLocked() {
	if s.c != nil {
		<-s.c.Stop().Done()
		s.c = nil
	}
	if err := s.startLocked(); err != nil {
		s.log.Error("heartbeat restart failed", logx.Err(err))
	}
}

func (s *Service) specLocked() string {
	spec := strings.TrimSpace(s.cfg.Schedule)
	if spec == "" {
		spec = DefaultSchedule
	}
	return spec
}

// beat emits the snapshot line. It runs on cron's goroutine and touches
// only the source's own synchronized state.
func (s *Service) beat() {
	snap := s.src.Snapshot()
	fields := []logx.Field{
		logx.String("phase", snap.Phase.String()),
		logx.Duration("period", snap.Period),
		logx.Int("batch", snap.Batch),
		logx.Uint64("ticks", snap.Ticks),
		logx.Uint64("terms", snap.Terms),
	}
	if snap.RunID != "" {
		fields = append(fields, logx.String("run_id", snap.RunID))
	}
	if snap.Ceiling != nil {
		fields = append(fields, logx.String("ceiling", snap.Ceiling.String()))
	}
	if snap.Current.B != nil {
		fields = append(fields, logx.Int("digits", len(snap.Current.B.Text(10))))
	}
	s.log.Info("heartbeat", fields...)
}
