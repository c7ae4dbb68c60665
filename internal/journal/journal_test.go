package journal

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fibtick/internal/eventbus"
	"fibtick/internal/runtime"
	logx "fibtick/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", "  NONE "} {
		j, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q) error: %v", driver, err)
		}
		if j != nil {
			t.Fatalf("Open(%q) = %T, want nil", driver, j)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "badger"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestFileJournalAppends(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "journal")

	j, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}

	ctx := context.Background()
	entries := []Entry{
		{Kind: KindRun, RunID: "r1", Action: "start", Phase: "running", Seed: "(0, 1)"},
		{Kind: KindBlock, RunID: "r1", Seq: 1, Terms: 5, FirstTerm: "0", LastTerm: "3"},
		{Kind: KindConfig, Period: "500ms", Batch: 5, Ceiling: "100"},
	}
	for _, e := range entries {
		if err := j.Append(ctx, e); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := j.Append(ctx, Entry{Kind: KindRun}); err != ErrClosed {
		t.Fatalf("Append after close error = %v, want ErrClosed", err)
	}

	f, err := os.Open(path + ".jsonl")
	if err != nil {
		t.Fatalf("open journal file: %v", err)
	}
	defer f.Close()

	var got []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("bad journal line %q: %v", sc.Text(), err)
		}
		got = append(got, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan error: %v", err)
	}

	if len(got) != len(entries) {
		t.Fatalf("journal holds %d entries, want %d", len(got), len(entries))
	}
	for i, want := range entries {
		if got[i].At.IsZero() {
			t.Fatalf("entry %d: timestamp not stamped", i)
		}
		if got[i].Kind != want.Kind || got[i].RunID != want.RunID || got[i].Action != want.Action {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], want)
		}
	}
	if got[1].FirstTerm != "0" || got[1].LastTerm != "3" {
		t.Fatalf("block terms = %q..%q, want 0..3", got[1].FirstTerm, got[1].LastTerm)
	}
}

func TestSQLiteJournalAppends(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(Config{Driver: "sqlite", Path: path, BusyTimeout: time.Second}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}

	ctx := context.Background()
	if err := j.Append(ctx, Entry{Kind: KindRun, RunID: "r1", Action: "start", Phase: "running"}); err != nil {
		t.Fatalf("Append run error: %v", err)
	}
	if err := j.Append(ctx, Entry{Kind: KindBlock, RunID: "r1", Seq: 1, Terms: 2, FirstTerm: "5", LastTerm: "8", Truncated: true}); err != nil {
		t.Fatalf("Append block error: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if n != 2 {
		t.Fatalf("events count = %d, want 2", n)
	}

	var firstTerm, lastTerm string
	var truncated int
	err = db.QueryRow(`SELECT first_term, last_term, truncated FROM events WHERE kind = ?`, KindBlock).
		Scan(&firstTerm, &lastTerm, &truncated)
	if err != nil {
		t.Fatalf("block query: %v", err)
	}
	if firstTerm != "5" || lastTerm != "8" || truncated != 1 {
		t.Fatalf("block row = (%s, %s, %d), want (5, 8, 1)", firstTerm, lastTerm, truncated)
	}
}

// memJournal captures appended entries for recorder tests.
type memJournal struct {
	mu      sync.Mutex
	entries []Entry
}

func (m *memJournal) Append(ctx context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memJournal) Close() error { return nil }

func (m *memJournal) snapshot() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

func TestEntryFromMappings(t *testing.T) {
	t.Parallel()

	run := eventbus.Event{Type: runtime.EventRun, Time: time.Now(), Data: runtime.RunEvent{
		RunID: "r1", Phase: runtime.PhaseRunning, Action: "start", Seed: "(0, 1)",
	}}
	ent, ok := entryFrom(run)
	if !ok || ent.Kind != KindRun || ent.Phase != "running" || ent.Seed != "(0, 1)" {
		t.Fatalf("run mapping = %+v ok=%v", ent, ok)
	}

	block := eventbus.Event{Type: runtime.EventBlock, Time: time.Now(), Data: runtime.BlockEvent{
		RunID: "r1", Seq: 3, Terms: []*big.Int{big.NewInt(5), big.NewInt(8), big.NewInt(13)},
	}}
	ent, ok = entryFrom(block)
	if !ok || ent.Kind != KindBlock || ent.Terms != 3 || ent.FirstTerm != "5" || ent.LastTerm != "13" {
		t.Fatalf("block mapping = %+v ok=%v", ent, ok)
	}

	empty := eventbus.Event{Type: runtime.EventBlock, Data: runtime.BlockEvent{RunID: "r1", Truncated: true}}
	ent, ok = entryFrom(empty)
	if !ok || ent.FirstTerm != "" || ent.LastTerm != "" || !ent.Truncated {
		t.Fatalf("empty block mapping = %+v ok=%v", ent, ok)
	}

	cfg := eventbus.Event{Type: runtime.EventConfig, Data: runtime.ConfigEvent{
		Period: 500 * time.Millisecond, Batch: 5, Ceiling: "100",
	}}
	ent, ok = entryFrom(cfg)
	if !ok || ent.Kind != KindConfig || ent.Period != "500ms" || ent.Ceiling != "100" {
		t.Fatalf("config mapping = %+v ok=%v", ent, ok)
	}

	if _, ok := entryFrom(eventbus.Event{Type: "other", Data: 42}); ok {
		t.Fatal("unrelated event must not map to an entry")
	}
}

func TestRecorderJournalsBusEvents(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	mem := &memJournal{}
	rec := NewRecorder(mem, bus, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = rec.Run(ctx)
	}()

	// Give Run a moment to subscribe before publishing.
	time.Sleep(20 * time.Millisecond)
	bus.Publish(eventbus.Event{Type: runtime.EventRun, Data: runtime.RunEvent{
		RunID: "r1", Phase: runtime.PhaseRunning, Action: "start",
	}})
	bus.Publish(eventbus.Event{Type: runtime.EventBlock, Data: runtime.BlockEvent{
		RunID: "r1", Seq: 1, Terms: []*big.Int{big.NewInt(1), big.NewInt(1)},
	}})

	deadline := time.Now().Add(2 * time.Second)
	for len(mem.snapshot()) < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("recorder did not stop")
	}

	got := mem.snapshot()
	if len(got) != 2 {
		t.Fatalf("journaled %d entries, want 2", len(got))
	}
	if got[0].Kind != KindRun || got[1].Kind != KindBlock {
		t.Fatalf("entry kinds = %s, %s", got[0].Kind, got[1].Kind)
	}
}
