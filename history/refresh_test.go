package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kylesnowschwartz/claude-history/history"
	"github.com/kylesnowschwartz/claude-history/parser"
)

// fakeParser serves canned entries per path and counts calls.
type fakeParser struct {
	mu      sync.Mutex
	files   map[string][]parser.Entry
	calls   map[string]int
	total   atomic.Int32
	delay   time.Duration
	started chan struct{} // receives once per call when non-nil
	panicOn string
}

func newFakeParser() *fakeParser {
	return &fakeParser{files: map[string][]parser.Entry{}, calls: map[string]int{}}
}

func (p *fakeParser) set(path string, entries ...parser.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files[path] = entries
}

func (p *fakeParser) parse(path string) []parser.Entry {
	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.total.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	if path == p.panicOn {
		panic("disk on fire")
	}
	p.calls[path]++
	return append([]parser.Entry(nil), p.files[path]...)
}

func (p *fakeParser) callsFor(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[path]
}

const root = "/claude/projects"

var (
	fileA = filepath.Join(root, "-proj-a", "s1.jsonl")
	fileB = filepath.Join(root, "-proj-b", "s2.jsonl")
)

func newTestCoordinator(p *fakeParser) *history.Coordinator {
	return history.NewCoordinator(root, history.WithParseFunc(p.parse))
}

func seedTwoFiles(p *fakeParser) {
	p.set(fileA,
		userEntry("s1", "u1", "", "2025-01-01T00:00:00.000Z", "a"),
		assistantEntry("s1", "a1", "u1", "2025-01-01T00:00:01.000Z", "m1"),
	)
	p.set(fileB, userEntry("s2", "u2", "", "2025-01-02T00:00:00.000Z", "b"))
}

func TestRefresh_Idempotent(t *testing.T) {
	p := newFakeParser()
	seedTwoFiles(p)
	c := newTestCoordinator(p)
	ctx := context.Background()
	staleness := parser.StalenessMap{fileA: 1000, fileB: 2000}

	first, err := c.Refresh(ctx, staleness)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 2 {
		t.Fatalf("len(first) = %d, want 2", len(first))
	}
	callsAfterFirst := p.total.Load()

	second, err := c.Refresh(ctx, parser.StalenessMap{fileA: 1000, fileB: 2000})
	if err != nil {
		t.Fatal(err)
	}
	if p.total.Load() != callsAfterFirst {
		t.Errorf("second refresh parsed %d files, want 0", p.total.Load()-callsAfterFirst)
	}
	if &first[0] != &second[0] {
		t.Error("second refresh rebuilt chains; want the cached slice")
	}
}

func TestRefresh_ReparsesOnlyTouchedFile(t *testing.T) {
	p := newFakeParser()
	seedTwoFiles(p)
	c := newTestCoordinator(p)
	ctx := context.Background()

	before, err := c.Refresh(ctx, parser.StalenessMap{fileA: 1000, fileB: 2000})
	if err != nil {
		t.Fatal(err)
	}
	s2Before, ok := findChain(before, "s2")
	if !ok {
		t.Fatal("s2 missing after first refresh")
	}

	p.set(fileA,
		userEntry("s1", "u1", "", "2025-01-01T00:00:00.000Z", "a"),
		assistantEntry("s1", "a1", "u1", "2025-01-01T00:00:01.000Z", "m1"),
		userEntry("s1", "u3", "a1", "2025-01-01T00:00:02.000Z", "again"),
	)
	chains, err := c.Refresh(ctx, parser.StalenessMap{fileA: 1500, fileB: 2000})
	if err != nil {
		t.Fatal(err)
	}
	if got := p.callsFor(fileA); got != 2 {
		t.Errorf("fileA parsed %d times, want 2", got)
	}
	if got := p.callsFor(fileB); got != 1 {
		t.Errorf("fileB parsed %d times, want 1", got)
	}
	if got := uuids(chains[0].Messages); got != "u1,a1,u3" {
		t.Errorf("s1 order = %s, want u1,a1,u3", got)
	}
	s2After, ok := findChain(chains, "s2")
	if !ok {
		t.Fatal("s2 missing after second refresh")
	}
	if !reflect.DeepEqual(s2Before, s2After) {
		t.Errorf("untouched s2 chain changed:\nbefore %+v\nafter  %+v", s2Before, s2After)
	}
}

func findChain(chains []history.Chain, id string) (history.Chain, bool) {
	for _, c := range chains {
		if c.SessionID == id {
			return c, true
		}
	}
	return history.Chain{}, false
}

func TestRefresh_EvictsRemovedFiles(t *testing.T) {
	p := newFakeParser()
	seedTwoFiles(p)
	c := newTestCoordinator(p)
	ctx := context.Background()

	if _, err := c.Refresh(ctx, parser.StalenessMap{fileA: 1000, fileB: 2000}); err != nil {
		t.Fatal(err)
	}
	chains, err := c.Refresh(ctx, parser.StalenessMap{fileA: 1000})
	if err != nil {
		t.Fatal(err)
	}
	if len(chains) != 1 || chains[0].SessionID != "s1" {
		t.Fatalf("chains = %+v, want only s1", chains)
	}
	if c.CachedFiles() != 1 {
		t.Errorf("CachedFiles = %d, want 1", c.CachedFiles())
	}
}

func TestRefresh_TagsSourceProject(t *testing.T) {
	p := newFakeParser()
	p.set(fileB, userEntry("s2", "u2", "", "2025-01-02T00:00:00.000Z", "b"))
	c := newTestCoordinator(p)

	chains, err := c.Refresh(context.Background(), parser.StalenessMap{fileB: 1})
	if err != nil {
		t.Fatal(err)
	}
	// No cwd on the entry, so the path comes from the project directory.
	if chains[0].ProjectPath != "/proj/b" {
		t.Errorf("ProjectPath = %q, want /proj/b", chains[0].ProjectPath)
	}
}

func TestRefresh_SingleFlight(t *testing.T) {
	p := newFakeParser()
	seedTwoFiles(p)
	p.delay = 100 * time.Millisecond
	c := newTestCoordinator(p)
	staleness := parser.StalenessMap{fileA: 1000, fileB: 2000}

	const n = 10
	results := make([][]history.Chain, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.Refresh(context.Background(), staleness)
		}()
	}
	wg.Wait()

	for i := range n {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
	}
	if got := p.callsFor(fileA); got != 1 {
		t.Errorf("fileA parsed %d times, want 1", got)
	}
	if got := p.callsFor(fileB); got != 1 {
		t.Errorf("fileB parsed %d times, want 1", got)
	}
	for i := 1; i < n; i++ {
		if &results[i][0] != &results[0][0] {
			t.Errorf("caller %d got a different slice", i)
		}
	}
}

func TestRefresh_CancelledCallerDoesNotAbortRefresh(t *testing.T) {
	p := newFakeParser()
	seedTwoFiles(p)
	p.started = make(chan struct{}, 4)
	p.delay = 50 * time.Millisecond
	c := newTestCoordinator(p)
	staleness := parser.StalenessMap{fileA: 1000, fileB: 2000}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := c.Refresh(ctx, staleness)
		errc <- err
	}()
	<-p.started
	cancel()

	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	// The abandoned refresh still completes and populates the cache.
	deadline := time.Now().Add(5 * time.Second)
	for c.CachedFiles() != 2 {
		if time.Now().After(deadline) {
			t.Fatal("refresh never populated the cache")
		}
		time.Sleep(10 * time.Millisecond)
	}
	before := p.total.Load()
	if _, err := c.Refresh(context.Background(), staleness); err != nil {
		t.Fatal(err)
	}
	if p.total.Load() != before {
		t.Error("follow-up refresh re-parsed files the abandoned refresh already cached")
	}
}

func TestRefresh_CancelledBeforeStart(t *testing.T) {
	p := newFakeParser()
	c := newTestCoordinator(p)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Refresh(ctx, parser.StalenessMap{fileA: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if p.total.Load() != 0 {
		t.Error("cancelled refresh should not parse")
	}
}

func TestRefresh_PanicLeavesCacheIntact(t *testing.T) {
	p := newFakeParser()
	seedTwoFiles(p)
	c := newTestCoordinator(p)
	ctx := context.Background()
	staleness := parser.StalenessMap{fileA: 1000, fileB: 2000}

	first, err := c.Refresh(ctx, staleness)
	if err != nil {
		t.Fatal(err)
	}

	p.mu.Lock()
	p.panicOn = fileA
	p.mu.Unlock()
	if _, err := c.Refresh(ctx, parser.StalenessMap{fileA: 3000, fileB: 2000}); err == nil {
		t.Fatal("expected an error from a panicking parser")
	}
	if c.CachedFiles() != 2 {
		t.Errorf("CachedFiles = %d after failed refresh, want 2", c.CachedFiles())
	}

	again, err := c.Refresh(ctx, staleness)
	if err != nil {
		t.Fatal(err)
	}
	if &again[0] != &first[0] {
		t.Error("failed refresh replaced the cached chains")
	}
}

func TestClear_ForcesReparse(t *testing.T) {
	p := newFakeParser()
	seedTwoFiles(p)
	c := newTestCoordinator(p)
	ctx := context.Background()
	staleness := parser.StalenessMap{fileA: 1000, fileB: 2000}

	first, err := c.Refresh(ctx, staleness)
	if err != nil {
		t.Fatal(err)
	}
	c.Clear()
	if c.CachedFiles() != 0 {
		t.Errorf("CachedFiles = %d after Clear, want 0", c.CachedFiles())
	}
	second, err := c.Refresh(ctx, staleness)
	if err != nil {
		t.Fatal(err)
	}
	if p.callsFor(fileA) != 2 || p.callsFor(fileB) != 2 {
		t.Errorf("parse calls after Clear = %d/%d, want 2/2", p.callsFor(fileA), p.callsFor(fileB))
	}
	if &first[0] == &second[0] {
		t.Error("chains after Clear should be rebuilt")
	}
}

func TestClear_DuringRefreshDiscardsResult(t *testing.T) {
	p := newFakeParser()
	seedTwoFiles(p)
	p.started = make(chan struct{}, 4)
	p.delay = 50 * time.Millisecond
	c := newTestCoordinator(p)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Refresh(context.Background(), parser.StalenessMap{fileA: 1000, fileB: 2000})
	}()
	<-p.started
	c.Clear()
	<-done

	if c.CachedFiles() != 0 {
		t.Errorf("CachedFiles = %d, want 0: refresh wrote back after Clear", c.CachedFiles())
	}
}

func TestFingerprint(t *testing.T) {
	a := history.Fingerprint(parser.StalenessMap{"/x": 1, "/y": 2})
	b := history.Fingerprint(parser.StalenessMap{"/y": 2, "/x": 1})
	if a != b {
		t.Error("fingerprint depends on map order")
	}
	if a == history.Fingerprint(parser.StalenessMap{"/x": 1, "/y": 3}) {
		t.Error("fingerprint ignores mod time")
	}
	if a == history.Fingerprint(parser.StalenessMap{"/x": 1}) {
		t.Error("fingerprint ignores removed files")
	}
}

func TestStageCache(t *testing.T) {
	parse := func(string) []parser.Entry { return []parser.Entry{{}} }
	files, added, changed, removed, unchanged := history.StageCache(
		map[string]int64{"/keep": 1, "/touch": 1, "/gone": 1},
		parser.StalenessMap{"/keep": 1, "/touch": 2, "/new": 1},
		parse,
	)
	if added != 1 || changed != 1 || removed != 1 || unchanged != 1 {
		t.Errorf("stats = +%d ~%d -%d =%d, want 1 each", added, changed, removed, unchanged)
	}
	if _, ok := files["/gone"]; ok {
		t.Error("removed file still staged")
	}
	if files["/keep"] != 0 {
		t.Error("unchanged file was re-parsed")
	}
	if files["/touch"] != 1 || files["/new"] != 1 {
		t.Errorf("files = %v", files)
	}
}
