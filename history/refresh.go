package history

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kylesnowschwartz/claude-history/parser"
)

// ParseFunc reads one log file into entries. It must not fail: unreadable
// files yield whatever could be read.
type ParseFunc func(path string) []parser.Entry

// refreshKey is the single singleflight key; there is only ever one refresh.
const refreshKey = "refresh"

// Coordinator keeps the chains for a projects directory up to date.
//
// It owns two cache layers: parsed entries per file, and the chains built
// from them together with a fingerprint of the inputs. Refresh re-parses
// only files whose modification time moved and rebuilds chains only when
// the fingerprint changes. At most one refresh runs at a time; concurrent
// callers share its result.
type Coordinator struct {
	root   string
	parse  ParseFunc
	build  BuildOptions
	logger *slog.Logger

	group singleflight.Group

	mu          sync.Mutex
	files       entryCache
	fingerprint string
	chains      []Chain
	gen         uint64 // bumped by Clear
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithParseFunc replaces the file parser. Tests use it to count and slow
// down parses.
func WithParseFunc(fn ParseFunc) CoordinatorOption {
	return func(c *Coordinator) { c.parse = fn }
}

// WithBuildOptions sets the options passed to BuildChains.
func WithBuildOptions(opts BuildOptions) CoordinatorOption {
	return func(c *Coordinator) { c.build = opts }
}

// WithLogger sets the logger. The default discards.
func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = logger }
}

// NewCoordinator returns a Coordinator for the projects directory root.
// root is used to tag entries with the project directory they came from.
func NewCoordinator(root string, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{root: root, files: entryCache{}}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = orDiscard(c.logger)
	if c.build.Logger == nil {
		c.build.Logger = c.logger
	}
	if c.parse == nil {
		c.parse = func(path string) []parser.Entry {
			return parser.ReadEntries(path, c.logger)
		}
	}
	return c
}

// Refresh brings the caches in line with staleness and returns the chains.
//
// A caller arriving while a refresh is in flight waits for that refresh and
// receives the same slice. If ctx ends first Refresh returns ctx.Err(); the
// refresh itself carries on and still populates the caches. When nothing
// changed since the last refresh the previous slice is returned as is.
//
// The returned slice and its chains are shared and must not be modified.
func (c *Coordinator) Refresh(ctx context.Context, staleness parser.StalenessMap) ([]Chain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		return c.refresh(staleness)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Chain), nil
	}
}

// refresh does the work behind Refresh. Nothing is committed until every
// step has succeeded, so a failure leaves the previous caches intact.
func (c *Coordinator) refresh(staleness parser.StalenessMap) (chains []Chain, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("refresh panicked", "panic", r)
			chains, err = nil, fmt.Errorf("refresh conversations: %v", r)
		}
	}()

	c.mu.Lock()
	gen, prev := c.gen, c.files
	prevPrint, prevChains := c.fingerprint, c.chains
	c.mu.Unlock()

	start := time.Now()
	files, st := prev.stage(staleness, c.parseTagged)
	fp := fingerprint(staleness)

	if prevPrint != "" && fp == prevPrint {
		chains = prevChains
	} else {
		chains = BuildChains(files.merged(), c.build)
	}

	c.logger.Debug("refreshed conversations",
		"files", len(files),
		"added", st.added,
		"changed", st.changed,
		"removed", st.removed,
		"chains", len(chains),
		"rebuilt", fp != prevPrint,
		"elapsed", time.Since(start),
	)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		// Cleared while we were working; the result is still good for the
		// callers waiting on it but must not repopulate the caches.
		return chains, nil
	}
	c.files = files
	c.fingerprint = fp
	c.chains = chains
	return chains, nil
}

// parseTagged parses path and stamps every entry with its project directory.
func (c *Coordinator) parseTagged(path string) []parser.Entry {
	entries := c.parse(path)
	project := parser.SourceProject(c.root, path)
	for i := range entries {
		entries[i].SourceProject = project
	}
	return entries
}

// Clear drops both cache layers. The next Refresh re-parses every file.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	c.files = entryCache{}
	c.fingerprint = ""
	c.chains = nil
	c.gen++
	c.mu.Unlock()
	c.group.Forget(refreshKey)
}

// CachedFiles reports how many files the entry cache currently holds.
func (c *Coordinator) CachedFiles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.files)
}

// fingerprint hashes the sorted (path, modTime) pairs. Any added, removed
// or touched file changes it.
func fingerprint(staleness parser.StalenessMap) string {
	paths := make([]string, 0, len(staleness))
	for p := range staleness {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		h.Write([]byte(p))
		h.Write([]byte{0})
		h.Write(strconv.AppendInt(nil, staleness[p], 10))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
