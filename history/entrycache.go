package history

import (
	"sort"

	"github.com/kylesnowschwartz/claude-history/parser"
)

// fileEntry is what the cache remembers about one log file: the
// modification time it was parsed at and the entries it yielded.
type fileEntry struct {
	modTime int64
	entries []parser.Entry
}

// entryCache maps absolute file path to its last parse. The Coordinator is
// its only writer; a refresh stages a new map and swaps it in when done.
type entryCache map[string]fileEntry

// stageStats summarizes how a staged cache differs from its predecessor.
type stageStats struct {
	added, changed, removed, unchanged int
}

// stage returns the cache that results from applying staleness to c. Files
// whose modification time differs from the cached one are re-parsed; files
// missing from staleness are dropped. c itself is never modified.
func (c entryCache) stage(staleness parser.StalenessMap, parse func(path string) []parser.Entry) (entryCache, stageStats) {
	var st stageStats
	next := make(entryCache, len(staleness))
	for path, modTime := range staleness {
		prev, ok := c[path]
		switch {
		case ok && prev.modTime == modTime:
			next[path] = prev
			st.unchanged++
			continue
		case ok:
			st.changed++
		default:
			st.added++
		}
		next[path] = fileEntry{modTime: modTime, entries: parse(path)}
	}
	for path := range c {
		if _, ok := staleness[path]; !ok {
			st.removed++
		}
	}
	return next, st
}

// merged concatenates every file's entries. Files are visited in path order
// and each file keeps its on-disk line order.
func (c entryCache) merged() []parser.Entry {
	paths := make([]string, 0, len(c))
	n := 0
	for path, fe := range c {
		paths = append(paths, path)
		n += len(fe.entries)
	}
	sort.Strings(paths)

	all := make([]parser.Entry, 0, n)
	for _, path := range paths {
		all = append(all, c[path].entries...)
	}
	return all
}
