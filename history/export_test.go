package history

import "github.com/kylesnowschwartz/claude-history/parser"

// Test-only exports.

var (
	OrderMessages = orderMessages
	Fingerprint   = fingerprint
)

// StageCache runs one staging step over a cache seeded with prev and reports
// the resulting paths and stats.
func StageCache(prev map[string]int64, staleness parser.StalenessMap, parse func(string) []parser.Entry) (files map[string]int, added, changed, removed, unchanged int) {
	c := entryCache{}
	for p, mt := range prev {
		c[p] = fileEntry{modTime: mt}
	}
	next, st := c.stage(staleness, parse)
	files = make(map[string]int, len(next))
	for p, fe := range next {
		files[p] = len(fe.entries)
	}
	return files, st.added, st.changed, st.removed, st.unchanged
}
