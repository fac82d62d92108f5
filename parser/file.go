package parser

import (
	"bytes"
	"log/slog"
	"os"
)

// ReadEntries reads one JSONL log file and returns its decoded entries in
// file order.
//
// Lines that fail to decode are logged and dropped: session files are
// append-only and may be read while Claude Code is halfway through writing
// a line. A file that cannot be opened yields no entries. Nothing here
// returns an error to the caller.
func ReadEntries(path string, logger *slog.Logger) []Entry {
	logger = orDiscard(logger)

	f, err := os.Open(path)
	if err != nil {
		logger.Error("failed to read JSONL file", "path", path, "error", err)
		return nil
	}
	defer f.Close()

	var entries []Entry
	lr := newLineReader(f)
	for {
		line, ok := lr.next()
		if !ok {
			break
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		e, err := ParseEntry(line)
		if err != nil {
			logger.Warn("failed to parse line from JSONL file",
				"path", path,
				"line", lr.Line(),
				"error", err,
				"content", preview(line, 100),
			)
			continue
		}
		entries = append(entries, e)
	}
	if err := lr.Err(); err != nil {
		logger.Error("failed to read JSONL file", "path", path, "error", err)
	}
	if n := lr.Skipped(); n > 0 {
		logger.Warn("skipped oversized lines", "path", path, "count", n)
	}
	return entries
}

// preview returns at most n bytes of b as a string, for log output.
func preview(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
