package parser

import (
	"bufio"
	"io"
)

const (
	// initialBufSize is the starting buffer capacity for the line reader.
	initialBufSize = 64 * 1024

	// maxLineSize is the maximum allowed line length. Lines exceeding this
	// are skipped rather than aborting the whole file.
	// 64 MiB accommodates even the largest Claude API responses.
	maxLineSize = 64 * 1024 * 1024
)

// lineReader reads JSONL files line by line, skipping blank lines and lines
// that exceed the size limit. After iteration, call Err() to check for I/O
// errors (not EOF).
type lineReader struct {
	r       *bufio.Reader
	maxLen  int // 0 means use maxLineSize
	buf     []byte
	err     error
	lineNo  int
	skipped int
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{
		r:   bufio.NewReaderSize(r, initialBufSize),
		buf: make([]byte, 0, initialBufSize),
	}
}

// next returns the next non-blank line and true, or (nil, false) at EOF or
// I/O error. The returned slice is only valid until the following call.
func (lr *lineReader) next() ([]byte, bool) {
	for {
		line, err := lr.readLine()
		if err != nil {
			if err != io.EOF {
				lr.err = err
			}
			return nil, false
		}
		if len(line) > 0 {
			return line, true
		}
	}
}

// Err returns the first non-EOF I/O error encountered, or nil.
func (lr *lineReader) Err() error {
	return lr.err
}

// Line returns the 1-based number of the line last returned by next.
func (lr *lineReader) Line() int {
	return lr.lineNo
}

// Skipped returns how many oversized lines were dropped.
func (lr *lineReader) Skipped() int {
	return lr.skipped
}

// readLine reads one full line. Blank and oversized lines come back as an
// empty slice with a nil error; the error is non-nil only at EOF or on a
// read failure.
//
// bufio.Reader.ReadLine returns isPrefix=true for partial reads, so a long
// line arrives in chunks. Once the accumulated bytes exceed the limit the
// buffer is dropped and the rest of the line is consumed.
func (lr *lineReader) readLine() ([]byte, error) {
	lr.buf = lr.buf[:0]
	oversized := false

	limit := maxLineSize
	if lr.maxLen > 0 {
		limit = lr.maxLen
	}

	for {
		chunk, isPrefix, err := lr.r.ReadLine()
		if err != nil {
			if err == io.EOF && (len(lr.buf) > 0 || oversized) {
				// Last line had no trailing newline.
				lr.lineNo++
				if oversized {
					return nil, nil
				}
				return lr.buf, nil
			}
			return nil, err
		}

		if !oversized {
			lr.buf = append(lr.buf, chunk...)
			if len(lr.buf) > limit {
				oversized = true
				lr.skipped++
				lr.buf = lr.buf[:0]
			}
		}

		if !isPrefix {
			lr.lineNo++
			if oversized {
				return nil, nil
			}
			return lr.buf, nil
		}
	}
}
