package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/tidwall/gjson"
)

// EntryType is the "type" discriminator of a JSONL line.
type EntryType string

const (
	TypeUser      EntryType = "user"
	TypeAssistant EntryType = "assistant"
	TypeSummary   EntryType = "summary"
	TypeSystem    EntryType = "system"
)

// Entry represents a raw JSONL line from a Claude Code session file.
// Fields map directly to the on-disk format at ~/.claude/projects/{project}/{session}.jsonl.
//
// Only the fields the history engine needs are decoded. Raw keeps the whole
// line so nothing the writer put there is lost.
type Entry struct {
	Type        EntryType       `json:"type"`
	UUID        string          `json:"uuid"`
	SessionID   string          `json:"sessionId"`
	ParentUUID  string          `json:"parentUuid"` // null on disk decodes to ""
	Timestamp   string          `json:"timestamp"`
	Message     json.RawMessage `json:"message"`
	CWD         string          `json:"cwd"`
	DurationMs  float64         `json:"durationMs"`
	IsSidechain bool            `json:"isSidechain"`
	UserType    string          `json:"userType"`
	Version     string          `json:"version"`
	Summary     string          `json:"summary"`
	LeafUUID    string          `json:"leafUuid"`

	// Raw is the undecoded line.
	Raw json.RawMessage `json:"-"`

	// SourceProject is the encoded project directory the entry was read
	// from. Assigned by the caller at parse time; never present on disk.
	SourceProject string `json:"-"`
}

var (
	errBlankLine = errors.New("blank line")
	errInvalid   = errors.New("invalid JSON")
	errNotObject = errors.New("not a JSON object")
)

// entryFields are the keys ParseEntry reads, in Entry field order.
var entryFields = []string{
	"type", "uuid", "sessionId", "parentUuid", "timestamp", "message", "cwd",
	"durationMs", "isSidechain", "userType", "version", "summary", "leafUuid",
}

// ParseEntry parses a single JSONL line into an Entry.
// Blank input and anything that is not a JSON object are errors. A field
// holding a value of an unexpected type is left at its zero value rather
// than failing the line.
func ParseEntry(line []byte) (Entry, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Entry{}, errBlankLine
	}
	if !gjson.ValidBytes(line) {
		return Entry{}, errInvalid
	}
	if !gjson.ParseBytes(line).IsObject() {
		return Entry{}, errNotObject
	}

	f := gjson.GetManyBytes(line, entryFields...)
	e := Entry{
		Type:        EntryType(stringField(f[0])),
		UUID:        stringField(f[1]),
		SessionID:   stringField(f[2]),
		ParentUUID:  stringField(f[3]),
		Timestamp:   stringField(f[4]),
		CWD:         stringField(f[6]),
		DurationMs:  numberField(f[7]),
		IsSidechain: f[8].Type == gjson.True,
		UserType:    stringField(f[9]),
		Version:     stringField(f[10]),
		Summary:     stringField(f[11]),
		LeafUUID:    stringField(f[12]),
		Raw:         append(json.RawMessage(nil), line...),
	}
	if f[5].Exists() {
		e.Message = json.RawMessage(f[5].Raw)
	}
	return e, nil
}

// stringField returns r when it is a JSON string, else "".
func stringField(r gjson.Result) string {
	if r.Type != gjson.String {
		return ""
	}
	return r.Str
}

// numberField accepts a JSON number or a numeric string.
func numberField(r gjson.Result) float64 {
	switch r.Type {
	case gjson.Number:
		return r.Num
	case gjson.String:
		v, err := strconv.ParseFloat(r.Str, 64)
		if err != nil {
			return 0
		}
		return v
	}
	return 0
}

// IsConversational reports whether the entry is a user or assistant turn.
func (e Entry) IsConversational() bool {
	return e.Type == TypeUser || e.Type == TypeAssistant
}

// Model returns message.model from the payload, or "".
func (e Entry) Model() string {
	return PayloadModel(e.Message)
}

// PayloadModel returns the "model" field of a message payload, or "".
func PayloadModel(payload json.RawMessage) string {
	if len(payload) == 0 {
		return ""
	}
	m := gjson.GetBytes(payload, "model")
	if m.Type != gjson.String {
		return ""
	}
	return m.Str
}

// HasPayload reports whether a message payload is present and non-null.
func HasPayload(payload json.RawMessage) bool {
	p := bytes.TrimSpace(payload)
	return len(p) > 0 && !bytes.Equal(p, []byte("null"))
}
