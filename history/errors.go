package history

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes surfaced to callers.
const (
	CodeHistoryReadFailed      = "HISTORY_READ_FAILED"
	CodeConversationNotFound   = "CONVERSATION_NOT_FOUND"
	CodeConversationReadFailed = "CONVERSATION_READ_FAILED"
)

// ErrNotFound matches (via errors.Is) any Error with CodeConversationNotFound.
var ErrNotFound = errors.New("conversation not found")

// Error is the single failure type a Reader returns. Code is stable and
// machine readable; Status is the suggested HTTP status for callers that
// translate errors into responses.
type Error struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNotFound) match not-found errors.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Code == CodeConversationNotFound
}

func notFound(sessionID string) *Error {
	return &Error{
		Code:    CodeConversationNotFound,
		Message: fmt.Sprintf("conversation %s not found", sessionID),
		Status:  http.StatusNotFound,
	}
}

func readFailed(code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Status: http.StatusInternalServerError, Err: err}
}

// ErrorCode returns the Code of the first *Error in err's chain, or "".
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
