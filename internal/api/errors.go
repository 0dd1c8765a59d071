package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed call
type Kind int

const (
	// KindTransport means no response was received
	KindTransport Kind = iota + 1
	// KindHTTP means the server answered with a non-2xx status or an unreadable body
	KindHTTP
	// KindPrecondition means the call was refused locally before touching the network
	KindPrecondition
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindHTTP:
		return "http"
	case KindPrecondition:
		return "precondition"
	default:
		return "unknown"
	}
}

// Messages shown for failures that carry no server text
const (
	MsgConnection = "connection error"
	MsgNoSession  = "no active session"
)

// Error is the single error shape returned by every Client method
type Error struct {
	Kind    Kind
	Status  int    // HTTP status, 0 unless Kind is KindHTTP
	Message string // user-facing text
	Op      string // e.g. "POST /api/v1/auth/login"
	Err     error  // underlying cause, if any
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrNoToken is wrapped by precondition errors raised for a missing session token
var ErrNoToken = errors.New("no session token")

func transportError(op string, err error) *Error {
	return &Error{Kind: KindTransport, Message: MsgConnection, Op: op, Err: err}
}

func preconditionError(op string, err error) *Error {
	msg := MsgNoSession
	if !errors.Is(err, ErrNoToken) {
		msg = err.Error()
	}
	return &Error{Kind: KindPrecondition, Message: msg, Op: op, Err: err}
}

// NoSession is the precondition error for acting without a session token
func NoSession(op string) *Error {
	return preconditionError(op, ErrNoToken)
}

// httpError builds a KindHTTP error from a non-2xx response body
func httpError(op string, status int, body []byte) *Error {
	return &Error{
		Kind:    KindHTTP,
		Status:  status,
		Message: extractMessage(status, body),
		Op:      op,
		Err:     fmt.Errorf("HTTP %d: %s", status, truncate(string(body), 200)),
	}
}

// extractMessage picks the first usable of detail, message and error from a
// JSON body. Each field is decoded on its own so a malformed sibling does not
// hide a good one. FastAPI validation errors put a list under detail; the
// first entry's msg is used.
func extractMessage(status int, body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			raw, ok := fields[key]
			if !ok {
				continue
			}
			if msg := decodeMessage(raw); msg != "" {
				return msg
			}
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}

func decodeMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			if m := strings.TrimSpace(item.Msg); m != "" {
				return m
			}
		}
	}

	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Message)
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// AsError unwraps err into an *Error
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsKind reports whether err is an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Kind == kind
}

// StatusOf returns the HTTP status carried by err, or 0
func StatusOf(err error) int {
	if apiErr, ok := AsError(err); ok {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports a 401 from the server
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// Message returns the user-facing text for any error
func Message(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := AsError(err); ok {
		return apiErr.Message
	}
	return err.Error()
}
