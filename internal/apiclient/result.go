package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// User-facing error messages produced by the envelope itself.
const (
	MsgNetworkError        = "Network error occurred"
	MsgAuthExpired         = "Authentication expired. Please log in again."
	MsgAuthFailed          = "Authentication failed"
	MsgGenericError        = "An error occurred"
	MsgRefreshFailed       = "Refresh failed"
	MsgRefreshNetworkError = "Network error during token refresh"
	MsgInvalidResponse     = "Invalid response from server"
)

// Result is the outcome of every envelope call: either Data or Error is set.
// Message carries an optional server-provided note alongside Data.
type Result struct {
	Data    json.RawMessage
	Error   string
	Message string
	// Status is the HTTP status of the final response, 0 when none arrived.
	Status int
}

// Ok reports whether the call succeeded and produced a payload. A zero
// Result counts as a failure.
func (r Result) Ok() bool {
	return r.Error == "" && r.Data != nil
}

// Err converts a failed Result into an *Error. It returns nil on success.
func (r Result) Err() error {
	if r.Ok() {
		return nil
	}
	msg := r.Error
	if msg == "" {
		msg = "empty response"
	}
	return &Error{Status: r.Status, Message: msg}
}

// Decode unmarshals Data into v.
func (r Result) Decode(v any) error {
	if err := r.Err(); err != nil {
		return err
	}
	return json.Unmarshal(r.Data, v)
}

// Error is the Go error form of a failed Result.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// serverMessage picks the error text out of an API error body: the "error"
// member first, then "message", then fallback.
func serverMessage(body []byte, fallback string) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return fallback
	}
	if msg := textOf(obj["error"]); msg != "" {
		return msg
	}
	if msg := textOf(obj["message"]); msg != "" {
		return msg
	}
	return fallback
}

// textOf renders a string or a list of strings; anything else is "".
func textOf(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", ")
	}
	return ""
}

// stringField returns the first non-empty top-level string member of body
// among keys.
func stringField(body json.RawMessage, keys ...string) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}
	for _, key := range keys {
		var s string
		if err := json.Unmarshal(obj[key], &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}
