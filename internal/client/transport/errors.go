package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// NetworkError is a connectivity-class failure.
type NetworkError struct {
	Method string
	Path   string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: network error: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: network error: status %d", e.Method, e.Path, e.Status)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ApplicationError is a rejection the server answered with a status
// >= 400.
type ApplicationError struct {
	Method string
	Path   string
	Status int
	Body   []byte
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message())
}

// Message extracts a human readable reason from the body, preferring a
// JSON "message" or "error" field.
func (e *ApplicationError) Message() string {
	var m struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(e.Body, &m); err == nil {
		if m.Message != "" {
			return m.Message
		}
		if m.Error != "" {
			return m.Error
		}
	}
	if s := string(bytes.TrimSpace(e.Body)); s != "" {
		return s
	}
	return http.StatusText(e.Status)
}

// Rejected reports a 4xx answer: the request itself is wrong.
func (e *ApplicationError) Rejected() bool {
	return e.Status >= 400 && e.Status < 500
}

func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

func IsApplicationError(err error) bool {
	var ae *ApplicationError
	return errors.As(err, &ae)
}

// IsRejection reports a 4xx ApplicationError anywhere in err's chain.
func IsRejection(err error) bool {
	var ae *ApplicationError
	return errors.As(err, &ae) && ae.Rejected()
}

// Classify turns a status and body into the matching error, or nil for
// success. A 5xx without a body came from a gateway or a dying server
// and is treated as network-class; any 4xx is an application rejection.
func Classify(op Operation, status int, body []byte) error {
	if status < 400 {
		return nil
	}
	if status >= 500 && len(bytes.TrimSpace(body)) == 0 {
		return &NetworkError{Method: op.Method, Path: op.Path, Status: status}
	}
	return &ApplicationError{Method: op.Method, Path: op.Path, Status: status, Body: body}
}
