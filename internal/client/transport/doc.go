// Package transport performs single HTTP calls against the remote API and
// classifies their failures. A *NetworkError means the call may succeed if
// retried later (no connection, timeout, or a bare 5xx from an
// intermediary); an *ApplicationError is a well-formed rejection from the
// server that retrying verbatim would not change.
package transport
