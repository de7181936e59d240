package transport

import (
	"context"
	"encoding/json"
	"net/http"
)

// Operation is one logical HTTP call. Path is relative to the API base URL
// and may carry a query string. LocalID ties a write to the local
// placeholder record it creates or modifies.
type Operation struct {
	Method  string          `json:"method"`
	Path    string          `json:"path"`
	Body    json.RawMessage `json:"body,omitempty"`
	LocalID string          `json:"local_id,omitempty"`
}

func (o Operation) IsRead() bool {
	return o.Method == http.MethodGet
}

// IsWrite reports whether the operation mutates remote state.
func (o Operation) IsWrite() bool {
	switch o.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// Response is a successful reply. Data is nil when the server sent no body.
type Response struct {
	Status int
	Data   json.RawMessage
}

// Doer executes operations. Failures are *NetworkError or
// *ApplicationError.
type Doer interface {
	Do(ctx context.Context, op Operation) (Response, error)
}

// DoerFunc adapts a function to Doer.
type DoerFunc func(ctx context.Context, op Operation) (Response, error)

func (f DoerFunc) Do(ctx context.Context, op Operation) (Response, error) { return f(ctx, op) }
