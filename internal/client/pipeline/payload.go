package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// maxPseudoArrayLen bounds the allocation for index-keyed objects.
const maxPseudoArrayLen = 1 << 20

// Payload is a response body normalized at the pipeline boundary: an
// object of the form {"0": a, "1": b, "length": 2} has already been turned
// into the array [a, b].
type Payload struct {
	raw json.RawMessage
}

var emptyArray = json.RawMessage(`[]`)

// NewPayload normalizes raw. An empty body is kept as an empty payload.
func NewPayload(raw []byte) (Payload, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Payload{}, nil
	}
	if !json.Valid(raw) {
		return Payload{}, fmt.Errorf("payload is not valid JSON")
	}
	norm, err := normalize(raw)
	if err != nil {
		return Payload{}, err
	}
	return Payload{raw: norm}, nil
}

func normalize(raw json.RawMessage) (json.RawMessage, error) {
	if raw[0] != '{' {
		return raw, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	lraw, ok := obj["length"]
	if !ok {
		return raw, nil
	}
	var length float64
	if err := json.Unmarshal(lraw, &length); err != nil {
		return raw, nil
	}
	if length < 0 || length != math.Trunc(length) || length > maxPseudoArrayLen {
		return raw, nil
	}

	items := make([]json.RawMessage, int(length))
	for i := range items {
		v, ok := obj[strconv.Itoa(i)]
		if !ok {
			v = json.RawMessage(`null`)
		}
		items[i] = v
	}
	return json.Marshal(items)
}

// Raw returns the normalized JSON, or nil for an empty payload.
func (p Payload) Raw() json.RawMessage {
	return p.raw
}

// IsEmpty reports a missing body or a JSON null.
func (p Payload) IsEmpty() bool {
	return len(p.raw) == 0 || bytes.Equal(p.raw, []byte("null"))
}

func (p Payload) IsArray() bool {
	return len(p.raw) > 0 && p.raw[0] == '['
}

// Items returns the elements of an array payload, a single element for an
// object payload, and an empty non-nil slice for an empty payload.
func (p Payload) Items() ([]json.RawMessage, error) {
	if p.IsEmpty() {
		return []json.RawMessage{}, nil
	}
	if !p.IsArray() {
		return []json.RawMessage{p.raw}, nil
	}
	items := make([]json.RawMessage, 0)
	if err := json.Unmarshal(p.raw, &items); err != nil {
		return nil, fmt.Errorf("decode payload items: %w", err)
	}
	return items, nil
}

// First returns the first element of an array payload or the object
// itself. ok is false when there is nothing to return.
func (p Payload) First() (json.RawMessage, bool) {
	items, err := p.Items()
	if err != nil || len(items) == 0 {
		return nil, false
	}
	if bytes.Equal(items[0], []byte("null")) {
		return nil, false
	}
	return items[0], true
}

func (p Payload) Decode(v any) error {
	if p.IsEmpty() {
		return nil
	}
	return json.Unmarshal(p.raw, v)
}
