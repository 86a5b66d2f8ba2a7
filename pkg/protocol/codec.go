package protocol

import (
	"encoding/json"
	"errors"
)

// Decode failures, surfaced verbatim in error results.
var (
	ErrInvalidJSON = errors.New("Invalid JSON")
	ErrNotObject   = errors.New("Expected JSON object")
	ErrMissingType = errors.New("Missing 'type' field")
	ErrMissingID   = errors.New("Missing 'id' field")
)

// DecodeRequest parses one stdin line into a Request. The returned error, if
// any, carries the terse message the worker reports back to the controller.
func DecodeRequest(line []byte) (*Request, error) {
	if !json.Valid(line) {
		return nil, ErrInvalidJSON
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil || fields == nil {
		return nil, ErrNotObject
	}
	if !hasStringField(fields, "type") {
		return nil, ErrMissingType
	}
	if !hasStringField(fields, "id") {
		return nil, ErrMissingID
	}
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, ErrNotObject
	}
	return &req, nil
}

// EncodeResponse marshals a response frame compactly, without a trailing
// newline; the transport adds the line terminator.
func EncodeResponse(v any) ([]byte, error) {
	return json.Marshal(v)
}

func hasStringField(fields map[string]json.RawMessage, key string) bool {
	raw, ok := fields[key]
	if !ok {
		return false
	}
	var s string
	return json.Unmarshal(raw, &s) == nil && s != ""
}
