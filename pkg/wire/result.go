package wire

import (
	"encoding/json"
	"fmt"
)

type ToolCall struct {
	Name      string
	Arguments map[string]json.RawMessage
}

// ToolCallResult is the decision returned by a tool-call completion. The
// pipeline only ever reads the first call.
type ToolCallResult []ToolCall

func (r ToolCallResult) First() (ToolCall, error) {
	if len(r) == 0 {
		return ToolCall{}, &MissingToolCallError{}
	}
	return r[0], nil
}

// Raw returns the undecoded JSON value of an argument.
func (c ToolCall) Raw(field string) (json.RawMessage, error) {
	raw, ok := c.Arguments[field]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil, &MissingFieldError{Field: "arguments." + field}
	}
	return raw, nil
}

// String reads a string argument. Non-string scalars are returned as their
// JSON text, which is what a model sometimes sends for enums.
func (c ToolCall) String(field string) (string, error) {
	raw, err := c.Raw(field)
	if err != nil {
		return "", err
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", &ProtocolError{Reason: fmt.Sprintf("argument %s is not valid JSON", field), Err: err}
	}
	switch v.(type) {
	case map[string]any, []any:
		return "", &ProtocolError{Reason: fmt.Sprintf("argument %s is not a scalar", field)}
	}
	return string(raw), nil
}

// Strings reads a string array argument. Some models send the array encoded
// as a JSON string, which is accepted as well.
func (c ToolCall) Strings(field string) ([]string, error) {
	raw, err := c.Raw(field)
	if err != nil {
		return nil, err
	}

	var values []string
	if err := json.Unmarshal(raw, &values); err == nil {
		return values, nil
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		if err := json.Unmarshal([]byte(encoded), &values); err == nil {
			return values, nil
		}
	}
	return nil, &ProtocolError{Reason: fmt.Sprintf("argument %s is not a list of strings", field)}
}
