package wire

import (
	"fmt"
)

// NetworkError is a transport failure: the request never produced a response.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error calling %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamError is a response with a non-success HTTP status.
type UpstreamError struct {
	URL    string
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s answered with status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("%s answered with status %d: %s", e.URL, e.Status, e.Body)
}

// ProtocolError is a response body that does not have the expected shape.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err == nil {
		return "protocol error: " + e.Reason
	}
	return fmt.Sprintf("protocol error: %s: %v", e.Reason, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// MissingToolCallError means the completion carried no tool call. Usually the
// model does not support structured tool output.
type MissingToolCallError struct {
	Model string
}

func (e *MissingToolCallError) Error() string {
	return fmt.Sprintf("no tool call in response of model %s (does the model support tools?)", e.Model)
}

// MissingFieldError means an expected argument or document path is absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q", e.Field)
}

// maxBodyExcerpt bounds how much of an error body ends up in messages.
const maxBodyExcerpt = 512

func excerpt(body []byte) string {
	if len(body) > maxBodyExcerpt {
		return string(body[:maxBodyExcerpt]) + "..."
	}
	return string(body)
}
