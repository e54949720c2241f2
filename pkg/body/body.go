// Package body converts handler-returned body values to wire bytes and
// assembles inbound request bodies from their chunks.
package body

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Body is a handler-returned response body. The set of kinds is closed:
// raw bytes, text, a JSON-encodable value, or a lazily produced chunk
// stream.
type Body interface{ body() }

// Bytes is a pre-encoded body. It is passed through unchanged and no
// content type is inferred for it.
type Bytes []byte

// Text is a UTF-8 text body.
type Text string

// JSON wraps a value to be serialized with encoding/json. Use it to
// return struct bodies; plain map bodies are classified automatically.
type JSON struct {
	Value any
}

// Stream produces body chunks one at a time. Each chunk passed to emit
// must be a string or []byte; mixing is allowed. The adapter sends each
// chunk before the next one is produced, so a Stream body is never
// buffered in full.
type Stream func(ctx context.Context, emit func(chunk any) error) error

func (Bytes) body()  {}
func (Text) body()   {}
func (JSON) body()   {}
func (Stream) body() {}

// From classifies a raw handler value as a Body. It reports false for
// values outside the closed set of body kinds.
func From(v any) (Body, bool) {
	switch b := v.(type) {
	case Body:
		return b, true
	case []byte:
		return Bytes(b), true
	case string:
		return Text(b), true
	case map[string]any:
		return JSON{Value: b}, true
	case map[string]string:
		return JSON{Value: b}, true
	case func(ctx context.Context, emit func(chunk any) error) error:
		return Stream(b), true
	default:
		return nil, false
	}
}

// EncodingError reports a body value that could not be serialized.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("could not encode body: %v", e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Encode converts an eager body to wire bytes plus the content type to
// use when the handler did not set one ("" means none is inferred).
// Stream bodies are not encodable here; the adapter streams them chunk
// by chunk.
func Encode(b Body) (data []byte, contentType string, err error) {
	switch b := b.(type) {
	case Bytes:
		return b, "", nil
	case Text:
		return []byte(b), guessTextType(string(b)), nil
	case JSON:
		data, err := json.Marshal(b.Value)
		if err != nil {
			return nil, "", &EncodingError{Err: err}
		}
		return data, "application/json", nil
	default:
		return nil, "", &EncodingError{Err: fmt.Errorf("body kind %T is not eagerly encodable", b)}
	}
}

func guessTextType(s string) string {
	if strings.HasPrefix(s, "<!DOCTYPE html>") || strings.HasPrefix(s, "<html>") {
		return "text/html"
	}
	return "text/plain"
}

// GuessContentType guesses a content type from a raw body value, for
// callers that serve opaque assets without a known extension.
func GuessContentType(v any) string {
	switch b := v.(type) {
	case string:
		return guessTextType(b)
	case Text:
		return guessTextType(string(b))
	case map[string]any, map[string]string, JSON:
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
