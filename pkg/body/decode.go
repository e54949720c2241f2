package body

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultLimit is the byte limit used by callers that do not supply
// their own (10 MiB, matching common server defaults).
const DefaultLimit int64 = 10 << 20

// ErrPayloadTooLarge reports an inbound body that exceeded the caller's
// byte limit before the end of the stream was reached.
var ErrPayloadTooLarge = errors.New("request body too large")

// MalformedJSONError reports an inbound body that did not parse as JSON.
type MalformedJSONError struct {
	Err error
}

func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("malformed json body: %v", e.Err)
}

func (e *MalformedJSONError) Unwrap() error { return e.Err }

// ChunkFunc pulls the next chunk of an inbound body. It returns
// more=false together with the final (possibly empty) chunk.
type ChunkFunc func(ctx context.Context) (chunk []byte, more bool, err error)

// Assemble concatenates chunks from next until the end of the stream.
// It fails with ErrPayloadTooLarge as soon as the accumulated size
// exceeds limit; a limit <= 0 means DefaultLimit.
func Assemble(ctx context.Context, next ChunkFunc, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	var buf []byte
	for {
		chunk, more, err := next(ctx)
		if err != nil {
			return nil, err
		}
		if int64(len(buf))+int64(len(chunk)) > limit {
			return nil, ErrPayloadTooLarge
		}
		buf = append(buf, chunk...)
		if !more {
			return buf, nil
		}
	}
}

// DecodeJSON parses an assembled body into v, reporting a
// MalformedJSONError when the bytes do not parse.
func DecodeJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &MalformedJSONError{Err: err}
	}
	return nil
}
