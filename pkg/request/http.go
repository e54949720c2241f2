package request

import (
	"context"
	"errors"

	"github.com/almarklein/asgineer/pkg/body"
	"github.com/almarklein/asgineer/pkg/response"
	"github.com/almarklein/asgineer/pkg/wire"
)

// HTTPRequest represents one HTTP exchange. Handlers can either return
// a response value and let the adapter send it, or drive the exchange
// themselves with Accept and Send.
type HTTPRequest struct {
	base
	receive wire.ReceiveFunc
	send    wire.SendFunc
	state   State
	status  int

	iterStarted bool
	bodyCache   []byte
	bodyCached  bool
}

// NewHTTP wraps a connection scope and its capabilities in an
// HTTPRequest. It is called by the adapter, once per connection.
func NewHTTP(scope *wire.Scope, receive wire.ReceiveFunc, send wire.SendFunc) *HTTPRequest {
	return &HTTPRequest{base: base{scope: scope}, receive: receive, send: send}
}

// State returns the connection's current lifecycle state.
func (r *HTTPRequest) State() State { return r.state }

// ResponseStatus returns the status the response was accepted with, or
// 0 when no response has been sent yet.
func (r *HTTPRequest) ResponseStatus() int { return r.status }

// IterBody returns a pull function over the chunks of the request
// body. The sequence is single-pass: a second call to IterBody (or
// iterating past the end) yields an already-exhausted sequence. A peer
// disconnect surfaces as a DisconnectError; cancellation ends the
// sequence early.
func (r *HTTPRequest) IterBody() body.ChunkFunc {
	if r.iterStarted {
		return func(context.Context) ([]byte, bool, error) { return nil, false, nil }
	}
	r.iterStarted = true
	done := false
	return func(ctx context.Context) ([]byte, bool, error) {
		if done {
			return nil, false, nil
		}
		ev, err := r.receive(ctx)
		if err != nil {
			done = true
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, false, nil
			}
			return nil, false, err
		}
		switch ev := ev.(type) {
		case wire.RequestChunk:
			if !ev.More {
				done = true
			}
			return ev.Data, ev.More, nil
		case wire.Disconnect:
			done = true
			return nil, false, &wire.DisconnectError{Code: wire.CloseGoingAway}
		default:
			done = true
			return nil, false, nil
		}
	}
}

// GetBody reads the full request body, failing with
// body.ErrPayloadTooLarge when it exceeds limit bytes (limit <= 0 means
// body.DefaultLimit) and with the context error when the connection is
// canceled mid-body. The result is cached, so repeated calls are cheap.
func (r *HTTPRequest) GetBody(ctx context.Context, limit int64) ([]byte, error) {
	if !r.bodyCached {
		data, err := body.Assemble(ctx, r.IterBody(), limit)
		if err != nil {
			return nil, err
		}
		// Cancellation ends the chunk iteration early; what was
		// assembled so far is not the full body.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.bodyCache = data
		r.bodyCached = true
	}
	return r.bodyCache, nil
}

// GetJSON reads the full request body and decodes it into v. It fails
// with body.ErrPayloadTooLarge or a body.MalformedJSONError.
func (r *HTTPRequest) GetJSON(ctx context.Context, limit int64, v any) error {
	data, err := r.GetBody(ctx, limit)
	if err != nil {
		return err
	}
	return body.DecodeJSON(data, v)
}

// Accept sends status and headers. It can be called at most once, and
// only before any body data has been sent.
func (r *HTTPRequest) Accept(ctx context.Context, status int, headers response.Headers) error {
	if r.state != StateInit {
		return &wire.StateError{Op: "accept", State: r.state.String()}
	}
	wh := make([]wire.Header, 0, len(headers))
	for k, v := range headers {
		wh = append(wh, wire.Header{Name: k, Value: v})
	}
	if err := r.send(ctx, wire.ResponseStart{Status: status, Headers: wh}); err != nil {
		return err
	}
	r.state = StateAccepted
	r.status = status
	return nil
}

// Send streams one body chunk. If the response was not accepted yet, a
// 200 response with empty headers is accepted implicitly. An empty (or
// nil) chunk signals the end of the body and closes the exchange.
func (r *HTTPRequest) Send(ctx context.Context, chunk []byte) error {
	switch r.state {
	case StateClosed:
		return &wire.StateError{Op: "send", State: r.state.String()}
	case StateInit:
		if err := r.Accept(ctx, 200, nil); err != nil {
			return err
		}
	}
	if len(chunk) == 0 {
		if err := r.send(ctx, wire.ResponseChunk{More: false}); err != nil {
			return err
		}
		r.state = StateClosed
		return nil
	}
	if err := r.send(ctx, wire.ResponseChunk{Data: chunk, More: true}); err != nil {
		return err
	}
	r.state = StateStreaming
	return nil
}
