package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/almarklein/asgineer/pkg/body"
	"github.com/almarklein/asgineer/pkg/request"
	"github.com/almarklein/asgineer/pkg/response"
	"github.com/almarklein/asgineer/pkg/wire"
)

// serveHTTP drives one HTTP exchange and applies the failure policy.
func (a *App) serveHTTP(ctx context.Context, scope *wire.Scope, receive wire.ReceiveFunc, send wire.SendFunc) {
	log := a.connLogger(scope)
	req := request.NewHTTP(scope, receive, send)

	where := "request handler"
	result, err := a.invoke(ctx, req)
	if err == nil {
		if req.State() == request.StateInit {
			where, err = a.sendResult(ctx, req, result)
		} else if result != nil {
			err = errors.New("handlers that accept the request themselves must return nil")
		}
	}

	if err != nil && !disconnected(err) {
		text := fmt.Sprintf("error in %s: %v", where, err)
		class, severe := failureClass(err)
		if severe {
			log.Error("handler_failed", "where", where, "error", err.Error())
		} else {
			log.Warn("bad_handler_response", "where", where, "error", err.Error())
		}
		a.metrics.Failure(class)
		// A 500 can only be sent while nothing is on the wire yet.
		// After that the partial response stands; we just end the body.
		if req.State() == request.StateInit {
			if aerr := req.Accept(ctx, 500, nil); aerr == nil {
				_ = req.Send(ctx, []byte(text))
			}
		}
	}

	// Signal end of body whenever the response is still open, whether
	// the handler used the low-level path or something failed midway.
	// A canceled connection gets no further sends at all.
	if st := req.State(); (st == request.StateAccepted || st == request.StateStreaming) && ctx.Err() == nil {
		_ = req.Send(ctx, nil)
	}
	a.metrics.Request("http", req.ResponseStatus())
}

// sendResult normalizes and encodes a returned value and drives the
// accept/stream sequence. It reports the phase it failed in, so the
// error text tells the reader what was going on.
func (a *App) sendResult(ctx context.Context, req *request.HTTPRequest, result any) (where string, err error) {
	where = "processing handler output"
	resp, err := response.Normalize(result)
	if err != nil {
		return where, err
	}

	// Work on a copy of the headers: defaults must not leak into a
	// response a sub-handler may still hold.
	headers := make(response.Headers, len(resp.Headers)+2)
	for k, v := range resp.Headers {
		headers[k] = v
	}

	if stream, ok := resp.Body.(body.Stream); ok {
		// The response is accepted lazily, right before the first
		// chunk: if the stream fails early, a clean 500 is still
		// possible. No content type is inferred for streamed bodies.
		where = "sending chunked response"
		accepted := false
		err = stream(ctx, func(chunk any) error {
			var data []byte
			switch c := chunk.(type) {
			case []byte:
				data = c
			case string:
				data = []byte(c)
			case body.Bytes:
				data = c
			case body.Text:
				data = []byte(c)
			default:
				return &response.InvalidResponseError{
					Reason: fmt.Sprintf("response chunks must be string or bytes, not %T", chunk),
				}
			}
			if !accepted {
				if err := req.Accept(ctx, resp.Status, headers); err != nil {
					return err
				}
				accepted = true
			}
			if len(data) == 0 {
				// An empty chunk is a no-op; the adapter signals
				// end-of-body itself when the stream is done.
				return nil
			}
			a.metrics.ResponseBytes(len(data))
			return req.Send(ctx, data)
		})
		if err != nil {
			return where, err
		}
		if !accepted {
			return where, req.Accept(ctx, resp.Status, headers)
		}
		return where, nil
	}

	data, ctype, err := body.Encode(resp.Body)
	if err != nil {
		return where, err
	}
	if _, ok := headers.Get("content-type"); !ok && ctype != "" {
		headers["content-type"] = ctype
	}
	if _, ok := headers.Get("content-length"); !ok {
		headers["content-length"] = strconv.Itoa(len(data))
	}

	where = "sending response"
	if err := req.Accept(ctx, resp.Status, headers); err != nil {
		return where, err
	}
	if len(data) > 0 {
		if err := req.Send(ctx, data); err != nil {
			return where, err
		}
		a.metrics.ResponseBytes(len(data))
	}
	return where, nil
}

// failureClass distinguishes a malformed response (the handler ran fine
// but returned something unusable) from a failing handler.
func failureClass(err error) (class string, severe bool) {
	var ir *response.InvalidResponseError
	var ee *body.EncodingError
	if errors.As(err, &ir) || errors.As(err, &ee) {
		return "bad_response", false
	}
	return "handler_error", true
}
