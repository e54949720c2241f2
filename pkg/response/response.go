// Package response canonicalizes handler return values into an explicit
// (status, headers, body) triple.
package response

import (
	"fmt"
	"strings"

	"github.com/almarklein/asgineer/pkg/body"
)

// Headers maps header names to values. Names keep their case on the
// wire; comparisons inside the adapter are case-insensitive.
type Headers map[string]string

// Get returns the value for name using case-insensitive matching.
func (h Headers) Get(name string) (string, bool) {
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// Response is the canonical form of a handler's return value.
type Response struct {
	Status  int
	Headers Headers
	Body    body.Body
}

// InvalidResponseError reports a handler return value that matches none
// of the accepted shapes.
type InvalidResponseError struct {
	Reason string
}

func (e *InvalidResponseError) Error() string {
	return "invalid handler response: " + e.Reason
}

// Normalize canonicalizes a handler return value. Accepted shapes:
//
//	body
//	[]any{headers, body}
//	[]any{status, headers, body}
//	[]any{status, body}
//	*Response / Response
//
// Status defaults to 200 and headers to an empty map. Normalizing an
// already normalized *Response returns it unchanged, so responses can
// be passed through between sub-handlers.
func Normalize(v any) (*Response, error) {
	switch r := v.(type) {
	case nil:
		return nil, &InvalidResponseError{Reason: "handler returned no response"}
	case *Response:
		return fill(r)
	case Response:
		return fill(&r)
	case []any:
		return fromSlice(r)
	default:
		b, ok := body.From(v)
		if !ok {
			return nil, &InvalidResponseError{Reason: fmt.Sprintf("body cannot be %T", v)}
		}
		return fill(&Response{Body: b})
	}
}

// fromSlice is the decision table over (arity, type-of-each-position):
// an integer in first position is the status, a header map in first or
// second position is the headers, and the single remaining value is the
// body.
func fromSlice(parts []any) (*Response, error) {
	r := &Response{}
	var raw any
	switch len(parts) {
	case 1:
		raw = parts[0]
	case 2:
		switch first := parts[0].(type) {
		case int:
			r.Status = first
		case Headers:
			r.Headers = first
		case map[string]string:
			r.Headers = Headers(first)
		default:
			return nil, &InvalidResponseError{
				Reason: fmt.Sprintf("first element of a 2-element response must be a status or headers, not %T", first),
			}
		}
		raw = parts[1]
	case 3:
		status, ok := parts[0].(int)
		if !ok {
			return nil, &InvalidResponseError{
				Reason: fmt.Sprintf("status must be an int, not %T", parts[0]),
			}
		}
		r.Status = status
		switch hdr := parts[1].(type) {
		case Headers:
			r.Headers = hdr
		case map[string]string:
			r.Headers = Headers(hdr)
		default:
			return nil, &InvalidResponseError{
				Reason: fmt.Sprintf("headers must be a map, not %T", parts[1]),
			}
		}
		raw = parts[2]
	default:
		return nil, &InvalidResponseError{
			Reason: fmt.Sprintf("handler returned a %d-element response", len(parts)),
		}
	}
	b, ok := body.From(raw)
	if !ok {
		return nil, &InvalidResponseError{Reason: fmt.Sprintf("body cannot be %T", raw)}
	}
	r.Body = b
	return fill(r)
}

// fill applies defaults and validates the status code.
func fill(r *Response) (*Response, error) {
	if r.Status == 0 {
		r.Status = 200
	}
	if r.Status < 100 || r.Status > 599 {
		return nil, &InvalidResponseError{Reason: fmt.Sprintf("status %d is not a valid status code", r.Status)}
	}
	if r.Headers == nil {
		r.Headers = Headers{}
	}
	if r.Body == nil {
		return nil, &InvalidResponseError{Reason: "response has no body"}
	}
	return r, nil
}
