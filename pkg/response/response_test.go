package response

import (
	"errors"
	"testing"

	"github.com/almarklein/asgineer/pkg/body"
)

func TestNormalizeShapes(t *testing.T) {
	cases := []struct {
		name    string
		in      any
		status  int
		headers Headers
	}{
		{"bare body", "hi", 200, Headers{}},
		{"headers and body", []any{map[string]string{"x-a": "1"}, "hi"}, 200, Headers{"x-a": "1"}},
		{"status headers body", []any{201, map[string]string{"x-a": "1"}, "hi"}, 201, Headers{"x-a": "1"}},
		{"status and body", []any{404, "hi"}, 404, Headers{}},
	}
	for _, c := range cases {
		r, err := Normalize(c.in)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if r.Status != c.status {
			t.Fatalf("%s: status %d, want %d", c.name, r.Status, c.status)
		}
		if len(r.Headers) != len(c.headers) {
			t.Fatalf("%s: headers %v, want %v", c.name, r.Headers, c.headers)
		}
		for k, v := range c.headers {
			if r.Headers[k] != v {
				t.Fatalf("%s: headers %v, want %v", c.name, r.Headers, c.headers)
			}
		}
		if _, ok := r.Body.(body.Text); !ok {
			t.Fatalf("%s: body %T", c.name, r.Body)
		}
	}
}

func TestNormalizeFixedPoint(t *testing.T) {
	r1, err := Normalize([]any{418, map[string]string{"x-a": "1"}, "tea"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	r2, err := Normalize(r1)
	if err != nil {
		t.Fatalf("re-normalize: %v", err)
	}
	if r1 != r2 {
		t.Fatalf("re-normalizing did not return the same response")
	}
}

func TestNormalizeInvalidShapes(t *testing.T) {
	cases := []struct {
		name string
		in   any
	}{
		{"nil", nil},
		{"four elements", []any{1, 2, 3, 4}},
		{"empty slice", []any{}},
		{"int body", 42},
		{"bad status type in triple", []any{"200", map[string]string{}, "x"}},
		{"bad headers type in triple", []any{200, "headers", "x"}},
		{"ambiguous first element", []any{map[string]any{"a": 1}, "x"}},
		{"status out of range", []any{99, "x"}},
		{"status four digits", []any{2000, "x"}},
	}
	for _, c := range cases {
		_, err := Normalize(c.in)
		var ir *InvalidResponseError
		if !errors.As(err, &ir) {
			t.Fatalf("%s: expected InvalidResponseError, got %v", c.name, err)
		}
	}
}

func TestNormalizeDoesNotShareHeaders(t *testing.T) {
	r, err := Normalize("hi")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if r.Headers == nil {
		t.Fatalf("headers must default to an empty map")
	}
}

func TestHeadersGetCaseInsensitive(t *testing.T) {
	h := Headers{"Content-Type": "text/plain"}
	if v, ok := h.Get("content-type"); !ok || v != "text/plain" {
		t.Fatalf("Get: %q %v", v, ok)
	}
	if _, ok := h.Get("etag"); ok {
		t.Fatalf("Get found a missing header")
	}
}
