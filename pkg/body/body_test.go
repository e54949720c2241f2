package body

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestFromClassification(t *testing.T) {
	cases := []struct {
		in any
		ok bool
	}{
		{[]byte("x"), true},
		{"x", true},
		{map[string]any{"a": 1}, true},
		{map[string]string{"a": "b"}, true},
		{Text("x"), true},
		{42, false},
		{nil, false},
	}
	for _, c := range cases {
		b, ok := From(c.in)
		if ok != c.ok {
			t.Fatalf("From(%v): ok=%v, want %v", c.in, ok, c.ok)
		}
		if !ok {
			continue
		}
		if b == nil {
			t.Fatalf("From(%v): nil body", c.in)
		}
	}
	if _, ok := From(Stream(func(context.Context, func(any) error) error { return nil })); !ok {
		t.Fatalf("Stream value not classified")
	}
	if _, ok := From(func(context.Context, func(any) error) error { return nil }); !ok {
		t.Fatalf("bare stream func not classified")
	}
}

func TestEncodeText(t *testing.T) {
	cases := []struct {
		in    string
		ctype string
	}{
		{"hello", "text/plain"},
		{"<!DOCTYPE html><html></html>", "text/html"},
		{"<html><body></body></html>", "text/html"},
		{"<!doctype html>", "text/plain"}, // prefix match is case-sensitive
		{" <html>", "text/plain"},
	}
	for _, c := range cases {
		data, ctype, err := Encode(Text(c.in))
		if err != nil {
			t.Fatalf("Encode(%q): %v", c.in, err)
		}
		if string(data) != c.in {
			t.Fatalf("Encode(%q): data %q", c.in, data)
		}
		if ctype != c.ctype {
			t.Fatalf("Encode(%q): ctype %q, want %q", c.in, ctype, c.ctype)
		}
	}
}

func TestEncodeBytesHasNoContentType(t *testing.T) {
	data, ctype, err := Encode(Bytes("raw"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(data, []byte("raw")) || ctype != "" {
		t.Fatalf("got %q / %q, want raw bytes and no content type", data, ctype)
	}
}

func TestEncodeJSON(t *testing.T) {
	data, ctype, err := Encode(JSON{Value: map[string]any{"path": "/api/x"}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if ctype != "application/json" {
		t.Fatalf("ctype %q", ctype)
	}
	if string(data) != `{"path":"/api/x"}` {
		t.Fatalf("data %q", data)
	}
}

func TestEncodeJSONFailure(t *testing.T) {
	_, _, err := Encode(JSON{Value: map[string]any{"ch": make(chan int)}})
	var ee *EncodingError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EncodingError, got %v", err)
	}
}

func chunksOf(parts ...[]byte) ChunkFunc {
	i := 0
	return func(context.Context) ([]byte, bool, error) {
		if i >= len(parts) {
			return nil, false, nil
		}
		p := parts[i]
		i++
		return p, i < len(parts), nil
	}
}

func TestAssembleWithinLimit(t *testing.T) {
	data, err := Assemble(context.Background(), chunksOf([]byte("01234"), []byte("56789")), 10)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if string(data) != "0123456789" {
		t.Fatalf("data %q", data)
	}
}

func TestAssembleOverLimit(t *testing.T) {
	_, err := Assemble(context.Background(), chunksOf([]byte("01234"), []byte("567890")), 10)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestDecodeJSONMalformed(t *testing.T) {
	var v any
	err := DecodeJSON([]byte("{nope"), &v)
	var mj *MalformedJSONError
	if !errors.As(err, &mj) {
		t.Fatalf("expected MalformedJSONError, got %v", err)
	}
	if err := DecodeJSON([]byte(`{"a":1}`), &v); err != nil {
		t.Fatalf("valid json: %v", err)
	}
}

func TestGuessContentType(t *testing.T) {
	if ct := GuessContentType("<html>x"); ct != "text/html" {
		t.Fatalf("got %q", ct)
	}
	if ct := GuessContentType(map[string]any{}); ct != "application/json" {
		t.Fatalf("got %q", ct)
	}
	if ct := GuessContentType([]byte("x")); ct != "application/octet-stream" {
		t.Fatalf("got %q", ct)
	}
}
