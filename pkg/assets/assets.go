// Package assets builds handlers that serve small in-memory assets
// with etag validation, cache-control and gzip compression.
package assets

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/almarklein/asgineer/pkg/body"
	"github.com/almarklein/asgineer/pkg/request"
	"github.com/almarklein/asgineer/pkg/response"
)

// Compressing videos is wasted effort; their codecs already did it.
var videoExtensions = []string{".mp4", ".3gp", ".webm"}

// Options tune a handler built with NewHandler.
type Options struct {
	// MaxAge is the cache-control max-age in seconds. Zero means the
	// client must revalidate every time.
	MaxAge int
	// MinCompressSize is the minimum body size for gzip to be
	// considered; zero means 256 bytes.
	MinCompressSize int
}

// ServeFunc serves one asset request. When path is empty, the request
// path (with the leading slash stripped) selects the asset. The return
// value is a regular handler response, so a handler can simply forward
// it.
type ServeFunc func(ctx context.Context, r request.Request, path string) (any, error)

type asset struct {
	raw    []byte
	zipped []byte
	etag   string
	ctype  string
}

// NewHandler precomputes etags, content types and gzipped variants for
// the given assets and returns a function serving them. Asset keys are
// matched case-insensitively; values must be string or []byte.
func NewHandler(in map[string]any, opts *Options) (ServeFunc, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.MaxAge < 0 {
		return nil, fmt.Errorf("max age must not be negative")
	}
	if o.MinCompressSize <= 0 {
		o.MinCompressSize = 256
	}

	table := make(map[string]asset, len(in))
	for path, v := range in {
		var raw []byte
		switch v := v.(type) {
		case []byte:
			raw = v
		case string:
			raw = []byte(v)
		default:
			return nil, fmt.Errorf("asset %q must be string or bytes, not %T", path, v)
		}
		lpath := strings.ToLower(path)
		sum := sha256.Sum256(raw)
		a := asset{
			raw:   raw,
			etag:  `"` + hex.EncodeToString(sum[:]) + `"`,
			ctype: contentTypeFor(lpath, v),
		}
		if len(raw) >= o.MinCompressSize && !isVideo(lpath) {
			if z := gzipBytes(raw); len(z) < len(raw)*9/10 {
				a.zipped = z
			}
		}
		table[lpath] = a
	}

	cacheControl := fmt.Sprintf("public, must-revalidate, max-age=%d", o.MaxAge)

	return func(ctx context.Context, r request.Request, path string) (any, error) {
		if r.Method() != "GET" && r.Method() != "HEAD" {
			return []any{405, "Method not allowed"}, nil
		}
		if path == "" {
			path = strings.TrimPrefix(r.Path(), "/")
		}
		a, ok := table[strings.ToLower(path)]
		if !ok {
			return []any{404, "File not found"}, nil
		}

		status := 200
		data := a.raw
		headers := response.Headers{
			"cache-control":  cacheControl,
			"content-type":   a.ctype,
			"content-length": strconv.Itoa(len(data)),
			"etag":           a.etag,
		}

		if a.zipped != nil && strings.Contains(r.Headers()["accept-encoding"], "gzip") {
			data = a.zipped
			headers["content-encoding"] = "gzip"
			headers["content-length"] = strconv.Itoa(len(data))
		}

		// The client already holds this exact asset.
		if r.Headers()["if-none-match"] == a.etag {
			status = 304
			data = nil
			delete(headers, "content-encoding")
			delete(headers, "content-length")
			delete(headers, "content-type")
		}

		if r.Method() == "HEAD" {
			data = nil
		}

		return []any{status, headers, body.Bytes(data)}, nil
	}, nil
}

func contentTypeFor(lpath string, v any) string {
	if ext := filepath.Ext(lpath); ext != "" {
		if ctype := mime.TypeByExtension(ext); ctype != "" {
			return ctype
		}
	}
	return body.GuessContentType(v)
}

func isVideo(lpath string) bool {
	for _, ext := range videoExtensions {
		if strings.HasSuffix(lpath, ext) {
			return true
		}
	}
	return false
}

func gzipBytes(data []byte) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil
	}
	if err := zw.Close(); err != nil {
		return nil
	}
	return buf.Bytes()
}
