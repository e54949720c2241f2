// Package request implements the per-connection request objects passed
// to handlers: a read-only view over the connection scope plus the
// body, send and receive operations for the HTTP and websocket
// protocols. Each request is owned by exactly one in-flight connection
// and is not safe for concurrent use.
package request

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/almarklein/asgineer/pkg/wire"
)

// State is the position of a connection in its lifecycle. Transitions
// happen only through the request's public operations.
type State int

const (
	StateInit State = iota
	StateAccepted
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAccepted:
		return "accepted"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Request is the read-only capability set shared by both protocol
// variants. The concrete types are *HTTPRequest and *WebSocketRequest.
type Request interface {
	// Scope returns the raw connection scope supplied by the host.
	Scope() *wire.Scope
	// Method is the HTTP method, e.g. "GET" or "POST".
	Method() string
	// Headers maps lowercase header names to values.
	Headers() map[string]string
	// URL is the full unquoted url: scheme, host, port, path and query.
	URL() string
	Scheme() string
	// Host is the requested host name, from the Host header when
	// present, otherwise from the server address.
	Host() string
	// Port is the server's port.
	Port() int
	// Path is the percent-decoded path, with the root path prepended.
	Path() string
	// QueryList returns the query parameters in order, duplicates
	// preserved.
	QueryList() [][2]string
	// QueryDict returns the query parameters as a map; on duplicate
	// keys the last value wins.
	QueryDict() map[string]string
	// State is the connection's current lifecycle state.
	State() State
}

// base holds the scope and the accessor caches. The caches need no
// locking: a request is driven by a single task.
type base struct {
	scope     *wire.Scope
	headers   map[string]string
	querylist [][2]string
}

func (b *base) Scope() *wire.Scope { return b.scope }

func (b *base) Method() string { return b.scope.Method }

func (b *base) Headers() map[string]string {
	if b.headers == nil {
		b.headers = make(map[string]string, len(b.scope.Headers))
		for _, h := range b.scope.Headers {
			b.headers[h.Name] = h.Value
		}
	}
	return b.headers
}

func (b *base) Scheme() string { return b.scope.Scheme }

func (b *base) Host() string {
	host := b.Headers()["host"]
	if host == "" {
		host = b.scope.Server.Host
	}
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}

func (b *base) Port() int { return b.scope.Server.Port }

func (b *base) Path() string { return b.scope.RootPath + b.scope.Path }

func (b *base) URL() string {
	u := b.Scheme() + "://" + b.Host() + ":" + strconv.Itoa(b.Port()) + b.Path()
	if ql := b.QueryList(); len(ql) > 0 {
		pairs := make([]string, len(ql))
		for i, kv := range ql {
			pairs[i] = kv[0] + "=" + kv[1]
		}
		u += "?" + strings.Join(pairs, "&")
	}
	return u
}

func (b *base) QueryList() [][2]string {
	if b.querylist == nil {
		b.querylist = parseQuery(b.scope.Query)
	}
	return b.querylist
}

func (b *base) QueryDict() map[string]string {
	d := make(map[string]string, len(b.QueryList()))
	for _, kv := range b.QueryList() {
		d[kv[0]] = kv[1]
	}
	return d
}

// parseQuery splits a raw query string into ordered key/value pairs.
// Pairs without a value are skipped; undecodable escapes keep the pair
// out of the result rather than failing the request.
func parseQuery(q string) [][2]string {
	out := [][2]string{}
	for _, part := range strings.Split(q, "&") {
		key, val, found := strings.Cut(part, "=")
		if !found || key == "" || val == "" {
			continue
		}
		k, err1 := url.QueryUnescape(key)
		v, err2 := url.QueryUnescape(val)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, [2]string{k, v})
	}
	return out
}
