// Package host adapts an App to concrete server runtimes: net/http
// (with websocket upgrades) and fasthttp. A host builds the connection
// scope, feeds inbound events to the app and writes outbound events to
// the transport; everything protocol-shaped lives in the app itself.
package host

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/almarklein/asgineer/pkg/app"
	"github.com/almarklein/asgineer/pkg/wire"
)

const readChunkSize = 64 << 10

// NetHTTP adapts an App into a standard net/http handler. Requests
// carrying a websocket upgrade are served over the websocket protocol;
// everything else is a plain HTTP exchange.
func NetHTTP(a *app.App) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isWebSocketUpgrade(r) {
			serveNetWebSocket(a, w, r)
			return
		}

		scope := scopeFromRequest(r, wire.KindHTTP)

		bodyDone := false
		buf := make([]byte, readChunkSize)
		receive := func(ctx context.Context) (wire.Event, error) {
			if bodyDone {
				// The body is consumed; the next event is the client
				// going away.
				<-ctx.Done()
				return wire.Disconnect{}, nil
			}
			n, err := r.Body.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				if err != nil {
					bodyDone = true
					return wire.RequestChunk{Data: data, More: false}, nil
				}
				return wire.RequestChunk{Data: data, More: true}, nil
			}
			bodyDone = true
			if err == nil || err == io.EOF {
				return wire.RequestChunk{More: false}, nil
			}
			return wire.Disconnect{}, nil
		}

		send := func(ctx context.Context, ev wire.Event) error {
			switch ev := ev.(type) {
			case wire.ResponseStart:
				h := w.Header()
				for _, hd := range ev.Headers {
					h.Add(hd.Name, hd.Value)
				}
				w.WriteHeader(ev.Status)
				return nil
			case wire.ResponseChunk:
				if len(ev.Data) > 0 {
					if _, err := w.Write(ev.Data); err != nil {
						return err
					}
				}
				if ev.More {
					if f, ok := w.(http.Flusher); ok {
						f.Flush()
					}
				}
				return nil
			default:
				return fmt.Errorf("unexpected event %T on http connection", ev)
			}
		}

		a.Serve(r.Context(), scope, receive, send)
	})
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

// scopeFromRequest builds the immutable connection scope out of a
// net/http request.
func scopeFromRequest(r *http.Request, kind wire.Kind) *wire.Scope {
	headers := make([]wire.Header, 0, len(r.Header)+1)
	// net/http keeps the Host header out of Header; put it back.
	headers = append(headers, wire.Header{Name: "host", Value: r.Host})
	for name, vals := range r.Header {
		lname := strings.ToLower(name)
		for _, v := range vals {
			headers = append(headers, wire.Header{Name: lname, Value: v})
		}
	}

	scheme := "http"
	if kind == wire.KindWebSocket {
		scheme = "ws"
	}
	if r.TLS != nil {
		scheme += "s"
	}

	return &wire.Scope{
		Kind:        kind,
		HTTPVersion: fmt.Sprintf("%d.%d", r.ProtoMajor, r.ProtoMinor),
		Method:      r.Method,
		Scheme:      scheme,
		Path:        r.URL.Path,
		Query:       r.URL.RawQuery,
		Headers:     headers,
		Client:      addrFromString(r.RemoteAddr),
		Server:      serverAddr(r.Host, scheme),
	}
}

func addrFromString(s string) wire.Addr {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return wire.Addr{Host: s}
	}
	port, _ := strconv.Atoi(portStr)
	return wire.Addr{Host: host, Port: port}
}

func serverAddr(hostport, scheme string) wire.Addr {
	addr := addrFromString(hostport)
	if addr.Port == 0 {
		switch scheme {
		case "https", "wss":
			addr.Port = 443
		default:
			addr.Port = 80
		}
	}
	return addr
}
