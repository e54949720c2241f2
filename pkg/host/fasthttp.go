package host

import (
	"context"
	"fmt"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/almarklein/asgineer/pkg/app"
	"github.com/almarklein/asgineer/pkg/wire"
)

// FastHTTP adapts an App into a fasthttp request handler. fasthttp
// buffers request bodies up front, so the inbound stream is a single
// chunk; websocket scopes are not produced by this host.
func FastHTTP(a *app.App) fasthttp.RequestHandler {
	return func(rctx *fasthttp.RequestCtx) {
		cctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		scope := scopeFromRequestCtx(rctx)
		postBody := rctx.PostBody()
		bodyDone := false

		receive := func(ctx context.Context) (wire.Event, error) {
			if bodyDone {
				return wire.Disconnect{}, nil
			}
			bodyDone = true
			return wire.RequestChunk{Data: postBody, More: false}, nil
		}

		send := func(ctx context.Context, ev wire.Event) error {
			switch ev := ev.(type) {
			case wire.ResponseStart:
				rctx.SetStatusCode(ev.Status)
				for _, h := range ev.Headers {
					rctx.Response.Header.Add(h.Name, h.Value)
				}
				return nil
			case wire.ResponseChunk:
				if len(ev.Data) > 0 {
					if _, err := rctx.Write(ev.Data); err != nil {
						return err
					}
				}
				return nil
			default:
				return fmt.Errorf("unexpected event %T on http connection", ev)
			}
		}

		a.Serve(cctx, scope, receive, send)
	}
}

func scopeFromRequestCtx(rctx *fasthttp.RequestCtx) *wire.Scope {
	headers := make([]wire.Header, 0, 16)
	rctx.Request.Header.VisitAll(func(k, v []byte) {
		headers = append(headers, wire.Header{Name: strings.ToLower(string(k)), Value: string(v)})
	})

	scheme := "http"
	if rctx.IsTLS() {
		scheme = "https"
	}

	return &wire.Scope{
		Kind:        wire.KindHTTP,
		HTTPVersion: "1.1",
		Method:      string(rctx.Method()),
		Scheme:      scheme,
		Path:        string(rctx.Path()),
		Query:       string(rctx.URI().QueryString()),
		Headers:     headers,
		Client:      addrFromString(rctx.RemoteAddr().String()),
		Server:      serverAddr(string(rctx.Host()), scheme),
	}
}
