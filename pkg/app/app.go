// Package app implements the adapter between a user handler and a host
// server. An App receives the scope and capabilities of one connection,
// builds the matching request object, invokes the handler and turns its
// return value into wire events. Every failure is handled here: no
// error or panic ever escapes Serve into the host.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/almarklein/asgineer/pkg/metrics"
	"github.com/almarklein/asgineer/pkg/request"
	"github.com/almarklein/asgineer/pkg/wire"
)

// Handler is the application entry point: one async function per
// connection. For HTTP scopes it receives an *request.HTTPRequest and
// may either return a response value (body, []any{headers, body},
// []any{status, headers, body}, []any{status, body} or a
// *response.Response) or drive the exchange itself with Accept/Send and
// return nil. For websocket scopes it receives a
// *request.WebSocketRequest, communicates via Accept/Send/Receive, and
// must return nil.
type Handler func(ctx context.Context, r request.Request) (any, error)

// App wraps a Handler into the shape a host server drives.
type App struct {
	handler Handler
	log     *slog.Logger
	metrics *metrics.Collector
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the diagnostic sink. Without it, diagnostics are
// discarded.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.log = l }
}

// WithMetrics attaches a prometheus collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(a *App) { a.metrics = c }
}

// New wraps handler into an App.
func New(handler Handler, opts ...Option) *App {
	a := &App{handler: handler}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return a
}

// Serve handles one connection. It dispatches on the scope kind and
// guards every code path: an escaping error or panic is a defect of
// this package, not something a host has to deal with.
func (a *App) Serve(ctx context.Context, scope *wire.Scope, receive wire.ReceiveFunc, send wire.SendFunc) {
	defer func() {
		if p := recover(); p != nil {
			a.log.Error("adapter_panic", "kind", string(scope.Kind), "panic", fmt.Sprint(p))
		}
	}()
	switch scope.Kind {
	case wire.KindHTTP:
		a.serveHTTP(ctx, scope, receive, send)
	case wire.KindWebSocket:
		a.serveWebSocket(ctx, scope, receive, send)
	case wire.KindLifespan:
		a.serveLifespan(ctx, receive, send)
	default:
		a.log.Warn("unknown_scope_kind", "kind", string(scope.Kind))
	}
}

// disconnected reports errors that mean the connection ended rather
// than the handler failing: a peer disconnect, or the host canceling
// the connection. Neither is logged and no response is attempted.
func disconnected(err error) bool {
	return wire.IsDisconnect(err) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// invoke calls the handler, converting a panic into an error so the
// failure policy has a single shape to deal with.
func (a *App) invoke(ctx context.Context, r request.Request) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return a.handler(ctx, r)
}

// connLogger returns a logger carrying the per-connection fields.
func (a *App) connLogger(scope *wire.Scope) *slog.Logger {
	return a.log.With(
		"req_id", uuid.NewString(),
		"kind", string(scope.Kind),
		"method", scope.Method,
		"path", scope.Path,
	)
}

// serveLifespan answers the host's startup and shutdown events.
func (a *App) serveLifespan(ctx context.Context, receive wire.ReceiveFunc, send wire.SendFunc) {
	for {
		ev, err := receive(ctx)
		if err != nil {
			return
		}
		switch ev.(type) {
		case wire.LifespanStartup:
			a.log.Info("server_starting")
			if err := send(ctx, wire.LifespanStartupComplete{}); err != nil {
				return
			}
		case wire.LifespanShutdown:
			a.log.Info("server_stopping")
			_ = send(ctx, wire.LifespanShutdownComplete{})
			return
		default:
			a.log.Warn("unknown_lifespan_event", "event", fmt.Sprintf("%T", ev))
		}
	}
}
