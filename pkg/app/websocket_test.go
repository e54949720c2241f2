package app

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/almarklein/asgineer/pkg/request"
	"github.com/almarklein/asgineer/pkg/wire"
	"github.com/almarklein/asgineer/pkg/wire/wiretest"
)

func wsScope() *wire.Scope {
	return &wire.Scope{
		Kind:   wire.KindWebSocket,
		Method: "GET",
		Scheme: "ws",
		Path:   "/ws",
		Server: wire.Addr{Host: "127.0.0.1", Port: 8080},
	}
}

func TestWebSocketEcho(t *testing.T) {
	a, rec := newTestApp(func(ctx context.Context, r request.Request) (any, error) {
		ws := r.(*request.WebSocketRequest)
		if err := ws.Accept(ctx, ""); err != nil {
			return nil, err
		}
		return nil, ws.ReceiveIter(ctx, func(m request.Message) error {
			return ws.Send(ctx, m)
		})
	})
	c := wiretest.New(
		wire.WSConnect{},
		wire.WSMessage{Text: true, Data: []byte("hi")},
		wire.WSDisconnect{Code: wire.CloseNormal},
	)
	a.Serve(context.Background(), wsScope(), c.Receive, c.Send)

	sent := c.Sent()
	if _, ok := sent[0].(wire.WSAccept); !ok {
		t.Fatalf("first event %T", sent[0])
	}
	if m, ok := sent[1].(wire.WSMessage); !ok || string(m.Data) != "hi" {
		t.Fatalf("echo event %+v", sent[1])
	}
	if _, ok := sent[len(sent)-1].(wire.WSClose); !ok {
		t.Fatalf("last event %T, want close", sent[len(sent)-1])
	}
	if len(rec.messages()) != 0 {
		t.Fatalf("unexpected log records: %v", rec.messages())
	}
}

func TestWebSocketUncaughtDisconnectIsSilent(t *testing.T) {
	a, rec := newTestApp(func(ctx context.Context, r request.Request) (any, error) {
		ws := r.(*request.WebSocketRequest)
		if err := ws.Accept(ctx, ""); err != nil {
			return nil, err
		}
		_, err := ws.Receive(ctx)
		return nil, err // the disconnect error, uncaught
	})
	c := wiretest.New(wire.WSConnect{}, wire.WSDisconnect{Code: 1006})
	a.Serve(context.Background(), wsScope(), c.Receive, c.Send)

	if len(rec.messages()) != 0 {
		t.Fatalf("disconnects must not be logged: %v", rec.messages())
	}
}

func TestWebSocketHandlerErrorIsLogged(t *testing.T) {
	a, rec := newTestApp(func(ctx context.Context, r request.Request) (any, error) {
		return nil, errors.New("ws handler broke")
	})
	c := wiretest.New(wire.WSConnect{})
	a.Serve(context.Background(), wsScope(), c.Receive, c.Send)

	if n := rec.count(slog.LevelError); n != 1 {
		t.Fatalf("%d error records, want 1: %v", n, rec.messages())
	}
}

func TestWebSocketReturnValueIsUsageError(t *testing.T) {
	a, rec := newTestApp(func(ctx context.Context, r request.Request) (any, error) {
		ws := r.(*request.WebSocketRequest)
		if err := ws.Accept(ctx, ""); err != nil {
			return nil, err
		}
		return "a websocket handler must not return this", nil
	})
	c := wiretest.New(wire.WSConnect{})
	a.Serve(context.Background(), wsScope(), c.Receive, c.Send)

	if n := rec.count(slog.LevelWarn); n != 1 {
		t.Fatalf("%d warn records, want 1: %v", n, rec.messages())
	}
	// The connection still closes normally.
	sent := c.Sent()
	if _, ok := sent[len(sent)-1].(wire.WSClose); !ok {
		t.Fatalf("last event %T, want close", sent[len(sent)-1])
	}
}

func TestWebSocketCancellationIsSilent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a, rec := newTestApp(func(_ context.Context, r request.Request) (any, error) {
		ws := r.(*request.WebSocketRequest)
		if err := ws.Accept(ctx, ""); err != nil {
			return nil, err
		}
		cancel()
		_, err := ws.Receive(ctx)
		return nil, err // the cancellation, uncaught
	})
	c := wiretest.New(wire.WSConnect{})
	a.Serve(ctx, wsScope(), c.Receive, c.Send)

	if len(rec.messages()) != 0 {
		t.Fatalf("cancellation must not be logged: %v", rec.messages())
	}
	// No close frame is attempted on a canceled connection.
	sent := c.Sent()
	if _, ok := sent[len(sent)-1].(wire.WSAccept); !ok {
		t.Fatalf("last event %T, want the accept to be the only send", sent[len(sent)-1])
	}
}

func TestLifespan(t *testing.T) {
	a, _ := newTestApp(func(context.Context, request.Request) (any, error) {
		return nil, nil
	})
	c := wiretest.New(wire.LifespanStartup{}, wire.LifespanShutdown{})
	a.Serve(context.Background(), &wire.Scope{Kind: wire.KindLifespan}, c.Receive, c.Send)

	sent := c.Sent()
	if len(sent) != 2 {
		t.Fatalf("sent %v", sent)
	}
	if _, ok := sent[0].(wire.LifespanStartupComplete); !ok {
		t.Fatalf("first event %T", sent[0])
	}
	if _, ok := sent[1].(wire.LifespanShutdownComplete); !ok {
		t.Fatalf("second event %T", sent[1])
	}
}
