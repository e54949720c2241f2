package host

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/almarklein/asgineer/pkg/app"
	"github.com/almarklein/asgineer/pkg/request"
)

func TestNetHTTPWebSocketEcho(t *testing.T) {
	srv := httptest.NewServer(NetHTTP(echoApp()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, res, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if res.StatusCode != 101 {
		t.Fatalf("handshake status %d", res.StatusCode)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	mt, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if mt != websocket.TextMessage || string(data) != "hello" {
		t.Fatalf("echo %d %q", mt, data)
	}

	// A clean client close ends the exchange without an error level
	// response from the server.
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNetHTTPWebSocketRejection(t *testing.T) {
	// A handler that closes without accepting rejects the handshake.
	a := app.New(func(ctx context.Context, r request.Request) (any, error) {
		ws := r.(*request.WebSocketRequest)
		return nil, ws.Close(ctx, 1000)
	})
	srv := httptest.NewServer(NetHTTP(a))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, res, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if res == nil || res.StatusCode != 403 {
		t.Fatalf("response %+v", res)
	}
}
