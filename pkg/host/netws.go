package host

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/almarklein/asgineer/pkg/app"
	"github.com/almarklein/asgineer/pkg/wire"
)

const closeWriteTimeout = 5 * time.Second

// The host does no origin policing; that is application policy, and
// handlers see the origin header in the scope.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// serveNetWebSocket runs one websocket connection. The 101 handshake
// is deferred until the app accepts: a ws-close event before that
// rejects the connection with a 403 instead.
func serveNetWebSocket(a *app.App, w http.ResponseWriter, r *http.Request) {
	scope := scopeFromRequest(r, wire.KindWebSocket)
	scope.Subprotocols = websocket.Subprotocols(r)

	var conn *websocket.Conn
	connectSent := false

	receive := func(ctx context.Context) (wire.Event, error) {
		if !connectSent {
			connectSent = true
			return wire.WSConnect{}, nil
		}
		if conn == nil {
			// Receiving before accepting; nothing can arrive.
			<-ctx.Done()
			return wire.WSDisconnect{Code: wire.CloseGoingAway}, nil
		}
		mt, data, err := conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return wire.WSDisconnect{Code: ce.Code}, nil
			}
			return wire.WSDisconnect{Code: websocket.CloseAbnormalClosure}, nil
		}
		return wire.WSMessage{Text: mt == websocket.TextMessage, Data: data}, nil
	}

	send := func(ctx context.Context, ev wire.Event) error {
		switch ev := ev.(type) {
		case wire.WSAccept:
			var hdr http.Header
			if ev.Subprotocol != "" {
				hdr = http.Header{"Sec-WebSocket-Protocol": {ev.Subprotocol}}
			}
			c, err := upgrader.Upgrade(w, r, hdr)
			if err != nil {
				return err
			}
			conn = c
			return nil
		case wire.WSMessage:
			if conn == nil {
				return &wire.StateError{Op: "send message", State: "not accepted"}
			}
			mt := websocket.BinaryMessage
			if ev.Text {
				mt = websocket.TextMessage
			}
			return conn.WriteMessage(mt, ev.Data)
		case wire.WSClose:
			if conn == nil {
				w.WriteHeader(http.StatusForbidden)
				return nil
			}
			msg := websocket.FormatCloseMessage(ev.Code, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
			return conn.Close()
		default:
			return fmt.Errorf("unexpected event %T on websocket connection", ev)
		}
	}

	a.Serve(r.Context(), scope, receive, send)
	if conn != nil {
		_ = conn.Close()
	}
}
