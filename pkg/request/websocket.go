package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/almarklein/asgineer/pkg/body"
	"github.com/almarklein/asgineer/pkg/wire"
)

// MessageKind tags a websocket message as text or binary.
type MessageKind int

const (
	KindText MessageKind = iota
	KindBinary
)

// Message is one inbound or outbound websocket message. A disconnect
// is never represented as a Message; it surfaces as a DisconnectError.
type Message struct {
	Kind MessageKind
	Data []byte
}

// Text builds a text message.
func Text(s string) Message { return Message{Kind: KindText, Data: []byte(s)} }

// Binary builds a binary message.
func Binary(b []byte) Message { return Message{Kind: KindBinary, Data: b} }

// WebSocketRequest represents one websocket connection. The handler
// must call Accept before sending or receiving, and communicates only
// through Send/Receive; returning a response value is a usage error.
type WebSocketRequest struct {
	base
	receive wire.ReceiveFunc
	send    wire.SendFunc

	// The peer and the application each have their own state: the peer
	// may disconnect while the application still holds the request.
	peerState State
	appState  State
}

// NewWebSocket wraps a connection scope and its capabilities in a
// WebSocketRequest. It is called by the adapter, once per connection.
func NewWebSocket(scope *wire.Scope, receive wire.ReceiveFunc, send wire.SendFunc) *WebSocketRequest {
	return &WebSocketRequest{base: base{scope: scope}, receive: receive, send: send}
}

// State returns the application-side lifecycle state.
func (r *WebSocketRequest) State() State { return r.appState }

// rawReceive pulls the next inbound event, tracking the peer's state.
func (r *WebSocketRequest) rawReceive(ctx context.Context) (wire.Event, error) {
	if r.peerState == StateClosed {
		return nil, &wire.StateError{Op: "receive", State: r.peerState.String()}
	}
	ev, err := r.receive(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// The host canceled the connection; to the handler that is
			// the same as the peer going away.
			r.peerState = StateClosed
			return nil, &wire.DisconnectError{Code: wire.CloseGoingAway}
		}
		return nil, err
	}
	switch ev.(type) {
	case wire.WSConnect:
		r.peerState = StateAccepted
	case wire.WSDisconnect:
		r.peerState = StateClosed
	}
	return ev, nil
}

// Accept completes the websocket handshake. It must be called before
// any Send or Receive. The subprotocol may be empty.
func (r *WebSocketRequest) Accept(ctx context.Context, subprotocol string) error {
	if r.appState != StateInit {
		return &wire.StateError{Op: "accept", State: r.appState.String()}
	}
	if r.peerState == StateInit {
		// The connect event precedes everything else; wait for it.
		ev, err := r.rawReceive(ctx)
		if err != nil {
			return err
		}
		if d, ok := ev.(wire.WSDisconnect); ok {
			return &wire.DisconnectError{Code: d.Code}
		}
	}
	if err := r.send(ctx, wire.WSAccept{Subprotocol: subprotocol}); err != nil {
		return err
	}
	r.appState = StateAccepted
	return nil
}

// Receive waits for one inbound message. A peer disconnect surfaces as
// a DisconnectError, never as a message value.
func (r *WebSocketRequest) Receive(ctx context.Context) (Message, error) {
	if r.appState != StateAccepted {
		return Message{}, &wire.StateError{Op: "receive", State: r.appState.String()}
	}
	ev, err := r.rawReceive(ctx)
	if err != nil {
		return Message{}, err
	}
	switch ev := ev.(type) {
	case wire.WSMessage:
		if ev.Text {
			return Message{Kind: KindText, Data: ev.Data}, nil
		}
		return Message{Kind: KindBinary, Data: ev.Data}, nil
	case wire.WSDisconnect:
		return Message{}, &wire.DisconnectError{Code: ev.Code}
	default:
		return Message{}, fmt.Errorf("unexpected websocket event %T", ev)
	}
}

// ReceiveIter calls fn for each inbound message until the peer closes.
// A clean close ends the iteration normally; an abnormal disconnect is
// returned as a DisconnectError. An error from fn stops the iteration.
func (r *WebSocketRequest) ReceiveIter(ctx context.Context, fn func(Message) error) error {
	for {
		msg, err := r.Receive(ctx)
		if err != nil {
			var de *wire.DisconnectError
			if errors.As(err, &de) && de.Normal() {
				return nil
			}
			return err
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
}

// ReceiveJSON waits for one inbound message and decodes it into v.
// Works for text and binary messages alike.
func (r *WebSocketRequest) ReceiveJSON(ctx context.Context, v any) error {
	msg, err := r.Receive(ctx)
	if err != nil {
		return err
	}
	return body.DecodeJSON(msg.Data, v)
}

// Send sends one message. The value can be a []byte (binary), a string
// (text), a Message, or a map (JSON-encoded and sent as text). Sending
// before Accept or after Close fails with a StateError.
func (r *WebSocketRequest) Send(ctx context.Context, v any) error {
	if r.appState != StateAccepted {
		return &wire.StateError{Op: "send", State: r.appState.String()}
	}
	var ev wire.WSMessage
	switch v := v.(type) {
	case []byte:
		ev = wire.WSMessage{Data: v}
	case string:
		ev = wire.WSMessage{Text: true, Data: []byte(v)}
	case Message:
		ev = wire.WSMessage{Text: v.Kind == KindText, Data: v.Data}
	case map[string]any, map[string]string:
		data, err := json.Marshal(v)
		if err != nil {
			return &body.EncodingError{Err: err}
		}
		ev = wire.WSMessage{Text: true, Data: data}
	default:
		return &body.EncodingError{Err: fmt.Errorf("can only send bytes, string, Message or map, not %T", v)}
	}
	return r.send(ctx, ev)
}

// Close closes the websocket from the application side. Further sends
// and receives fail with a StateError.
func (r *WebSocketRequest) Close(ctx context.Context, code int) error {
	if r.appState == StateClosed {
		return &wire.StateError{Op: "close", State: r.appState.String()}
	}
	if err := r.send(ctx, wire.WSClose{Code: code}); err != nil {
		return err
	}
	r.appState = StateClosed
	return nil
}
