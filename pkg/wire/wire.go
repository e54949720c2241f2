// Package wire defines the boundary between a host server and the
// application adapter: the per-connection Scope, the closed set of
// inbound/outbound events, and the receive/send capabilities a host
// hands to the adapter for each connection.
package wire

import "context"

// Kind identifies the protocol of a connection scope.
type Kind string

const (
	KindHTTP      Kind = "http"
	KindWebSocket Kind = "websocket"
	KindLifespan  Kind = "lifespan"
)

// Header is a single header pair as it appears on the wire. Hosts
// lowercase the name before building a Scope; values are untouched.
type Header struct {
	Name  string
	Value string
}

// Addr is one endpoint of a connection.
type Addr struct {
	Host string
	Port int
}

// Scope describes one connection. It is built once by the host and is
// read-only for the lifetime of the connection.
type Scope struct {
	Kind        Kind
	HTTPVersion string
	Method      string
	Scheme      string
	// Path is the percent-decoded path part of the URL.
	Path     string
	RootPath string
	// Query is the raw query string, not percent-decoded.
	Query        string
	Headers      []Header
	Client       Addr
	Server       Addr
	Subprotocols []string
}

// Header returns the first value of the named header (lowercase name),
// or "" when absent.
func (s *Scope) Header(name string) string {
	for _, h := range s.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// Event is one message crossing the host/application boundary.
// The set of implementations is closed.
type Event interface{ event() }

// RequestChunk carries one piece of an inbound HTTP request body.
// More is false on the final chunk.
type RequestChunk struct {
	Data []byte
	More bool
}

// Disconnect signals that the peer went away before the exchange was
// finished (HTTP connections only; websockets use WSDisconnect).
type Disconnect struct{}

// ResponseStart commits status and headers for an HTTP response.
// It is sent exactly once, before any ResponseChunk.
type ResponseStart struct {
	Status  int
	Headers []Header
}

// ResponseChunk carries one piece of the outbound HTTP response body.
// More is false on the final chunk.
type ResponseChunk struct {
	Data []byte
	More bool
}

// WSConnect is the first inbound event on a websocket connection; the
// application answers it with WSAccept or WSClose.
type WSConnect struct{}

// WSAccept completes the websocket handshake.
type WSAccept struct {
	Subprotocol string
}

// WSMessage is a websocket data frame, in either direction.
type WSMessage struct {
	Text bool
	Data []byte
}

// WSDisconnect reports that the peer closed the websocket.
type WSDisconnect struct {
	Code int
}

// WSClose closes the websocket from the application side.
type WSClose struct {
	Code int
}

// Lifespan events let a host run the application's startup/shutdown
// hooks around its own lifetime.
type (
	LifespanStartup          struct{}
	LifespanStartupComplete  struct{}
	LifespanStartupFailed    struct{ Message string }
	LifespanShutdown         struct{}
	LifespanShutdownComplete struct{}
	LifespanShutdownFailed   struct{ Message string }
)

func (RequestChunk) event()             {}
func (Disconnect) event()               {}
func (ResponseStart) event()            {}
func (ResponseChunk) event()            {}
func (WSConnect) event()                {}
func (WSAccept) event()                 {}
func (WSMessage) event()                {}
func (WSDisconnect) event()             {}
func (WSClose) event()                  {}
func (LifespanStartup) event()          {}
func (LifespanStartupComplete) event()  {}
func (LifespanStartupFailed) event()    {}
func (LifespanShutdown) event()         {}
func (LifespanShutdownComplete) event() {}
func (LifespanShutdownFailed) event()   {}

// ReceiveFunc blocks until the next inbound event arrives. It returns
// the context error when the host cancels the connection.
type ReceiveFunc func(ctx context.Context) (Event, error)

// SendFunc delivers one outbound event to the host.
type SendFunc func(ctx context.Context, ev Event) error
