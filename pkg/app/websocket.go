package app

import (
	"context"

	"github.com/almarklein/asgineer/pkg/request"
	"github.com/almarklein/asgineer/pkg/wire"
)

// serveWebSocket drives one websocket connection. The handler does all
// the communicating itself; this function only applies the failure
// policy and makes sure the connection ends up closed.
func (a *App) serveWebSocket(ctx context.Context, scope *wire.Scope, receive wire.ReceiveFunc, send wire.SendFunc) {
	log := a.connLogger(scope)
	a.metrics.WebsocketOpened()
	defer a.metrics.WebsocketClosed()

	req := request.NewWebSocket(scope, receive, send)
	result, err := a.invoke(ctx, req)
	switch {
	case err != nil && disconnected(err):
		// An uncaught peer disconnect or host cancellation is ordinary
		// termination.
	case err != nil:
		log.Error("websocket_handler_failed", "error", err.Error())
		a.metrics.Failure("handler_error")
	case result != nil:
		log.Warn("websocket_handler_returned_value",
			"hint", "websocket handlers must return nil and communicate via Send/Receive")
		a.metrics.Failure("usage_error")
	}

	// Hosts close the connection when Serve returns, but not all of
	// them do it promptly, so close from our side as well. A canceled
	// connection gets no further sends at all.
	if req.State() != request.StateClosed && ctx.Err() == nil {
		_ = req.Close(ctx, wire.CloseNormal)
	}
	a.metrics.Request("websocket", wire.CloseNormal)
}
