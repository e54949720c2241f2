package host

import (
	"context"
	"errors"

	"github.com/almarklein/asgineer/pkg/app"
	"github.com/almarklein/asgineer/pkg/wire"
)

// RunLifespan drives the app's lifespan protocol around a host's
// lifetime: startup is delivered immediately, shutdown when ctx is
// canceled. It blocks until the app confirms shutdown and returns a
// non-nil error when the app reported a startup or shutdown failure.
func RunLifespan(ctx context.Context, a *app.App) error {
	phase := 0
	var failure error

	receive := func(context.Context) (wire.Event, error) {
		switch phase {
		case 0:
			phase = 1
			return wire.LifespanStartup{}, nil
		case 1:
			phase = 2
			<-ctx.Done()
			return wire.LifespanShutdown{}, nil
		default:
			return nil, context.Canceled
		}
	}
	send := func(_ context.Context, ev wire.Event) error {
		switch ev := ev.(type) {
		case wire.LifespanStartupFailed:
			failure = errors.New(ev.Message)
		case wire.LifespanShutdownFailed:
			failure = errors.New(ev.Message)
		}
		return nil
	}

	a.Serve(context.Background(), &wire.Scope{Kind: wire.KindLifespan}, receive, send)
	return failure
}
