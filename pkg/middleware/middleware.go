// Package middleware provides handler wrappers for cross-cutting
// request policy. Handlers compose by plain function calls, so a
// middleware is just a handler that delegates.
package middleware

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"

	"github.com/almarklein/asgineer/pkg/app"
	"github.com/almarklein/asgineer/pkg/body"
	"github.com/almarklein/asgineer/pkg/request"
	"github.com/almarklein/asgineer/pkg/wire"
)

// RateLimit wraps next with a per-client token bucket. HTTP requests
// over the limit get a 429; websocket connects over the limit are
// closed without being accepted. Non-positive rps or burst fall back
// to 5 rps / 10 burst.
func RateLimit(next app.Handler, rps float64, burst int) app.Handler {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}
	pool := &limiterPool{rps: rps, burst: burst}

	return func(ctx context.Context, r request.Request) (any, error) {
		if pool.get(r.Scope().Client.Host).Allow() {
			return next(ctx, r)
		}
		if ws, ok := r.(*request.WebSocketRequest); ok {
			return nil, ws.Close(ctx, wire.CloseGoingAway)
		}
		return []any{429, "Too many requests"}, nil
	}
}

type limiterPool struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	rps   float64
	burst int
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil {
		p.m = make(map[string]*rate.Limiter)
	}
	if l, ok := p.m[key]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(p.rps), p.burst)
	p.m[key] = l
	return l
}

// PayloadGuard turns an uncaught payload-too-large failure from next
// into a 413 response, provided nothing was sent yet.
func PayloadGuard(next app.Handler) app.Handler {
	return func(ctx context.Context, r request.Request) (any, error) {
		result, err := next(ctx, r)
		if err != nil && errors.Is(err, body.ErrPayloadTooLarge) && r.State() == request.StateInit {
			return []any{413, "Request body too large"}, nil
		}
		return result, err
	}
}
