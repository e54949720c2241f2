package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/almarklein/asgineer/pkg/app"
	"github.com/almarklein/asgineer/pkg/assets"
	"github.com/almarklein/asgineer/pkg/body"
	"github.com/almarklein/asgineer/pkg/config"
	"github.com/almarklein/asgineer/pkg/request"
)

const indexPage = `<!DOCTYPE html>
<html>
<head><title>asgineerd</title></head>
<body>
<h1>asgineerd</h1>
<p>Endpoints: <a href="/echo">/echo</a>, <a href="/chunks">/chunks</a>,
/ws (websocket), /assets/&lt;name&gt;.</p>
</body>
</html>
`

func buildHandler(cfg *config.Config) (app.Handler, error) {
	var serveAsset assets.ServeFunc
	if cfg.Assets.Dir != "" {
		files, err := loadAssets(cfg.Assets.Dir)
		if err != nil {
			return nil, err
		}
		serveAsset, err = assets.NewHandler(files, &assets.Options{MaxAge: cfg.Assets.MaxAge})
		if err != nil {
			return nil, err
		}
	}
	maxBody := cfg.Limits.MaxBodyBytes

	return func(ctx context.Context, r request.Request) (any, error) {
		if ws, ok := r.(*request.WebSocketRequest); ok {
			return nil, echoWebSocket(ctx, ws)
		}
		hr := r.(*request.HTTPRequest)
		switch {
		case r.Path() == "/":
			return indexPage, nil
		case r.Path() == "/echo":
			return echoHTTP(ctx, hr, maxBody)
		case r.Path() == "/chunks":
			return chunkStream(), nil
		case strings.HasPrefix(r.Path(), "/assets/") && serveAsset != nil:
			return serveAsset(ctx, r, strings.TrimPrefix(r.Path(), "/assets/"))
		default:
			return []any{404, "Not found"}, nil
		}
	}, nil
}

// echoHTTP mirrors the request back as JSON. Sending a body is
// optional; a malformed one is a client error, not a crash.
func echoHTTP(ctx context.Context, r *request.HTTPRequest, maxBody int64) (any, error) {
	out := map[string]any{
		"method": r.Method(),
		"path":   r.Path(),
		"query":  r.QueryDict(),
	}
	data, err := r.GetBody(ctx, maxBody)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		var payload any
		if err := body.DecodeJSON(data, &payload); err != nil {
			var mj *body.MalformedJSONError
			if errors.As(err, &mj) {
				return []any{400, "Request body is not valid JSON"}, nil
			}
			return nil, err
		}
		out["payload"] = payload
	}
	return out, nil
}

// chunkStream sends a handful of chunks to demonstrate a streamed
// response.
func chunkStream() body.Stream {
	return func(ctx context.Context, emit func(chunk any) error) error {
		for i := 0; i < 5; i++ {
			if err := emit(fmt.Sprintf("chunk %d\n", i)); err != nil {
				return err
			}
		}
		return nil
	}
}

// echoWebSocket greets the peer and echoes every message until the
// peer goes away.
func echoWebSocket(ctx context.Context, ws *request.WebSocketRequest) error {
	if err := ws.Accept(ctx, ""); err != nil {
		return err
	}
	if err := ws.Send(ctx, "welcome"); err != nil {
		return err
	}
	return ws.ReceiveIter(ctx, func(m request.Message) error {
		return ws.Send(ctx, m)
	})
}

func loadAssets(dir string) (map[string]any, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read assets dir: %w", err)
	}
	files := make(map[string]any, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read asset %s: %w", e.Name(), err)
		}
		files[e.Name()] = data
	}
	return files, nil
}
