// Command asgineerd runs a small reference application on top of the
// adapter: an HTML index, a JSON echo endpoint, a chunked stream, a
// websocket echo and optional in-memory asset serving.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"

	"github.com/almarklein/asgineer/pkg/app"
	"github.com/almarklein/asgineer/pkg/config"
	"github.com/almarklein/asgineer/pkg/host"
	"github.com/almarklein/asgineer/pkg/logger"
	"github.com/almarklein/asgineer/pkg/metrics"
	"github.com/almarklein/asgineer/pkg/middleware"
)

func main() {
	_ = godotenv.Load(".env")
	addrFlag := flag.String("addr", "", "listen address (overrides config)")
	cfgFlag := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgFlag)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *addrFlag != "" {
		cfg.Server.Address = *addrFlag
	}
	lg := logger.FromEnv(cfg.Log.Level)

	var collector *metrics.Collector
	if cfg.Metrics.Address != "" {
		reg := prometheus.NewRegistry()
		collector = metrics.New(reg)
		msrv := &http.Server{
			Addr:    cfg.Metrics.Address,
			Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := msrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				lg.Error("metrics_server_failed", "error", err.Error())
			}
		}()
		lg.Info("metrics_listening", "addr", cfg.Metrics.Address)
	}

	handler, err := buildHandler(cfg)
	if err != nil {
		log.Fatalf("failed to build handler: %v", err)
	}
	handler = middleware.PayloadGuard(handler)
	if cfg.Limits.RPS > 0 {
		handler = middleware.RateLimit(handler, cfg.Limits.RPS, cfg.Limits.Burst)
	}
	a := app.New(handler, app.WithLogger(lg), app.WithMetrics(collector))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lifespanDone := make(chan error, 1)
	go func() { lifespanDone <- host.RunLifespan(ctx, a) }()

	lg.Info("listening", "addr", cfg.Server.Address, "engine", cfg.Server.Engine)
	switch cfg.Server.Engine {
	case "fasthttp":
		srv := &fasthttp.Server{Handler: host.FastHTTP(a)}
		go func() {
			<-ctx.Done()
			_ = srv.Shutdown()
		}()
		if cfg.Server.TLS.CertFile != "" {
			err = srv.ListenAndServeTLS(cfg.Server.Address, cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe(cfg.Server.Address)
		}
	default:
		srv := &http.Server{Addr: cfg.Server.Address, Handler: host.NetHTTP(a)}
		go func() {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
		if cfg.Server.TLS.CertFile != "" {
			err = srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err == http.ErrServerClosed {
			err = nil
		}
	}
	if err != nil {
		lg.Error("server_failed", "error", err.Error())
		os.Exit(1)
	}
	if err := <-lifespanDone; err != nil {
		lg.Error("lifespan_failed", "error", err.Error())
	}
}
