package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"wacampaign/internal/config"
	"wacampaign/internal/httpserver"
	"wacampaign/internal/logging"
	"wacampaign/internal/mockapi"
	"wacampaign/internal/observability"
	"wacampaign/internal/webhook"
)

func main() {
	cfg := config.LoadServer()
	logging.Init("mock-whatsapp", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	observability.Register(prometheus.DefaultRegisterer)

	proc := webhook.NewProcessor()
	listeners := []mockapi.Option{mockapi.WithStatusListener(webhook.Emitter(proc))}
	if cfg.Forward.URL != "" {
		fwd := webhook.NewForwarder(cfg.Forward, cfg.AppSecret)
		listeners = append(listeners, mockapi.WithStatusListener(fwd.Listener(ctx)))
		slog.Info("forwarding simulated webhooks", "url", cfg.Forward.URL)
	}
	api := mockapi.New(cfg.Simulation, listeners...)

	s := httpserver.New()
	(&httpserver.API{Transport: api, Proc: proc}).Register(s.Mux)
	(&httpserver.Webhook{Proc: proc, AppSecret: cfg.AppSecret, VerifyToken: cfg.VerifyToken}).Register(s.Mux)
	s.Mux.Use(httpserver.Recover, httpserver.Metrics(observability.APIRequests))

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: httpserver.Logging(s.Mux)}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: metricsMux}

	g, gctx := errgroup.WithContext(ctx)
	for _, hs := range []*http.Server{srv, metricsSrv} {
		hs := hs
		g.Go(func() error {
			slog.Info("mock-whatsapp listening", "addr", hs.Addr)
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("mock-whatsapp shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		api.Reset()
		return errors.Join(srv.Shutdown(shutdownCtx), metricsSrv.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		slog.Error("mock-whatsapp server failed", "err", err)
		os.Exit(1)
	}
}
