// Command fenrird runs the matching engine process: the TCP order-entry
// server, the read-only websocket feed, and a Prometheus /metrics endpoint,
// all backed by one internal/host.Host.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"ferrum/internal/config"
	"ferrum/internal/feed"
	"ferrum/internal/host"
	"ferrum/internal/metrics"
	"ferrum/internal/net"
)

func main() {
	flags := pflag.NewFlagSet("fenrird", pflag.ExitOnError)
	cfg, err := config.Load(flags, os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	h := host.New()
	m := metrics.New()
	h.AddReporter(m)

	feedHub := feed.NewHub()
	h.AddReporter(feedHub)
	go feedHub.Run()

	srv := net.New(cfg.ListenAddr, cfg.ListenPort, h, cfg.Workers)

	go serveFeed(cfg, feedHub)
	go serveMetrics(cfg, m)
	go depthTicker(ctx, h, m)

	log.Info().
		Str("listenAddr", cfg.ListenAddr).
		Int("listenPort", cfg.ListenPort).
		Int("workers", cfg.Workers).
		Msg("fenrird starting")

	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server exited with error")
	}
}

func serveFeed(cfg *config.Config, hub *feed.Hub) {
	mux := http.NewServeMux()
	mux.Handle("/feed", hub)
	addr := cfg.FeedAddr + ":" + strconv.Itoa(cfg.FeedPort)
	log.Info().Str("address", addr).Msg("feed listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("feed server exited")
	}
}

func serveMetrics(cfg *config.Config, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	addr := cfg.ListenAddr + ":" + strconv.Itoa(cfg.MetricsPort)
	log.Info().Str("address", addr).Msg("metrics listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server exited")
	}
}

// depthTicker periodically refreshes the book-depth gauges for every asset
// that has seen at least one request, since those gauges reflect resting
// state rather than a per-event delta.
func depthTicker(ctx context.Context, h *host.Host, m *metrics.Metrics) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, asset := range h.Registry.Assets() {
				if snap, ok := h.Snapshot(asset); ok {
					m.ObserveDepth(asset, snap)
				}
			}
		}
	}
}
