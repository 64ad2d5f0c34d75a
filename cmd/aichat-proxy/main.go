// Command aichat-proxy runs the relay that proxied-mode clients post their
// requests to.
//
//	aichat-proxy -listen :8787 -allow llm.internal:8000
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/leofalp/aichat/core/proxy"
	"github.com/leofalp/aichat/core/settings"
	"github.com/leofalp/aichat/providers/observability/slogobs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "aichat-proxy:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML config file")
	listen := flag.String("listen", "", "listen address (overrides config)")
	allow := flag.String("allow", "", "comma-separated extra target hosts, or * for any")
	flag.Parse()

	cfg, err := settings.Load(*configPath)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Proxy.Listen = *listen
	}

	slog.SetDefault(slogobs.NewLogger(
		slogobs.WithLevel(slogobs.ParseLevel(cfg.Log.Level)),
		slogobs.WithFormat(slogobs.ParseFormat(cfg.Log.Format)),
	))

	registry, err := cfg.Registry()
	if err != nil {
		return err
	}

	hosts := cfg.Proxy.AllowedHosts
	if *allow != "" {
		hosts = append(hosts, strings.Split(*allow, ",")...)
	}

	server := proxy.New(registry,
		proxy.WithAllowedHosts(hosts...),
		proxy.WithRateLimit(cfg.Proxy.RatePerMinute, cfg.Proxy.Burst),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Serve(ctx, cfg.Proxy.Listen)
}
