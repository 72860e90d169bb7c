package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"venue-pos/internal/app/api"
	"venue-pos/internal/app/notify"
	"venue-pos/internal/app/relay"
	"venue-pos/internal/common/logger"
	"venue-pos/internal/config"
)

const usage = "api-server | feed-relay | notification-subscriber"

func main() {
	mode := flag.String("mode", "", usage)
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
	port := flag.Int("port", 0, "api-server: http port (overrides config)")
	flag.Parse()

	lg := logger.New("bootstrap")
	defer lg.Sync()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		lg.Error("config_load_failed", err, map[string]any{"path": *configPath})
		os.Exit(1)
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var run func(context.Context) error
	switch *mode {
	case "api-server":
		run = func(ctx context.Context) error { return api.Run(ctx, cfg, cfg.HTTP.Port) }
	case "feed-relay":
		run = func(ctx context.Context) error { return relay.Run(ctx, cfg) }
	case "notification-subscriber":
		run = func(ctx context.Context) error { return notify.Run(ctx, cfg) }
	default:
		fmt.Fprintln(os.Stderr, "--mode is required: "+usage)
		os.Exit(2)
	}
	if err := cfg.Validate(*mode); err != nil {
		lg.Error("config_invalid", err, map[string]any{"mode": *mode})
		os.Exit(2)
	}

	lg.Info("service_started", map[string]any{"mode": *mode})
	if err := run(ctx); err != nil {
		lg.Error("fatal", err, map[string]any{"mode": *mode})
		cancel()
		os.Exit(1)
	}
	lg.Info("service_stopped", map[string]any{"mode": *mode})
}
