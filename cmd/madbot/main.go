package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"madbot/internal/adapter/channel"
	"madbot/internal/domain"
	"madbot/internal/infra/config"
	"madbot/internal/infra/logger"
	"madbot/internal/infra/metrics"
	"madbot/internal/infra/tracer"
	"madbot/internal/usecase"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	if len(os.Args) < 2 || strings.HasPrefix(os.Args[1], "-") || os.Args[1] == "run" {
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		return
	}

	switch os.Args[1] {
	case "search":
		os.Exit(runSearch(os.Args[2:]))
	case "wiki-request":
		if err := runWikiRequest(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "wiki-request: %v\n", err)
			os.Exit(1)
		}
	case "doctor":
		if err := runDoctor(); err != nil {
			fmt.Fprintf(os.Stderr, "doctor: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'madbot --help' for usage information.\n", os.Args[1])
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`madbot - wiki lookup bot for Discord

USAGE:
    madbot [COMMAND] [FLAGS]

COMMANDS:
    run             Run the bot (default)
    search [wiki] QUERY
                    Search a wiki from the terminal, e.g. "madbot search sgc 1969"
    wiki-request    Turn a wiki-request issue body (ISSUE_BODY or stdin)
                    into a config entry
    doctor          Run health checks on your setup

FLAGS:
    -h, --help         Show this help message
    --config PATH      Specify config file path (default: ./config.yaml)

CONFIGURATION:
    Config file: ./config.yaml (optional)
    Secrets:     DISCORD_TOKEN, DISCORD_APPLICATION_ID
    Environment: MADBOT_* variables override config`)
}

func configPath() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv("MADBOT_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func run() error {
	// 1. Config and secrets
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := config.RequireSecrets(cfg); err != nil {
		return fmt.Errorf("%w\nSet DISCORD_TOKEN and DISCORD_APPLICATION_ID from the Discord Developer Portal, "+
			"or discord.token and discord.application_id in config.yaml", err)
	}

	// 2. Logger & Tracer
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(context.Background())

	// 3. Wikis, result cache, metrics
	reg, err := buildRegistry(cfg, log)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	cache := usecase.NewResultCache()
	m := metrics.New(cache)
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr, log); err != nil {
				log.Error("metrics server error", "error", err)
			}
		}()
	}

	// 4. Channels
	wiki := channel.NewWikiHandler(reg, cache, m, log)
	var discordOpts []channel.DiscordOption
	if cfg.Discord.GuildID != "" {
		discordOpts = append(discordOpts, channel.WithDiscordGuild(cfg.Discord.GuildID))
	}
	channels := []domain.Channel{
		channel.NewDiscordChannel(cfg.Discord.Token, cfg.Discord.ApplicationID, wiki, log, discordOpts...),
	}
	if cfg.Slack != nil {
		sc, err := buildSlackChannel(cfg.Slack, wiki, reg, log)
		if err != nil {
			return fmt.Errorf("slack: %w", err)
		}
		channels = append(channels, sc)
	}

	started := make([]domain.Channel, 0, len(channels))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, ch := range started {
			if err := ch.Stop(shutdownCtx); err != nil {
				log.Error("channel stop error", "channel", ch.Name(), "error", err)
			}
		}
	}()
	for _, ch := range channels {
		if err := ch.Start(ctx); err != nil {
			return fmt.Errorf("channel %s: %w", ch.Name(), err)
		}
		started = append(started, ch)
	}

	log.Info("madbot starting",
		"wikis", strings.Join(reg.Codes(), ","),
		"channels", len(started),
		"metrics", cfg.Metrics.Addr != "",
		"tracing", cfg.Tracer.Enabled,
	)

	<-ctx.Done()
	log.Info("madbot shutting down")
	return nil
}
