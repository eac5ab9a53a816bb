package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"tg_link_relay_bot/internal/config"
	"tg_link_relay_bot/internal/feature/group"
	"tg_link_relay_bot/internal/feature/link"
	"tg_link_relay_bot/internal/feature/owner"
	"tg_link_relay_bot/internal/feature/user"
	"tg_link_relay_bot/internal/health"
	"tg_link_relay_bot/internal/logging"
	"tg_link_relay_bot/internal/metrics"
	"tg_link_relay_bot/internal/relay"
	"tg_link_relay_bot/internal/store"
	"tg_link_relay_bot/internal/telegram"
)

const (
	telegramShutdownTimeout = 10 * time.Second
	healthShutdownTimeout   = 5 * time.Second
)

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logging.Info("configuration check", logging.Fields{"event": "config_only"})
		fmt.Println("configuration check: ok")
		fmt.Println(config.FormatRedacted(cfg))
		return
	}

	logger.WithFields(logging.Fields{
		"event":            "startup",
		"required_channel": cfg.RequiredChannel.String(),
		"archive_enabled":  cfg.ArchiveEnabled(),
	}).Info("configuration loaded")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}

	userRegistrar := user.NewRegistrar(store.NewRegistry(), logger)
	resolver := link.NewResolver(httpClient, cfg.ViewerURLTemplate, logger)
	guard := owner.NewGuard(cfg.BotOwnerID, logger)

	tgClient, err := telegram.NewClient(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("telegram client setup error")
		fmt.Fprintf(os.Stderr, "telegram client setup error: %v\n", err)
		os.Exit(1)
	}

	gate := group.NewGate(tgClient, cfg.RequiredChannel, logger)

	pipeline, err := relay.New(relay.Settings{
		ArchiveChannel:      cfg.ArchiveChannel,
		JoinURL:             cfg.JoinURL,
		DeveloperURL:        cfg.DeveloperURL,
		OperatorCountButton: cfg.OperatorCountButton,
	}, relay.Deps{
		Gate:      gate,
		Resolver:  resolver,
		Registrar: userRegistrar,
		Guard:     guard,
		Messenger: tgClient,
		Metrics:   collector,
		Logger:    logger,
	})
	if err != nil {
		logger.WithError(err).Error("pipeline setup error")
		fmt.Fprintf(os.Stderr, "pipeline setup error: %v\n", err)
		os.Exit(1)
	}
	tgClient.Route(pipeline)

	logger.WithField("event", "telegram_ready").Info("telegram client initialized")

	healthServer := health.NewServer(cfg.HTTPPort, userRegistrar, metrics.Handler(reg), logger)

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCtx, cancelRun := context.WithCancel(signalCtx)
	defer cancelRun()

	g, ctx := errgroup.WithContext(runCtx)

	tgDone := make(chan struct{})
	go func() {
		defer close(tgDone)
		tgClient.Start(ctx)
		if signalCtx.Err() == nil {
			logger.WithField("event", "telegram_stopped_early").Warn("telegram client stopped before shutdown signal")
		}
		cancelRun()
	}()

	g.Go(func() error {
		return healthServer.ListenAndServe()
	})

	g.Go(func() error {
		<-ctx.Done()
		if signalCtx.Err() != nil {
			logger.WithField("event", "shutdown_signal").Info("received termination signal, stopping")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), healthShutdownTimeout)
		defer cancel()
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.WithField("event", "health_shutdown_error").WithError(err).Error("health server shutdown error")
		}

		select {
		case <-tgDone:
		case <-time.After(telegramShutdownTimeout):
			logger.WithField("event", "telegram_shutdown_timeout").Warn("timed out waiting for telegram client to stop")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("service stopped with error")
		os.Exit(1)
	}

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
}
