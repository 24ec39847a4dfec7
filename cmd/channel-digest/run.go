package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ryosukesatoh/channel-digest/internal/config"
	"github.com/ryosukesatoh/channel-digest/internal/ingest"
	"github.com/ryosukesatoh/channel-digest/internal/metrics"
	"github.com/ryosukesatoh/channel-digest/internal/publisher"
	"github.com/ryosukesatoh/channel-digest/internal/retry"
	"github.com/ryosukesatoh/channel-digest/internal/runner"
	"github.com/ryosukesatoh/channel-digest/internal/scheduler"
	"github.com/ryosukesatoh/channel-digest/internal/store"
	"github.com/ryosukesatoh/channel-digest/internal/summarizer"
	"github.com/ryosukesatoh/channel-digest/internal/telegram"
	"github.com/ryosukesatoh/channel-digest/internal/window"
)

func runCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Collect channel posts and publish a digest every summary period",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Log)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, once, logger)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run one summarization cycle and exit")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, once bool, logger zerolog.Logger) error {
	st := store.New(cfg.Store.Dir, cfg.Store.Prefix, logger)
	sel := window.NewSelector(st, logger)

	gen, err := summarizer.NewGenerator(ctx, cfg.Summarizer)
	if err != nil {
		return err
	}
	sum := summarizer.New(gen, cfg.Language, cfg.Period(), cfg.Summarizer.Timeout)

	pub, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}

	r := runner.New(cfg.Period(), cfg.Publisher.Timeout, sel, sum, pub, logger)

	// Single-run mode: run the pipeline once and exit
	if once {
		logger.Info().Msg("running digest (once mode)")
		if err := r.Run(ctx); err != nil {
			return fmt.Errorf("pipeline failed: %w", err)
		}
		return nil
	}

	schedule, err := buildSchedule(cfg)
	if err != nil {
		return err
	}

	// Long polling holds a request open for PollTimeout seconds.
	pollTimeout := time.Duration(cfg.Telegram.PollTimeout)*time.Second + 10*time.Second
	inbound, err := telegram.Connect(ctx, cfg.Telegram.BotToken, pollTimeout, retry.DefaultConfig(), logger)
	if err != nil {
		return err
	}
	source := telegram.NewChannelSource(inbound, cfg.Channels, cfg.Telegram.PollTimeout, logger)
	listener := ingest.NewListener(st, logger)
	sched := scheduler.New(schedule, r.Run, logger)

	var metricsSrv *http.Server
	if cfg.Metrics.Addr != "" {
		metricsSrv = metrics.NewServer(cfg.Metrics.Addr)
		go func() {
			logger.Info().Str("addr", cfg.Metrics.Addr).Msg("serving metrics")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	logger.Info().
		Strs("channels", cfg.Channels).
		Int("period_minutes", cfg.SummaryPeriodMinutes).
		Msg("channel digest started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return listener.Run(gctx, source.Events(gctx))
	})
	g.Go(func() error {
		if cfg.RunOnStart {
			if err := r.Run(gctx); err != nil {
				logger.Error().Err(err).Msg("initial run failed")
			}
		}
		return sched.Run(gctx)
	})

	err = g.Wait()
	logger.Info().Msg("shutting down")

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err == nil {
		logger.Info().Msg("shutdown complete")
	}
	return err
}

func buildSchedule(cfg *config.Config) (cron.Schedule, error) {
	if cfg.Schedule == "" {
		return scheduler.Every(cfg.Period()), nil
	}
	return scheduler.Parse(cfg.Schedule)
}

func buildPublisher(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (publisher.Publisher, error) {
	switch cfg.Publisher.Type {
	case "telegram":
		bot, err := telegram.Connect(ctx, cfg.Telegram.BotToken, cfg.Publisher.Timeout, retry.DefaultConfig(), logger)
		if err != nil {
			return nil, err
		}
		return publisher.NewTelegramPublisher(bot, cfg.Publisher.Destination, cfg.Publisher.ParseMode), nil
	case "discord":
		return publisher.NewDiscordPublisher(cfg.Publisher.Discord.WebhookURL), nil
	case "stdout":
		return publisher.NewStdoutPublisher(), nil
	default:
		return nil, fmt.Errorf("unknown publisher type %q", cfg.Publisher.Type)
	}
}
