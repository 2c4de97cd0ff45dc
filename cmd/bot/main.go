package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/usamitakanari/discord-bot/internal/adapters/discord"
	"github.com/usamitakanari/discord-bot/internal/adapters/images"
	"github.com/usamitakanari/discord-bot/internal/adapters/sheets"
	"github.com/usamitakanari/discord-bot/internal/adapters/store"
	"github.com/usamitakanari/discord-bot/internal/infra/config"
	"github.com/usamitakanari/discord-bot/internal/infra/log"
	"github.com/usamitakanari/discord-bot/internal/infra/metrics"
	"github.com/usamitakanari/discord-bot/internal/usecase/attendance"
	"github.com/usamitakanari/discord-bot/internal/usecase/remind"
	"github.com/usamitakanari/discord-bot/internal/usecase/report"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.TZ).Msg("invalid timezone")
	}
	interval, err := time.ParseDuration(cfg.Attendance.Interval)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid attendance interval")
	}

	watermark := time.Now().In(loc)
	if cfg.Attendance.Watermark != "" {
		watermark, err = time.ParseInLocation(attendance.TimestampLayout, cfg.Attendance.Watermark, loc)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid watermark")
		}
	}

	ledger, err := store.OpenFileLedger(cfg.Attendance.LedgerPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open delivery ledger")
	}
	logger.Info().Int("keys", ledger.Len()).Str("path", cfg.Attendance.LedgerPath).Msg("delivery ledger loaded")

	messenger, err := discord.NewMessenger(cfg.Discord.Token, cfg.Discord.GuildID, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create discord session")
	}

	client := sheets.NewClient()
	fetcher := sheets.NewSnapshotFetcher(client, sheets.ExportURL(cfg.Sheet.ID, cfg.Sheet.AttendanceGID), attendance.ColumnName)
	resolver := attendance.NewResolver(messenger, cfg.Attendance.SubchannelName)
	classifier := attendance.NewClassifier(loc, watermark)
	attendanceSvc := attendance.NewService(fetcher, ledger, messenger, resolver, classifier, logger, interval)

	remindSvc, err := remind.NewService(store.NewReminderFile(cfg.Remind.Path), messenger, messenger, cfg.Discord.GuildID, cfg.Remind.DefaultChannel, loc, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load reminders")
	}

	archiver := discord.NewArchiver(messenger.Session(), images.DefaultMaxBytes, logger)
	handler := discord.NewHandler(messenger.Session(), cfg.Discord.GuildID, remindSvc, archiver, logger)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger, cfg.MetricsAddr)

	if err := messenger.Connect(); err != nil {
		logger.Fatal().Err(err).Msg("failed to open gateway")
	}
	defer messenger.Close()

	go func() {
		if err := messenger.WaitReady(ctx); err != nil {
			return
		}
		if err := handler.Register(); err != nil {
			logger.Error().Err(err).Msg("slash command registration failed")
			return
		}
		logger.Info().Msg("slash commands registered")
	}()

	go runLoop(ctx, logger, "attendance", attendanceSvc.Run)
	go runLoop(ctx, logger, "remind", remindSvc.Run)

	if cfg.Report.Enabled {
		reportSvc := report.NewService(
			client, messenger,
			sheets.ExportURL(cfg.Sheet.ID, cfg.Sheet.ReportGID),
			cfg.Report.ChannelID, cfg.Report.RoleID,
			cfg.Report.Hour, cfg.Report.Minute,
			loc, logger,
		)
		go runLoop(ctx, logger, "report", reportSvc.Run)
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")
}

// runLoop runs a blocking service loop and logs its terminal error, unless
// it stopped because the process context was cancelled.
func runLoop(ctx context.Context, logger zerolog.Logger, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Str("loop", name).Msg("service loop stopped")
	}
}
