package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"shopbot/internal/bot"
	"shopbot/internal/config"
	"shopbot/internal/flow"
	"shopbot/internal/media"
	"shopbot/internal/scheduler"
	"shopbot/internal/service"
	"shopbot/internal/session"
	"shopbot/internal/sheets"
	"shopbot/internal/store"
	"shopbot/internal/telegram"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "adminbot").Logger()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := store.ConnectDB(cfg.DBDriver, cfg.DBDataSourceName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := store.RunMigrations(db, cfg.MigrationsDir); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	redisClient, err := session.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	adminClient, err := telegram.NewClient(cfg.AdminBotToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect admin bot")
	}
	// mailings go out through the storefront bot, the one users talk to
	userClient, err := telegram.NewClient(cfg.UserBotToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect storefront bot")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var exporter service.MetricsExporter
	if cfg.SpreadsheetID != "" {
		sheetExporter, err := sheets.NewExporter(ctx, cfg.SpreadsheetID, cfg.CredentialsPath)
		if err != nil {
			logger.Warn().Err(err).Msg("analytics export disabled: sheets client failed")
		} else {
			exporter = sheetExporter
		}
	}

	dbStore := store.NewDBStore(db)
	mediaStore := media.NewStorage(cfg.MediaDir)
	adminService := service.NewAdminService(dbStore, mediaStore, adminClient, exporter, logger)

	engine := &flow.Engine{Directory: adminService, Committer: adminService}
	sessions := session.NewRedisStore(redisClient, "admin", cfg.SessionTTL)
	adminBot := bot.NewAdminBot(adminClient, adminService, engine, sessions, cfg, logger)

	mailer := &scheduler.Mailer{
		Store:  dbStore,
		Sender: userClient,
		Delay:  cfg.SendDelay,
		Logger: logger,
	}
	notifier := &scheduler.SupportNotifier{
		Store:    dbStore,
		Sender:   adminBot,
		AdminIDs: cfg.AdminIDs,
		Delay:    cfg.SendDelay,
		Logger:   logger,
	}
	go mailer.Run(ctx, cfg.PollInterval)
	go notifier.Run(ctx, cfg.PollInterval)

	logger.Info().Str("bot", adminClient.Username()).Msg("admin bot started")

	updates := adminClient.Updates()
	go func() {
		<-ctx.Done()
		adminClient.StopPolling()
	}()
	for update := range updates {
		adminBot.HandleUpdate(ctx, update)
	}

	logger.Info().Msg("admin bot stopped")
}
