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
	"shopbot/internal/service"
	"shopbot/internal/session"
	"shopbot/internal/store"
	"shopbot/internal/telegram"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "userbot").Logger()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := store.ConnectDB(cfg.DBDriver, cfg.DBDataSourceName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// migrations are idempotent, so whichever bot starts first applies them
	if err := store.RunMigrations(db, cfg.MigrationsDir); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	redisClient, err := session.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	client, err := telegram.NewClient(cfg.UserBotToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect storefront bot")
	}

	dbStore := store.NewDBStore(db)
	userService := service.NewUserService(dbStore, logger)
	sessions := session.NewRedisStore(redisClient, "user", cfg.SessionTTL)
	userBot := bot.NewUserBot(client, userService, sessions, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("bot", client.Username()).Msg("storefront bot started")

	updates := client.Updates()
	go func() {
		<-ctx.Done()
		client.StopPolling()
	}()
	for update := range updates {
		userBot.HandleUpdate(ctx, update)
	}

	logger.Info().Msg("storefront bot stopped")
}
