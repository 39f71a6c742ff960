// cmd/bot/main.go
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-community-bot/internal/bot"
	"telegram-community-bot/internal/config"
	"telegram-community-bot/internal/database"
	"telegram-community-bot/internal/logger"
	"telegram-community-bot/internal/telegram"
	"telegram-community-bot/internal/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logg.Sync()

	// Initialize database
	db, err := database.NewDB(cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
	if err != nil {
		logg.Fatal("failed to connect to database", "error", err)
	}

	// Create Telegram session
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logg.Fatal("failed to create Telegram session", "error", err)
	}
	client := telegram.NewBot(api)

	weatherService := weather.NewService(cfg.WeatherAPIKey)

	handler := bot.NewHandler(db, client, weatherService, logg,
		cfg.AdminUsername, api.Self.UserName, api.Self.ID, cfg.Workers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One dedup sweep before accepting traffic; runs to completion.
	if merged, err := handler.Registry().Deduplicate(ctx, db.Session(ctx)); err != nil {
		logg.Error("startup dedup sweep failed", "error", err)
	} else {
		logg.Info("startup dedup sweep done", "merged", merged)
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updateConfig.AllowedUpdates = []string{"message", "chat_member"}
	updates := api.GetUpdatesChan(updateConfig)

	logg.Info("bot is up and running", "username", api.Self.UserName)

	if err := handler.Run(ctx, updates); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error("dispatch loop stopped", "error", err)
	}

	api.StopReceivingUpdates()
	logg.Info("shutting down")
}
