package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/flashpod/internal/api"
	"github.com/example/flashpod/internal/bot"
	"github.com/example/flashpod/internal/config"
	"github.com/example/flashpod/internal/database"
	"github.com/example/flashpod/internal/logger"
	"github.com/example/flashpod/internal/scheduler"
	"github.com/example/flashpod/internal/spaced_repetition"
	"github.com/example/flashpod/internal/study"
	"github.com/example/flashpod/internal/timezone"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tz := timezone.New(cfg.TZ, log)

	db, err := database.Connect(cfg.DBType, cfg.DBDSN)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	store := database.NewStore(db)
	defer store.Close()
	log.Info("Database ready", "type", cfg.DBType)

	engine := study.NewEngine(store, spaced_repetition.NewSM2(), tz, log,
		study.WithRetentionWindow(cfg.RetentionWindowDays))

	var tgBot *bot.Bot
	if cfg.TelegramBotToken != "" {
		tgBot, err = bot.New(bot.DefaultConfig(cfg.TelegramBotToken), engine, tz, log)
		if err != nil {
			log.Fatal("Failed to create bot", "error", err)
		}
		go tgBot.Start(ctx)
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN not set, Telegram bot disabled")
	}

	if cfg.EnableScheduler && tgBot != nil {
		sched := scheduler.New(engine, tgBot, tz, scheduler.Window{
			StartHour: cfg.NotificationStart,
			EndHour:   cfg.NotificationEnd,
		}, log)
		if err := sched.Start(); err != nil {
			log.Fatal("Failed to start scheduler", "error", err)
		}
		defer sched.Stop()
	}

	server := api.NewServer(cfg.HTTPAddr, engine, cfg.AllowedOrigins(), log)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-serverErr:
		if err != nil {
			log.Error("HTTP server failed", "error", err)
		}
	}

	// Give in-flight requests time to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Error during shutdown", "error", err)
	}
	if tgBot != nil {
		tgBot.Stop()
	}
	log.Info("Stopped")
}
