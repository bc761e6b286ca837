// Package main contains the entrypoint for the competitor monitor.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbot "github.com/go-telegram/bot"

	"github.com/uclone1/yt-competitor-monitor/internal/config"
	"github.com/uclone1/yt-competitor-monitor/internal/database"
	"github.com/uclone1/yt-competitor-monitor/internal/insight"
	"github.com/uclone1/yt-competitor-monitor/internal/logger"
	"github.com/uclone1/yt-competitor-monitor/internal/monitor"
	"github.com/uclone1/yt-competitor-monitor/internal/monitor/handlers"
	"github.com/uclone1/yt-competitor-monitor/internal/monitor/tasks"
	"github.com/uclone1/yt-competitor-monitor/internal/report"
	"github.com/uclone1/yt-competitor-monitor/internal/scrapingdog"
	"github.com/uclone1/yt-competitor-monitor/internal/telegram"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all components, executes either a single monitoring pass
// or the scheduled daemon, and returns the process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	once := flag.Bool("once", false, "Run a single monitoring pass and exit (the default)")
	daemon := flag.Bool("daemon", false, "Keep running and execute monitoring passes on the configured schedule")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log, closeLog, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format, cfg.Logger.File)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		return 1
	}
	defer closeLog() //nolint:errcheck
	log.Info("Logger initialized", "level", cfg.Logger.Level, "format", cfg.Logger.Format, "file", cfg.Logger.File)

	if cfg.Scraper.APIKey == "" {
		log.Error("[ERROR] SCRAPINGDOG_API_KEY not set. Add it to your .env file. Aborting.")
		return 1
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to open database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	fetcher := scrapingdog.NewClient(cfg.Scraper, log)
	mailer := report.NewMailer(cfg.Email, log)

	var summarizer monitor.Summarizer
	if cfg.Gemini.Enabled() {
		s, err := insight.NewSummarizer(ctx, cfg.Gemini, log)
		if err != nil {
			log.Error("Failed to initialize Gemini summarizer", "error", err)
			return 1
		}
		summarizer = s
	}

	var (
		tg      *tgbot.Bot
		alerter monitor.AlertSender
	)
	if cfg.Telegram.Token != "" {
		var botOpts []tgbot.Option
		if cfg.Telegram.EnableCommands {
			botOpts = append(botOpts, tgbot.WithMiddlewares(logger.Middleware(log)))
		}

		tg, err = telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
		if err != nil {
			log.Error("Failed to create Telegram bot", "error", err)
			return 1
		}

		cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
		if err != nil {
			log.Error("Failed to get Telegram bot info", "error", err)
			return 1
		}
		log.Info("Retrieved Telegram bot info",
			"bot_id", cfg.Telegram.BotInfo.ID,
			"bot_username", cfg.Telegram.BotInfo.Username)

		if cfg.Telegram.Enabled() {
			alerter = telegram.NewNotifier(cfg.Telegram, tg, log)
		}
	}

	pipeline := monitor.NewPipeline(log, cfg, fetcher, store, mailer, alerter, summarizer)

	if tg != nil && cfg.Telegram.EnableCommands {
		hDeps := handlers.HandlerDeps{
			Logger:   log,
			Config:   cfg,
			Store:    store,
			Pipeline: pipeline,
		}
		if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
			log.Error("Failed to register Telegram handlers", "error", err)
			return 1
		}
	}

	if *once || !*daemon {
		if _, err := pipeline.Run(ctx); err != nil {
			return 1
		}
		return 0
	}

	tDeps := tasks.TaskDeps{
		Logger: log,
		Config: cfg,
		Store:  store,
		Runner: pipeline,
	}
	sched, err := monitor.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	// The command listener only runs in daemon mode and only when enabled.
	var listenerBot *tgbot.Bot
	if cfg.Telegram.EnableCommands {
		listenerBot = tg
	}
	app := monitor.NewMonitor(log, listenerBot, sched)

	log.Info("Starting monitor in daemon mode...")
	runErr := app.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Monitor stopped due to error", "error", runErr)
		return 1
	}

	log.Info("Monitor stopped gracefully.")
	return 0
}
