package main

import (
	"burning-text-bot/config"
	"burning-text-bot/internal/burning"
	"burning-text-bot/internal/cache"
	"burning-text-bot/internal/commands"
	"burning-text-bot/internal/database"
	"burning-text-bot/internal/metrics"
	"burning-text-bot/internal/stats"
	"burning-text-bot/internal/telegram"
	"burning-text-bot/lib/translation"
	"context"
	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func init() {
	config.InitConfig()
	setupLogging()
}

type sentryReporter struct{}

func (sentryReporter) CaptureException(err error) {
	sentry.CaptureException(err)
}

func main() {
	translation.Configure("locales", config.GetString("lang"))

	var reporter commands.ErrorReporter
	if dsn := config.GetString("sentry_dsn"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
			log.Fatalf("Failed to initialize sentry: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
		reporter = sentryReporter{}
	}

	store, err := database.Open(config.GetString("db_path"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	botMetrics := metrics.NewBotMetrics()
	botMetrics.Load(store)

	generations := cache.Load(config.GetString("cache_file"))

	generator := burning.NewGenerator(burning.Config{
		BaseURL:       config.GetString("render_api_url"),
		Timeout:       config.GetDuration("render_timeout"),
		InsecureFetch: config.GetBool("render_insecure_fetch"),
	}, generations)

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:          config.GetString("telegram_bot_token"),
		Debug:          config.GetBool("debug"),
		UpdatesTimeout: 60,
	})
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	opts := []commands.Option{commands.WithObserver(botMetrics)}
	if reporter != nil {
		opts = append(opts, commands.WithErrorReporter(reporter))
	}
	handler := commands.NewHandler(generator, generations, bot, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		telegram.HandleUpdates(ctx, bot.GetUpdatesChannel(), handler)
	}()

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				botMetrics.Save(store)
			}
		}
	}()

	mux := stats.NewMux(generations, botMetrics.Handler())
	if err := stats.Serve(ctx, config.GetInt("port"), mux); err != nil {
		log.Errorf("Failed to start stats server: %v", err)
		stop()
	}

	<-ctx.Done()
	bot.StopReceivingUpdates()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Error("Timed out waiting for in-flight messages")
	}

	botMetrics.Save(store)
	log.Info("Metrics saved, shutting down...")
}

func setupLogging() {
	log.SetLevel(log.ErrorLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting burning text bot...")
}
