package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Azevedu-Apps/pogo-events/internal/classifier"
	"github.com/Azevedu-Apps/pogo-events/internal/config"
	"github.com/Azevedu-Apps/pogo-events/internal/eventsource"
	"github.com/Azevedu-Apps/pogo-events/internal/logger"
	"github.com/Azevedu-Apps/pogo-events/internal/notify"
	"github.com/Azevedu-Apps/pogo-events/internal/progress"
	"github.com/Azevedu-Apps/pogo-events/internal/server"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := progress.OpenSQLite(cfg.Progress.DBPath)
	if err != nil {
		logger.Fatal("Failed to open progress store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close progress store: %v", err)
		}
	}()

	client := eventsource.NewClient(cfg.Source.BaseURL, cfg.Source.Timeout)
	clf := classifier.New(cfg.Classifier.ImminentWindow)

	var notifier *notify.Notifier
	if cfg.Notify.Enabled {
		notifier, err = notify.New(cfg.Notify.BotToken, cfg.Notify.ChatID, cfg.Notify.Cooldown)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram notifier: %v", err)
		}
		logger.Info("Telegram notifier initialized")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	srv := server.New(clf, store, cfg.Progress.Namespace, client.FetchEvents)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	httpServer := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: srv.Handler(),
	}
	go func() {
		logger.Info("HTTP API listening on http://%s", cfg.Server.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed: %v", err)
		}
	}()

	logger.Info("Starting event poll loop (interval: %v, imminent window: %v)",
		cfg.Source.PollInterval, cfg.Classifier.ImminentWindow)

	ticker := time.NewTicker(cfg.Source.PollInterval)
	defer ticker.Stop()

	consecutiveFailures := 0

	runCycle := func() {
		if err := srv.Refresh(ctx); err != nil {
			consecutiveFailures++
			logger.Error("Poll cycle failed (%d consecutive): %v", consecutiveFailures, err)
			return
		}
		if consecutiveFailures > 0 {
			logger.Info("Poll cycle recovered after %d failures", consecutiveFailures)
			consecutiveFailures = 0
		}
		notifyCycle(srv, clf, notifier)
	}

	// Run the initial fetch immediately so the API has data at startup.
	runCycle()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP shutdown failed: %v", err)
			}
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled poll cycle")
			runCycle()
		}
	}
}

// notifyCycle classifies the freshly cached events and sends any due alerts.
func notifyCycle(srv *server.Server, clf *classifier.Classifier, notifier *notify.Notifier) {
	if notifier == nil {
		return
	}
	events, ok := srv.Events()
	if !ok {
		return
	}
	now := time.Now()
	alerts := notifier.CollectAlerts(clf.Classify(events, now), now)
	if len(alerts) == 0 {
		return
	}
	if err := notifier.Send(alerts); err != nil {
		logger.Error("Failed to send event digest: %v", err)
		return
	}
	logger.Info("Sent event digest with %d alerts", len(alerts))
}
