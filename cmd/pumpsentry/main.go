package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rewired-gh/pumpsentry/internal/bybit"
	"github.com/rewired-gh/pumpsentry/internal/config"
	"github.com/rewired-gh/pumpsentry/internal/logger"
	"github.com/rewired-gh/pumpsentry/internal/metrics"
	"github.com/rewired-gh/pumpsentry/internal/models"
	"github.com/rewired-gh/pumpsentry/internal/monitor"
	"github.com/rewired-gh/pumpsentry/internal/storage"
	"github.com/rewired-gh/pumpsentry/internal/telegram"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	envPath    = flag.String("env", ".env", "Optional dotenv file with secrets")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Failed to load %s: %v", *envPath, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seeded, err := store.Seed(ctx, cfg.AnalysisDefaults())
	if err != nil {
		logger.Fatal("Failed to seed analysis settings: %v", err)
	}
	if seeded {
		logger.Info("Analysis settings seeded from configuration")
	} else {
		logger.Debug("Analysis settings already present, keeping stored values")
	}

	bybitClient := bybit.NewClient(bybit.Config{
		BaseURL:     cfg.Bybit.BaseURL,
		Category:    cfg.Bybit.Category,
		QuoteSuffix: cfg.Bybit.QuoteSuffix,
		KlineLimit:  cfg.Bybit.KlineLimit,
		Timeout:     cfg.Bybit.Timeout,
		MaxRetries:  cfg.Bybit.MaxRetries,
		RetryDelay:  cfg.Bybit.RetryDelay,
	})

	recorder := metrics.New(prometheus.DefaultRegisterer)
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(prometheus.DefaultGatherer))
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("Serving metrics on %s/metrics", cfg.Metrics.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed: %v", err)
			}
		}()
	}

	var telegramClient *telegram.Client
	var notifier monitor.Notifier = logNotifier{}
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(
			cfg.Telegram.BotToken,
			cfg.Telegram.ChatID,
			cfg.Telegram.MaxRetries,
			cfg.Telegram.RetryDelay,
			store,
		)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		notifier = telegramClient
		telegramClient.ListenForCommands(ctx)
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled, signals are logged only")
	}

	mon := monitor.New(monitor.Config{
		Concurrency:      cfg.Monitor.Concurrency,
		Throttle:         cfg.Monitor.Throttle,
		TickerTTL:        cfg.Monitor.TickerTTL,
		ExcludedKeywords: cfg.Monitor.ExcludedKeywords,
	}, monitor.Deps{
		Settings: store,
		Universe: bybitClient,
		Candles:  bybitClient,
		Notifier: notifier,
		Metrics:  recorder,
	})

	logger.Info("Starting monitoring service (interval: %v, concurrency: %d, throttle: %v)",
		cfg.Monitor.PollInterval, cfg.Monitor.Concurrency, cfg.Monitor.Throttle)

	var (
		mu                  sync.Mutex
		consecutiveFailures int
		wg                  sync.WaitGroup
	)

	handleCycleResult := func(err error) {
		if errors.Is(err, monitor.ErrCycleInProgress) {
			logger.Warn("Previous monitoring cycle still running, skipping this tick")
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			consecutiveFailures++
			logger.Error("Monitoring cycle failed: %v", err)
			if consecutiveFailures == 1 && telegramClient != nil {
				if sendErr := telegramClient.SendError(ctx, err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
			return
		}
		if consecutiveFailures > 0 && telegramClient != nil {
			if sendErr := telegramClient.SendRecovery(ctx, consecutiveFailures); sendErr != nil {
				logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
			}
		}
		consecutiveFailures = 0
	}

	runCycle := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mon.RunCycle(ctx)
			handleCycleResult(err)
		}()
	}

	logger.Debug("Running initial monitoring cycle")
	runCycle()

	ticker := time.NewTicker(cfg.Monitor.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, waiting for the running cycle...")
			wg.Wait()
			if metricsServer != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := metricsServer.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Failed to stop metrics server: %v", err)
				}
				cancel()
			}
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled monitoring cycle")
			runCycle()
		}
	}
}

// logNotifier stands in for Telegram when notifications are disabled.
type logNotifier struct{}

func (logNotifier) NotifySignal(_ context.Context, res models.IndicatorResult) error {
	logger.Info("Signal %s %s: %d of %d indicators, price change %.2f%%",
		res.Classification.Kind, res.Symbol, res.CountTriggered, res.TotalIndicators, res.PriceChange)
	return nil
}

func (logNotifier) NotifyConfirmation(_ context.Context, res models.IndicatorResult, previous int) error {
	logger.Info("Confirmation %s %s: %d of %d indicators (previously %d)",
		res.Classification.Kind, res.Symbol, res.CountTriggered, res.TotalIndicators, previous)
	return nil
}
