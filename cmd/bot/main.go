package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/vitos/crypto_signal_bot/internal/config"
	"github.com/vitos/crypto_signal_bot/internal/indicator"
	"github.com/vitos/crypto_signal_bot/internal/infrastructure/exchange"
	"github.com/vitos/crypto_signal_bot/internal/infrastructure/logger"
	"github.com/vitos/crypto_signal_bot/internal/infrastructure/notifier"
	"github.com/vitos/crypto_signal_bot/internal/infrastructure/storage"
	"github.com/vitos/crypto_signal_bot/internal/metrics"
	"github.com/vitos/crypto_signal_bot/internal/usecase"
	"github.com/vitos/crypto_signal_bot/internal/web"
	"go.uber.org/zap"
)

const version = "1.0.0"

// Portfolio reports go out every 15 minutes regardless of cycle interval.
const portfolioReportMinutes = 15

func main() {
	// Credentials come from the environment; .env is optional.
	_ = godotenv.Load()

	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.App.LogLevel)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	upbit := exchange.NewUpbitAdapter(
		os.Getenv("UPBIT_ACCESS_KEY"),
		os.Getenv("UPBIT_SECRET_KEY"),
		cfg.Exchange.RESTEndpoint,
		cfg.Exchange.WSEndpoint,
	)

	tg := notifier.NewTelegramNotifier(
		os.Getenv("TELEGRAM_BOT_TOKEN"),
		os.Getenv("TELEGRAM_CHAT_ID"),
		cfg.Notification.Telegram.Enabled,
		log,
	)

	engine := indicator.NewEngine(cfg.Strategy)
	signals := usecase.NewSignalService(upbit, engine, store, log,
		strconv.Itoa(cfg.Trading.Interval), cfg.Trading.CandleCount)
	strategy := usecase.NewStrategyService(upbit, log,
		cfg.Trading.TradeAmount, cfg.Trading.MaxInvestRatio, cfg.Trading.MinOrderAmount)
	risk := usecase.NewRiskService(upbit, cfg.RiskManagement, cfg.Trading.MinOrderAmount, log)

	portfolioEvery := portfolioReportMinutes / cfg.Trading.Interval
	if portfolioEvery < 1 {
		portfolioEvery = 1
	}
	rebalanceEvery := 0
	if cfg.Portfolio.RebalanceEnabled {
		rebalanceEvery = cfg.Portfolio.RebalanceEveryNCycles
	}

	bot := usecase.NewBotService(
		signals, strategy, risk, tg, store, log,
		cfg.Trading.Markets,
		time.Duration(cfg.Trading.CycleDelayMs)*time.Millisecond,
		portfolioEvery,
		rebalanceEvery,
		cfg.Portfolio.Targets,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Keep the price cache warm; REST remains the fallback if this fails.
	if err := upbit.ConnectWS(cfg.Trading.Markets); err != nil {
		log.Warn("ticker stream unavailable, using REST prices", zap.Error(err))
	}

	// Startup probe: verify credentials before the first cycle.
	cash, err := upbit.GetBalance(ctx, "KRW")
	if err != nil {
		log.Fatal("Account unreachable, check API keys", zap.Error(err))
	}
	log.Info("bot starting",
		zap.String("version", version),
		zap.Strings("markets", cfg.Trading.Markets),
		zap.Int("interval_min", cfg.Trading.Interval),
		zap.Float64("cash", cash))
	tg.NotifyStartup(version)

	srv := web.NewServer(cfg.Server.Port, bot, risk, store, log)
	go func() {
		if err := srv.Start(); err != nil {
			log.Error("Web server failed", zap.Error(err))
		}
	}()
	if cfg.App.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.App.MetricsAddr); err != nil {
				log.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	// First cycle runs immediately; cancellation is only observed between
	// cycles.
	bot.RunCycle(ctx)

	ticker := time.NewTicker(time.Duration(cfg.Trading.Interval) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			bot.RunCycle(ctx)
		case <-ctx.Done():
			log.Info("Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
			upbit.Close()
			return
		}
	}
}
