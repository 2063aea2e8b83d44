package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/CBoon99/spiralbot-v2/internal/config"
	"github.com/CBoon99/spiralbot-v2/internal/engine"
	"github.com/CBoon99/spiralbot-v2/internal/market"
	"github.com/CBoon99/spiralbot-v2/internal/metrics"
	"github.com/CBoon99/spiralbot-v2/internal/sim"
	"github.com/CBoon99/spiralbot-v2/internal/strategy"
	"github.com/CBoon99/spiralbot-v2/internal/tradelog"
	"github.com/CBoon99/spiralbot-v2/internal/util"
)

func main() {
	debug := flag.Bool("debug", false, "verbose logging")
	configPath := flag.String("config", "internal/config/config.yaml", "config file")
	flag.Parse()

	boot := util.NewLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot.Fatal().Err(err).Msg("load config")
	}

	level := cfg.App.LogLevel
	if *debug {
		level = "debug"
	}
	log, logFile, err := util.OpenRunLog(cfg.Paths.WorkerLog, level)
	if err != nil {
		boot.Fatal().Err(err).Msg("open worker log")
	}
	defer logFile.Close()

	if cfg.App.MetricsAddr != "" {
		_ = metrics.Serve(cfg.App.MetricsAddr)
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	book, err := tradelog.Create(cfg.Paths.TradeLog)
	if err != nil {
		log.Fatal().Err(err).Msg("create trade log")
	}
	defer book.Close()

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	source := market.NewClient(
		cfg.Market.BaseURL,
		cfg.Market.VsCurrency,
		cfg.Market.TopN,
		cfg.Market.MaxRetries,
		log,
		market.WithTimeout(time.Duration(cfg.Market.RequestTimeout)*time.Second),
	)

	params := strategy.DefaultParams()
	if cfg.Strategy.HistoryWindow > 0 {
		params.HistoryWindow = cfg.Strategy.HistoryWindow
	}
	if cfg.Strategy.BuyThresholdPct != 0 {
		params.BuyThresholdPct = cfg.Strategy.BuyThresholdPct
	}
	if cfg.Strategy.SellThresholdPct != 0 {
		params.SellThresholdPct = cfg.Strategy.SellThresholdPct
	}
	if cfg.Strategy.EntryDeltaPct != 0 {
		params.EntryDeltaPct = cfg.Strategy.EntryDeltaPct
	}
	if cfg.Strategy.MomentumWeight != 0 {
		params.MomentumWeight = cfg.Strategy.MomentumWeight
	}
	if cfg.Strategy.VolatilityWeight != 0 {
		params.VolatilityWeight = cfg.Strategy.VolatilityWeight
	}
	if cfg.Strategy.NoisePct != 0 {
		params.NoisePct = cfg.Strategy.NoisePct
	}

	portfolio := sim.New(cfg.Trading.PortfolioInitial, sim.Settings{
		RiskPerTrade:    cfg.Trading.RiskPerTrade,
		FeePct:          cfg.Trading.FeePct,
		TrailingStopPct: cfg.Trading.TrailingStopPct,
		StopLossPct:     cfg.Trading.StopLossPct,
		TakeProfitPct:   cfg.Trading.TakeProfitPct,
		TradeDuration:   time.Duration(cfg.Trading.TradeDurationSecs) * time.Second,
		MaxPositions:    cfg.Trading.MaxPositions,
		MinTradeValue:   cfg.Trading.MinTradeValue,
	})

	sessionID := util.NewSessionID(time.Now())
	scanInterval := time.Duration(cfg.Market.ScanIntervalSecs) * time.Second
	eng := engine.New(source, strategy.NewEstimator(params), portfolio, book, sessionID, scanInterval, log)

	if err := eng.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("engine stopped")
	}
	log.Info().Msg("worker exiting")
}
