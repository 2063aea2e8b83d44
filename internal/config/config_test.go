package config

import (
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "spiralbot-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.Supervisor.DashboardPort != 8501 {
		t.Fatalf("unexpected dashboard port: %d", cfg.Supervisor.DashboardPort)
	}
	if cfg.Supervisor.SettleIntervalSecs != 3 {
		t.Fatalf("unexpected settle interval: %d", cfg.Supervisor.SettleIntervalSecs)
	}
	if cfg.Supervisor.GracePeriodSecs != 10 {
		t.Fatalf("unexpected grace period: %d", cfg.Supervisor.GracePeriodSecs)
	}
	if cfg.Market.BaseURL != "https://api.coingecko.com/api/v3" {
		t.Fatalf("unexpected Market.BaseURL: %s", cfg.Market.BaseURL)
	}
	if cfg.Market.TopN != 50 {
		t.Fatalf("unexpected Market.TopN: %d", cfg.Market.TopN)
	}
	if cfg.Trading.PortfolioInitial != 1000 {
		t.Fatalf("unexpected portfolio initial: %.2f", cfg.Trading.PortfolioInitial)
	}
	if cfg.Trading.RiskPerTrade != 0.05 {
		t.Fatalf("unexpected risk per trade: %.3f", cfg.Trading.RiskPerTrade)
	}
	if cfg.Trading.MaxPositions != 3 {
		t.Fatalf("unexpected max positions: %d", cfg.Trading.MaxPositions)
	}
	if cfg.Strategy.HistoryWindow != 20 {
		t.Fatalf("unexpected history window: %d", cfg.Strategy.HistoryWindow)
	}
	if cfg.Strategy.BuyThresholdPct != 1.2 {
		t.Fatalf("unexpected buy threshold: %.2f", cfg.Strategy.BuyThresholdPct)
	}
	if cfg.Strategy.EntryDeltaPct != 1.5 {
		t.Fatalf("unexpected entry delta: %.2f", cfg.Strategy.EntryDeltaPct)
	}
	if cfg.Paths.TradeLog != "./data/bue_log.csv" {
		t.Fatalf("unexpected trade log path: %s", cfg.Paths.TradeLog)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RISK_PER_TRADE", "0.10")
	t.Setenv("SCAN_INTERVAL", "5")
	t.Setenv("MAX_POSITIONS", "not-a-number")

	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Trading.RiskPerTrade != 0.10 {
		t.Fatalf("expected env override 0.10, got %.3f", cfg.Trading.RiskPerTrade)
	}
	if cfg.Market.ScanIntervalSecs != 5 {
		t.Fatalf("expected env override 5, got %d", cfg.Market.ScanIntervalSecs)
	}
	if cfg.Trading.MaxPositions != 3 {
		t.Fatalf("malformed env should keep yaml value, got %d", cfg.Trading.MaxPositions)
	}
}
