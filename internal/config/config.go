// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Supervisor tunes how the launcher spawns and tears down the worker and dashboard.
type Supervisor struct {
	WorkerBin          string `yaml:"worker_bin"`
	DashboardBin       string `yaml:"dashboard_bin"`
	DashboardPort      int    `yaml:"dashboard_port"`
	SettleIntervalSecs int    `yaml:"settle_interval_secs"`
	GracePeriodSecs    int    `yaml:"grace_period_secs"`
	ReconcileGraceSecs int    `yaml:"reconcile_grace_secs"`
}

// Market describes the CoinGecko connectivity parameters the worker expects.
type Market struct {
	BaseURL          string `yaml:"base_url"`
	VsCurrency       string `yaml:"vs_currency"`
	TopN             int    `yaml:"top_n"`
	ScanIntervalSecs int    `yaml:"scan_interval_secs"`
	RequestTimeout   int    `yaml:"request_timeout_secs"`
	MaxRetries       int    `yaml:"max_retries"`
}

// Trading encodes the virtual portfolio sizing and exit rules.
type Trading struct {
	PortfolioInitial  float64 `yaml:"portfolio_initial"`
	RiskPerTrade      float64 `yaml:"risk_per_trade"`
	TradeDurationSecs int     `yaml:"trade_duration_secs"`
	TrailingStopPct   float64 `yaml:"trailing_stop_pct"`
	StopLossPct       float64 `yaml:"stop_loss_pct"`
	TakeProfitPct     float64 `yaml:"take_profit_pct"`
	FeePct            float64 `yaml:"fee_pct"`
	MaxPositions      int     `yaml:"max_positions"`
	MinTradeValue     float64 `yaml:"min_trade_value"`
}

// Strategy groups tunable knobs for the estimator and signal thresholds.
type Strategy struct {
	HistoryWindow    int     `yaml:"history_window"`
	BuyThresholdPct  float64 `yaml:"buy_threshold_pct"`
	SellThresholdPct float64 `yaml:"sell_threshold_pct"`
	EntryDeltaPct    float64 `yaml:"entry_delta_pct"`
	MomentumWeight   float64 `yaml:"momentum_weight"`
	VolatilityWeight float64 `yaml:"volatility_weight"`
	NoisePct         float64 `yaml:"noise_pct"`
}

// Paths locates the per-run artifacts shared between the worker and the dashboard.
type Paths struct {
	DataDir      string `yaml:"data_dir"`
	TradeLog     string `yaml:"trade_log"`
	WorkerLog    string `yaml:"worker_log"`
	DashboardLog string `yaml:"dashboard_log"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App        App        `yaml:"app"`
	Supervisor Supervisor `yaml:"supervisor"`
	Market     Market     `yaml:"market"`
	Trading    Trading    `yaml:"trading"`
	Strategy   Strategy   `yaml:"strategy"`
	Paths      Paths      `yaml:"paths"`
}

// Load reads a YAML file from disk, hydrates a Config struct, and applies
// environment overrides (a .env file is honored when present).
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	_ = godotenv.Load() // best-effort
	config.applyEnv()
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// applyEnv layers the legacy environment surface over YAML values. Unset or
// malformed variables leave the YAML value in place.
func (c *Config) applyEnv() {
	envFloat("RISK_PER_TRADE", &c.Trading.RiskPerTrade)
	envFloat("PORTFOLIO_INITIAL", &c.Trading.PortfolioInitial)
	envFloat("TRAILING_STOP_PCT", &c.Trading.TrailingStopPct)
	envFloat("STOP_LOSS_PCT", &c.Trading.StopLossPct)
	envFloat("TAKE_PROFIT_PCT", &c.Trading.TakeProfitPct)
	envFloat("FEE_PCT", &c.Trading.FeePct)
	envInt("TRADE_DURATION", &c.Trading.TradeDurationSecs)
	envInt("MAX_POSITIONS", &c.Trading.MaxPositions)
	envInt("SCAN_INTERVAL", &c.Market.ScanIntervalSecs)
	envInt("TOP_N", &c.Market.TopN)
}

func envFloat(key string, dst *float64) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	if v, err := strconv.Atoi(raw); err == nil {
		*dst = v
	}
}
