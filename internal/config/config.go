// Package config defines all configuration for the market-making daemon.
// Config is loaded from a YAML file (default: configs/config.yaml) with a
// handful of fields overridable via MM_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Engine     EngineConfig     `mapstructure:"engine"`
	Quoter     QuoterConfig     `mapstructure:"quoter"`
	Simulator  SimulatorConfig  `mapstructure:"simulator"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	OrderTrack OrderTrackConfig `mapstructure:"order_tracker"`
	Carrier    CarrierConfig    `mapstructure:"carrier"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// EngineConfig seeds the engine's tunable knobs at startup.
type EngineConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	SpreadMultiplier float64 `mapstructure:"spread_multiplier"`
	SizeScalar       float64 `mapstructure:"size_scalar"`
	DirectionalSkew  float64 `mapstructure:"directional_skew"`
}

// QuoterConfig tunes the Black-Scholes quote generator.
//
//   - RiskFreeRate: annualized risk-free rate used in d1/d2.
//   - DefaultIV: implied volatility used when an instrument carries none.
//   - BaseSpreadBps: full (not half) spread applied at spread_multiplier=1.0.
//   - BaseSize: quote size applied at size_scalar=1.0.
type QuoterConfig struct {
	RiskFreeRate  float64 `mapstructure:"risk_free_rate"`
	DefaultIV     float64 `mapstructure:"default_iv"`
	BaseSpreadBps uint64  `mapstructure:"base_spread_bps"`
	BaseSize      uint64  `mapstructure:"base_size"`
}

// SimulatorModel selects the stochastic process driving the price feed.
type SimulatorModel string

const (
	ModelGeometricBrownian SimulatorModel = "gbm"
	ModelMeanReverting     SimulatorModel = "mean_reverting"
	ModelJumpDiffusion     SimulatorModel = "jump_diffusion"
)

// SimulatorConfig controls the synthetic underlying price feed.
//
//   - TickInterval: wall-clock delay between successive price ticks.
//   - StartPriceCents: initial price of the simulated path.
//   - Drift / Volatility: annualized parameters of the chosen Model.
//   - MeanReversionSpeed / MeanReversionLevel: only used by mean_reverting.
//   - JumpIntensity / JumpMeanPct / JumpStdPct: only used by jump_diffusion.
type SimulatorConfig struct {
	Symbol             string         `mapstructure:"symbol"`
	Model              SimulatorModel `mapstructure:"model"`
	TickInterval       time.Duration  `mapstructure:"tick_interval"`
	StartPriceCents    uint64         `mapstructure:"start_price_cents"`
	Drift              float64        `mapstructure:"drift"`
	Volatility         float64        `mapstructure:"volatility"`
	MeanReversionSpeed float64        `mapstructure:"mean_reversion_speed"`
	MeanReversionLevel float64        `mapstructure:"mean_reversion_level"`
	JumpIntensity      float64        `mapstructure:"jump_intensity"`
	JumpMeanPct        float64        `mapstructure:"jump_mean_pct"`
	JumpStdPct         float64        `mapstructure:"jump_std_pct"`
}

// StrikeLadder is one expiration's set of strikes to register in the
// catalog at startup.
type StrikeLadder struct {
	ExpirationDays int      `mapstructure:"expiration_days"`
	StrikesCents   []uint64 `mapstructure:"strikes_cents"`
}

// CatalogConfig seeds the reference in-memory catalog with the instruments
// to quote.
type CatalogConfig struct {
	Underlying string         `mapstructure:"underlying"`
	Ladders    []StrikeLadder `mapstructure:"ladders"`
}

// OrderTrackConfig controls the external order tracker's background GC.
type OrderTrackConfig struct {
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	MaxAge          time.Duration `mapstructure:"max_age"`
}

// CarrierConfig controls the websocket event bridge.
type CarrierConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	ListenAddr      string        `mapstructure:"listen_addr"`
	HeartbeatPeriod time.Duration `mapstructure:"heartbeat_period"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with env var overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("MM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if lvl := os.Getenv("MM_LOGGING_LEVEL"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if addr := os.Getenv("MM_CARRIER_LISTEN_ADDR"); addr != "" {
		cfg.Carrier.ListenAddr = addr
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Engine.SpreadMultiplier <= 0 {
		return fmt.Errorf("engine.spread_multiplier must be > 0")
	}
	if c.Engine.SizeScalar < 0 || c.Engine.SizeScalar > 1 {
		return fmt.Errorf("engine.size_scalar must be in [0, 1]")
	}
	if c.Engine.DirectionalSkew < -1 || c.Engine.DirectionalSkew > 1 {
		return fmt.Errorf("engine.directional_skew must be in [-1, 1]")
	}
	if c.Quoter.BaseSpreadBps == 0 {
		return fmt.Errorf("quoter.base_spread_bps must be > 0")
	}
	if c.Quoter.BaseSize == 0 {
		return fmt.Errorf("quoter.base_size must be > 0")
	}
	switch c.Simulator.Model {
	case ModelGeometricBrownian, ModelMeanReverting, ModelJumpDiffusion:
	default:
		return fmt.Errorf("simulator.model must be one of: gbm, mean_reverting, jump_diffusion")
	}
	if c.Simulator.TickInterval <= 0 {
		return fmt.Errorf("simulator.tick_interval must be > 0")
	}
	if c.Simulator.StartPriceCents == 0 {
		return fmt.Errorf("simulator.start_price_cents must be > 0")
	}
	if c.Catalog.Underlying == "" {
		return fmt.Errorf("catalog.underlying is required")
	}
	if len(c.Catalog.Ladders) == 0 {
		return fmt.Errorf("catalog.ladders must list at least one expiration")
	}
	return nil
}
