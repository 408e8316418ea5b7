package config

import "testing"

func validConfig() *Config {
	return &Config{
		Engine: EngineConfig{Enabled: true, SpreadMultiplier: 1.0, SizeScalar: 1.0, DirectionalSkew: 0.0},
		Quoter: QuoterConfig{RiskFreeRate: 0.05, DefaultIV: 0.3, BaseSpreadBps: 100, BaseSize: 10},
		Simulator: SimulatorConfig{
			Model: ModelGeometricBrownian, TickInterval: 1, StartPriceCents: 10000,
		},
		Catalog: CatalogConfig{
			Underlying: "BTC",
			Ladders:    []StrikeLadder{{ExpirationDays: 7, StrikesCents: []uint64{10000}}},
		},
	}
}

func TestValidateAcceptsGoodConfig(t *testing.T) {
	t.Parallel()

	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsBadSizeScalar(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Engine.SizeScalar = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for size_scalar out of [0,1]")
	}
}

func TestValidateRejectsBadSkew(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Engine.DirectionalSkew = 2.0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for directional_skew out of [-1,1]")
	}
}

func TestValidateRejectsUnknownModel(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Simulator.Model = "quantum_walk"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown simulator model")
	}
}

func TestValidateRejectsMissingLadders(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Catalog.Ladders = nil
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty catalog ladders")
	}
}

func TestValidateRejectsZeroBaseSize(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Quoter.BaseSize = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero base_size")
	}
}
