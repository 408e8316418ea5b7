// marketmakerd is an automated options market maker: it prices a ladder of
// European call/put options off a simulated underlying using Black-Scholes,
// posts two-sided quotes for every enabled instrument, and streams the
// resulting quotes, fills, and config changes to WebSocket clients.
//
// Architecture:
//
//	main.go               — entry point: loads config, wires every component, waits for SIGINT/SIGTERM
//	internal/pricer       — Black-Scholes value and greeks
//	internal/quoter       — turns a theo price + operator knobs into a bid/ask/size quadruple
//	internal/engine       — orchestrator: requotes on price/config changes, tracks live maker orders
//	internal/catalog      — the (symbol, expiration, strike, style) order-book hierarchy the engine quotes into
//	internal/simulator    — synthetic underlying price feed (pre-generated random walk, replayed on a tick)
//	internal/eventbus     — lag-tolerant broadcast of engine events
//	internal/ordertracker — lifecycle ledger for externally-placed orders
//	internal/carrier      — WebSocket bridge from the event bus to clients, plus inbound commands
//	internal/runtime      — errgroup-based background-task lifecycle under one cancellation scope
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"optionmm/internal/carrier"
	"optionmm/internal/catalog"
	"optionmm/internal/config"
	"optionmm/internal/engine"
	"optionmm/internal/eventbus"
	"optionmm/internal/ordertracker"
	"optionmm/internal/pricer"
	"optionmm/internal/quoter"
	"optionmm/internal/runtime"
	"optionmm/internal/simulator"
	"optionmm/pkg/types"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("MM_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(newLogHandler(cfg.Logging))

	cat := buildCatalog(cfg.Catalog)

	bus := eventbus.New()
	p := pricer.New(cfg.Quoter.RiskFreeRate, cfg.Quoter.DefaultIV)
	q := quoter.New(p, cfg.Quoter.BaseSpreadBps, cfg.Quoter.BaseSize)

	eng := engine.New(cat, bus, p, q, logger)
	eng.SetEnabled(cfg.Engine.Enabled)
	eng.SetSpreadMultiplier(cfg.Engine.SpreadMultiplier)
	eng.SetSizeScalar(cfg.Engine.SizeScalar)
	eng.SetDirectionalSkew(cfg.Engine.DirectionalSkew)

	tracker := ordertracker.New(logger)
	sim := simulator.New(cfg.Simulator.TickInterval, logger, int64(os.Getpid()), simulatorAsset(cfg.Simulator))

	logger.Info("marketmakerd starting",
		"underlying", cfg.Catalog.Underlying,
		"model", cfg.Simulator.Model,
		"carrier_enabled", cfg.Carrier.Enabled,
	)

	group := runtime.New(context.Background(), logger)
	ctx := group.Context()

	group.Go("simulator-tick", func(context.Context) error {
		sim.Run(ctx, eng)
		return nil
	})

	group.Go("ordertracker-gc", func(context.Context) error {
		tracker.Run(ctx, ordertracker.CleanupConfig{
			Interval: cfg.OrderTrack.CleanupInterval,
			MaxAge:   cfg.OrderTrack.MaxAge,
		})
		return nil
	})

	group.Go("shutdown-logger", runtime.ShutdownLogger(logger))

	if cfg.Carrier.Enabled {
		hub := carrier.NewHub(eng, logger)
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		httpServer := &http.Server{Addr: cfg.Carrier.ListenAddr, Handler: mux}

		group.Go("carrier-http", func(context.Context) error {
			errCh := make(chan error, 1)
			go func() { errCh <- httpServer.ListenAndServe() }()
			select {
			case <-ctx.Done():
				return httpServer.Close()
			case err := <-errCh:
				if err == http.ErrServerClosed {
					return nil
				}
				return err
			}
		})
		logger.Info("carrier listening", "addr", cfg.Carrier.ListenAddr)
	}

	waitErr := group.Wait()
	eng.CancelAllOrders()
	bus.Close()
	if waitErr != nil {
		logger.Error("marketmakerd exited with error", "error", waitErr)
		os.Exit(1)
	}
}

func newLogHandler(cfg config.LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.NewTextHandler(os.Stdout, opts)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildCatalog(cfg config.CatalogConfig) *catalog.MemCatalog {
	cat := catalog.NewMemCatalog()
	for _, ladder := range cfg.Ladders {
		exp := types.NewExpirationDays(ladder.ExpirationDays)
		for _, strike := range ladder.StrikesCents {
			cat.AddInstrument(cfg.Underlying, exp, strike)
		}
	}
	return cat
}

func simulatorAsset(cfg config.SimulatorConfig) simulator.AssetConfig {
	return simulator.AssetConfig{
		Symbol:             cfg.Symbol,
		Model:              simulator.Model(cfg.Model),
		InitialPriceCents:  cfg.StartPriceCents,
		Drift:              cfg.Drift,
		Volatility:         cfg.Volatility,
		MeanReversionSpeed: cfg.MeanReversionSpeed,
		MeanReversionLevel: cfg.MeanReversionLevel,
		JumpIntensity:      cfg.JumpIntensity,
		JumpMeanPct:        cfg.JumpMeanPct,
		JumpStdPct:         cfg.JumpStdPct,
	}
}
