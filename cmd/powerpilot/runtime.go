package main

import (
	"fmt"

	"go.uber.org/zap"

	"powerpilot/internal/actionable"
	"powerpilot/internal/capability"
	"powerpilot/internal/config"
	"powerpilot/internal/engine"
	"powerpilot/internal/handlers"
	"powerpilot/internal/history"
	"powerpilot/internal/logging"
	"powerpilot/internal/platform"
)

// runtime is the wired engine shared by the CLI commands.
type runtime struct {
	cfg         *config.Config
	bridge      platform.Bridge
	registry    *actionable.Registry
	prober      *capability.Prober
	store       *history.Store
	coordinator *engine.Coordinator
}

// buildRuntime loads config and wires the full engine. withHistory
// controls whether the outcome store is opened; probe-only commands
// skip it.
func buildRuntime(withHistory bool) (*runtime, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, err
	}
	if err := logging.Initialize(workspace, cfg.Logging.Options()); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	var bridge platform.Bridge
	if dryRun {
		bridge = platform.NewMemoryBridge()
		logger.Info("dry-run: effects applied to in-memory device")
	} else {
		bridge = platform.NewShellBridge(cfg.Platform.ProbePackage, cfg.Platform.CommandTimeoutDuration())
	}

	registry := actionable.NewRegistry()
	if err := handlers.Register(registry, bridge); err != nil {
		return nil, fmt.Errorf("failed to register handlers: %w", err)
	}
	prober := capability.NewProber(bridge)

	rt := &runtime{
		cfg:      cfg,
		bridge:   bridge,
		registry: registry,
		prober:   prober,
	}

	if withHistory {
		store, err := history.Open(cfg.DatabasePath(workspace))
		if err != nil {
			return nil, fmt.Errorf("failed to open outcome store: %w", err)
		}
		rt.store = store
		rt.coordinator = engine.NewCoordinator(registry, prober, store, cfg.Execution.HandlerTimeoutDuration())
	} else {
		rt.coordinator = engine.NewCoordinator(registry, prober, nil, cfg.Execution.HandlerTimeoutDuration())
	}

	logger.Debug("engine wired",
		zap.Int("types", registry.Count()),
		zap.Bool("dry_run", dryRun))
	return rt, nil
}

// Close releases runtime resources.
func (rt *runtime) Close() {
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			logger.Warn("failed to close outcome store", zap.Error(err))
		}
	}
}
