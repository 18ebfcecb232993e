package handlers

import (
	"context"
	"fmt"

	"powerpilot/internal/actionable"
	"powerpilot/internal/capability"
	"powerpilot/internal/logging"
	"powerpilot/internal/platform"
)

// throttleLevel is the closed enum for CPU/priority throttling.
type throttleLevel string

const (
	throttleLight      throttleLevel = "light"
	throttleModerate   throttleLevel = "moderate"
	throttleAggressive throttleLevel = "aggressive"
)

// Per-level knobs for the two mechanisms.
var (
	cpuShares = map[throttleLevel]int{
		throttleLight:      512,
		throttleModerate:   256,
		throttleAggressive: 128,
	}
	niceness = map[throttleLevel]int{
		throttleLight:      5,
		throttleModerate:   10,
		throttleAggressive: 19,
	}
)

// throttleFromMode maps the free-text mode onto a level. Unrecognized
// values take throttleLight, the smallest reduction.
func throttleFromMode(mode string) throttleLevel {
	switch normalizeMode(mode) {
	case "moderate", "medium":
		return throttleModerate
	case "aggressive", "heavy":
		return throttleAggressive
	case "light", "low":
		return throttleLight
	default:
		return throttleLight
	}
}

// CPU lowers an app's CPU allocation. Primary tier writes cgroup cpu
// shares; fallback renices the app's processes.
type CPU struct {
	bridge platform.Bridge
}

// NewCPU creates the CPU-throttling handler.
func NewCPU(bridge platform.Bridge) *CPU {
	return &CPU{bridge: bridge}
}

func (h *CPU) Handle(ctx context.Context, rec actionable.Record, tier capability.Tier) actionable.Result {
	if rec.Target == "" {
		return actionable.Failed(rec.ID, detailBlankTarget)
	}
	if tier == capability.TierUnavailable {
		return unavailable(rec)
	}

	level := throttleFromMode(rec.RequestedMode)
	logging.HandlersDebug("cpu: %s level=%s (tier=%s)", rec.Target, level, tier)

	var err error
	var detail string
	switch tier {
	case capability.TierPrimary:
		shares := cpuShares[level]
		err = h.bridge.SetCPUShares(ctx, rec.Target, shares)
		detail = fmt.Sprintf("cpu shares set to %d for %s (%s)", shares, rec.Target, level)
	case capability.TierFallback:
		n := niceness[level]
		err = h.bridge.Renice(ctx, rec.Target, n)
		detail = fmt.Sprintf("niceness set to %d for %s (%s)", n, rec.Target, level)
	}
	if err != nil {
		return actionable.Failedf(rec.ID, "cpu throttle: %v", err)
	}
	return actionable.Success(rec.ID, detail)
}
