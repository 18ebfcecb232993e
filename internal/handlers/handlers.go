// Package handlers implements one handler per capability domain. Each
// handler translates one instruction type into concrete OS effects at
// the tier the coordinator probed for its domain.
//
// Shared rules, in order:
//  1. Structural payload checks first (blank target where one is
//     required) - a local contract violation returns Failed before any
//     OS interaction.
//  2. The free-text requested mode maps onto a closed per-domain enum;
//     an unrecognized string takes the domain's conservative default so
//     vocabulary drift from the recommendation service degrades into a
//     milder action, never a crash and never a silent no-op.
//  3. TierUnavailable short-circuits to Failed("capability unavailable")
//     with zero OS calls. The tier handed in by the coordinator is
//     authoritative; a handler never mixes mechanisms from two tiers
//     within one instruction.
package handlers

import (
	"strings"

	"powerpilot/internal/actionable"
	"powerpilot/internal/capability"
	"powerpilot/internal/platform"
)

// Detail strings shared across handlers. The history UI surfaces these
// verbatim, so they stay short and human-readable.
const (
	detailBlankTarget = "blank target"
	detailUnavailable = "capability unavailable"
)

// normalizeMode folds a free-text requested mode for enum matching.
func normalizeMode(mode string) string {
	return strings.ToLower(strings.TrimSpace(mode))
}

// unavailable returns the canonical short-circuit result for a domain
// with no usable mechanism.
func unavailable(rec actionable.Record) actionable.Result {
	return actionable.Failed(rec.ID, detailUnavailable)
}

// Register binds every instruction type in the taxonomy to its handler
// over the given bridge. This is the engine's single initialization-time
// registration point; the taxonomy cannot grow at runtime.
func Register(reg *actionable.Registry, bridge platform.Bridge) error {
	type entry struct {
		tag      actionable.TypeTag
		domain   capability.Domain
		handler  actionable.Handler
		required []string
	}
	entries := []entry{
		{actionable.TypeSetStandbyBucket, capability.DomainAppStandby, NewStandby(bridge), []string{"id"}},
		{actionable.TypeRestrictBackgroundData, capability.DomainNetPolicy, NewBackground(bridge), []string{"id"}},
		{actionable.TypeForceStopApp, capability.DomainProcessControl, NewProcess(bridge), []string{"id"}},
		{actionable.TypeManageWakeSource, capability.DomainWakeSource, NewWakeSource(bridge), []string{"id"}},
		{actionable.TypeThrottleCPU, capability.DomainCPUControl, NewCPU(bridge), []string{"id"}},
		{actionable.TypeNotifyUsageThreshold, capability.DomainNotify, NewAlerts(bridge), []string{"id", "metric", "threshold"}},
	}
	for _, e := range entries {
		if err := reg.Register(e.tag, e.domain, e.handler, e.required...); err != nil {
			return err
		}
	}
	return nil
}
