package handlers

import (
	"context"
	"fmt"

	"powerpilot/internal/actionable"
	"powerpilot/internal/capability"
	"powerpilot/internal/logging"
	"powerpilot/internal/platform"
)

// wakeAction is the closed enum for wake-source management.
type wakeAction string

const (
	wakeInspect wakeAction = "inspect" // report-only
	wakeRelease wakeAction = "release" // drop currently held sources
	wakeBlock   wakeAction = "block"   // deny future acquisitions
)

// wakeFromMode maps the free-text mode onto a wakeAction. Unrecognized
// values take wakeInspect, the only member with no device effect at all.
func wakeFromMode(mode string) wakeAction {
	switch normalizeMode(mode) {
	case "release":
		return wakeRelease
	case "block", "deny":
		return wakeBlock
	case "inspect", "report":
		return wakeInspect
	default:
		return wakeInspect
	}
}

// WakeSource inspects or curbs an app's wake sources. Only the primary
// tier can enumerate held sources; the fallback tier works through the
// wake-lock op, which can block or unblock but not list.
type WakeSource struct {
	bridge platform.Bridge
}

// NewWakeSource creates the wake-source handler.
func NewWakeSource(bridge platform.Bridge) *WakeSource {
	return &WakeSource{bridge: bridge}
}

func (h *WakeSource) Handle(ctx context.Context, rec actionable.Record, tier capability.Tier) actionable.Result {
	if rec.Target == "" {
		return actionable.Failed(rec.ID, detailBlankTarget)
	}
	if tier == capability.TierUnavailable {
		return unavailable(rec)
	}

	action := wakeFromMode(rec.RequestedMode)
	logging.HandlersDebug("wakesource: %s action=%s (tier=%s)", rec.Target, action, tier)

	if tier == capability.TierFallback {
		return h.handleFallback(ctx, rec, action)
	}

	switch action {
	case wakeInspect:
		sources, err := h.bridge.WakeSources(ctx, rec.Target)
		if err != nil {
			return actionable.Failedf(rec.ID, "list wake sources: %v", err)
		}
		return actionable.Success(rec.ID, fmt.Sprintf("%d wake source(s) held by %s", len(sources), rec.Target))
	case wakeRelease:
		if err := h.bridge.ReleaseWakeSources(ctx, rec.Target); err != nil {
			return actionable.Failedf(rec.ID, "release wake sources: %v", err)
		}
		return actionable.Success(rec.ID, "released wake sources of "+rec.Target)
	case wakeBlock:
		if err := h.bridge.SetWakeLockOp(ctx, rec.Target, "ignore"); err != nil {
			return actionable.Failedf(rec.ID, "block wake sources: %v", err)
		}
		return actionable.Success(rec.ID, "blocked wake-lock acquisition for "+rec.Target)
	}
	return actionable.Failedf(rec.ID, "unhandled wake action %q", action)
}

func (h *WakeSource) handleFallback(ctx context.Context, rec actionable.Record, action wakeAction) actionable.Result {
	if action == wakeInspect {
		// The op path cannot enumerate held sources; report-only stays
		// report-only rather than guessing.
		return actionable.Success(rec.ID, "wake sources not listable at fallback tier; no change applied")
	}
	if err := h.bridge.SetWakeLockOp(ctx, rec.Target, "ignore"); err != nil {
		return actionable.Failedf(rec.ID, "wake-lock op: %v", err)
	}
	return actionable.Success(rec.ID, "wake-lock op set to ignore for "+rec.Target)
}
