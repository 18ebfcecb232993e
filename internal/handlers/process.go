package handlers

import (
	"context"

	"powerpilot/internal/actionable"
	"powerpilot/internal/capability"
	"powerpilot/internal/logging"
	"powerpilot/internal/platform"
)

// killMode is the closed enum for process termination.
type killMode string

const (
	killBackground killMode = "background" // reclaim background processes only
	killForce      killMode = "force"      // full force-stop
)

// killFromMode maps the free-text mode onto a killMode. Unrecognized
// values take killBackground: reclaiming background processes is
// reversible by the app, force-stop is not.
func killFromMode(mode string) killMode {
	switch normalizeMode(mode) {
	case "force", "force_stop":
		return killForce
	case "background", "kill":
		return killBackground
	default:
		return killBackground
	}
}

// Process terminates an app's processes. Force-stop needs the primary
// tier; at fallback only the background kill is reachable, so a force
// request degrades to it rather than failing, with the downgrade named
// in the result detail.
type Process struct {
	bridge platform.Bridge
}

// NewProcess creates the process-termination handler.
func NewProcess(bridge platform.Bridge) *Process {
	return &Process{bridge: bridge}
}

func (h *Process) Handle(ctx context.Context, rec actionable.Record, tier capability.Tier) actionable.Result {
	if rec.Target == "" {
		return actionable.Failed(rec.ID, detailBlankTarget)
	}
	if tier == capability.TierUnavailable {
		return unavailable(rec)
	}

	mode := killFromMode(rec.RequestedMode)
	logging.HandlersDebug("process: %s mode=%s (tier=%s)", rec.Target, mode, tier)

	if tier == capability.TierPrimary && mode == killForce {
		if err := h.bridge.ForceStop(ctx, rec.Target); err != nil {
			return actionable.Failedf(rec.ID, "force stop: %v", err)
		}
		return actionable.Success(rec.ID, "force-stopped "+rec.Target)
	}

	if err := h.bridge.KillBackground(ctx, rec.Target); err != nil {
		return actionable.Failedf(rec.ID, "kill background: %v", err)
	}
	if mode == killForce {
		return actionable.Success(rec.ID, "killed background processes of "+rec.Target+" (force-stop not reachable at fallback tier)")
	}
	return actionable.Success(rec.ID, "killed background processes of "+rec.Target)
}
