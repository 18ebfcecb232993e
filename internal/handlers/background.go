package handlers

import (
	"context"

	"powerpilot/internal/actionable"
	"powerpilot/internal/capability"
	"powerpilot/internal/logging"
	"powerpilot/internal/platform"
)

// transferPolicy is the closed enum for background-transfer control.
type transferPolicy string

const (
	transferAllow    transferPolicy = "allow"
	transferRestrict transferPolicy = "restrict"
	transferExempt   transferPolicy = "exempt"
)

// transferFromMode maps the free-text mode onto a policy. Unrecognized
// values take transferRestrict: the instruction only exists to curb
// background transfers, and restrict is the mildest form of that intent
// (metered background only, foreground untouched).
func transferFromMode(mode string) transferPolicy {
	switch normalizeMode(mode) {
	case "allow":
		return transferAllow
	case "restrict", "deny":
		return transferRestrict
	case "exempt", "whitelist":
		return transferExempt
	default:
		return transferRestrict
	}
}

// Background restricts an app's background data transfers. Primary tier
// edits the per-app network policy lists; fallback flips the legacy
// run-in-background op, which carries the same practical effect of
// stopping unattended transfers.
type Background struct {
	bridge platform.Bridge
}

// NewBackground creates the background-transfer handler.
func NewBackground(bridge platform.Bridge) *Background {
	return &Background{bridge: bridge}
}

func (h *Background) Handle(ctx context.Context, rec actionable.Record, tier capability.Tier) actionable.Result {
	if rec.Target == "" {
		return actionable.Failed(rec.ID, detailBlankTarget)
	}
	if tier == capability.TierUnavailable {
		return unavailable(rec)
	}

	policy := transferFromMode(rec.RequestedMode)
	logging.HandlersDebug("background: %s -> %s (tier=%s)", rec.Target, policy, tier)

	var err error
	switch tier {
	case capability.TierPrimary:
		switch policy {
		case transferAllow:
			err = h.bridge.AllowBackgroundData(ctx, rec.Target)
		case transferRestrict:
			err = h.bridge.DenyBackgroundData(ctx, rec.Target)
		case transferExempt:
			err = h.bridge.ExemptBackgroundData(ctx, rec.Target)
		}
	case capability.TierFallback:
		// The appops path has no exempt list; exempt collapses to allow.
		op := "ignore"
		if policy != transferRestrict {
			op = "allow"
		}
		err = h.bridge.SetBackgroundRunOp(ctx, rec.Target, op)
	}
	if err != nil {
		return actionable.Failedf(rec.ID, "background transfer policy: %v", err)
	}
	return actionable.Success(rec.ID, "background transfers "+string(policy)+" for "+rec.Target)
}
