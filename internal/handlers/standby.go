package handlers

import (
	"context"

	"powerpilot/internal/actionable"
	"powerpilot/internal/capability"
	"powerpilot/internal/logging"
	"powerpilot/internal/platform"
)

// bucket is the closed internal enum for idle-state assignment.
type bucket string

const (
	bucketActive     bucket = "active"
	bucketWorkingSet bucket = "working_set"
	bucketFrequent   bucket = "frequent"
	bucketRare       bucket = "rare"
	bucketRestricted bucket = "restricted"
)

// bucketFromMode maps the service's free-text mode onto a bucket.
// Unrecognized values take bucketRare: the mildest assignment that still
// reduces background activity, so vocabulary drift can never escalate an
// instruction into the harshest restriction.
func bucketFromMode(mode string) bucket {
	switch normalizeMode(mode) {
	case "active":
		return bucketActive
	case "working_set":
		return bucketWorkingSet
	case "frequent":
		return bucketFrequent
	case "rare":
		return bucketRare
	case "restricted":
		return bucketRestricted
	default:
		return bucketRare
	}
}

// Standby assigns apps to idle-state buckets. Primary tier sets the
// bucket directly; fallback uses the legacy app-inactive flag, where
// anything below active marks the app inactive.
type Standby struct {
	bridge platform.Bridge
}

// NewStandby creates the idle-state handler.
func NewStandby(bridge platform.Bridge) *Standby {
	return &Standby{bridge: bridge}
}

func (h *Standby) Handle(ctx context.Context, rec actionable.Record, tier capability.Tier) actionable.Result {
	if rec.Target == "" {
		return actionable.Failed(rec.ID, detailBlankTarget)
	}
	if tier == capability.TierUnavailable {
		return unavailable(rec)
	}

	b := bucketFromMode(rec.RequestedMode)
	logging.HandlersDebug("standby: %s -> %s (tier=%s, requested=%q)", rec.Target, b, tier, rec.RequestedMode)

	var err error
	switch tier {
	case capability.TierPrimary:
		err = h.bridge.SetStandbyBucket(ctx, rec.Target, string(b))
	case capability.TierFallback:
		err = h.bridge.SetAppInactive(ctx, rec.Target, b != bucketActive)
	}
	if err != nil {
		return actionable.Failedf(rec.ID, "set standby bucket: %v", err)
	}
	if tier == capability.TierFallback {
		return actionable.Success(rec.ID, "marked "+rec.Target+" inactive (legacy path)")
	}
	return actionable.Success(rec.ID, "bucket "+string(b)+" applied to "+rec.Target)
}
