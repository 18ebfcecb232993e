package handlers

import (
	"context"
	"fmt"

	"powerpilot/internal/actionable"
	"powerpilot/internal/capability"
	"powerpilot/internal/logging"
	"powerpilot/internal/platform"
)

// alertChannel is the closed enum for usage-threshold alert delivery.
type alertChannel string

const (
	channelNotification alertChannel = "notification"
	channelToast        alertChannel = "toast"
	channelSilent       alertChannel = "silent" // log only, nothing user-visible
)

// channelFromMode maps the free-text mode onto a channel. Unrecognized
// values take channelNotification, the product's standard alert surface.
func channelFromMode(mode string) alertChannel {
	switch normalizeMode(mode) {
	case "toast":
		return channelToast
	case "silent", "none":
		return channelSilent
	case "notification":
		return channelNotification
	default:
		return channelNotification
	}
}

// Alerts raises usage-threshold alerts. This is the one notification-only
// domain: no OS state is mutated, and target is optional (absent means a
// device-global alert). Required parameters "metric" and "threshold" are
// enforced by the registry before this handler runs.
type Alerts struct {
	bridge platform.Bridge
}

// NewAlerts creates the usage-threshold alert handler.
func NewAlerts(bridge platform.Bridge) *Alerts {
	return &Alerts{bridge: bridge}
}

func (h *Alerts) Handle(ctx context.Context, rec actionable.Record, tier capability.Tier) actionable.Result {
	if tier == capability.TierUnavailable {
		return unavailable(rec)
	}

	metric := rec.Param("metric", "usage")
	threshold := rec.Param("threshold", "")
	channel := channelFromMode(rec.RequestedMode)

	subject := "device"
	if rec.Target != "" {
		subject = rec.Target
	}
	body := fmt.Sprintf("%s for %s crossed %s", metric, subject, threshold)

	logging.HandlersDebug("alerts: %s via %s", body, channel)

	if channel == channelSilent {
		logging.Handlers("usage alert (silent): %s", body)
		return actionable.Success(rec.ID, "usage alert logged: "+body)
	}

	// Toast and notification both go out through the local notification
	// surface; the channel only changes presentation metadata upstream.
	if err := h.bridge.PostNotification(ctx, "Usage alert", body); err != nil {
		return actionable.Failedf(rec.ID, "post usage alert: %v", err)
	}
	return actionable.Success(rec.ID, "usage alert posted via "+string(channel)+": "+body)
}
