package handlers

import (
	"context"
	"strings"
	"testing"

	"powerpilot/internal/actionable"
	"powerpilot/internal/capability"
	"powerpilot/internal/platform"
)

func processRecord(target, mode string) actionable.Record {
	return actionable.Record{
		ID:            "act-020",
		Type:          actionable.TypeForceStopApp,
		Target:        target,
		RequestedMode: mode,
	}
}

func TestKillFromMode(t *testing.T) {
	tests := []struct {
		mode string
		want killMode
	}{
		{"force", killForce},
		{"force_stop", killForce},
		{"background", killBackground},
		{"kill", killBackground},
		// killBackground is reversible by the app; unknown modes take it.
		{"terminate-with-extreme-prejudice", killBackground},
		{"", killBackground},
	}

	for _, tt := range tests {
		if got := killFromMode(tt.mode); got != tt.want {
			t.Errorf("killFromMode(%q) = %s, want %s", tt.mode, got, tt.want)
		}
	}
}

func TestProcessForcePrimary(t *testing.T) {
	bridge := platform.NewMemoryBridge()
	h := NewProcess(bridge)

	res := h.Handle(context.Background(), processRecord("com.example.app", "force"), capability.TierPrimary)

	if res.Status != actionable.StatusSuccess {
		t.Fatalf("status = %s, detail = %q", res.Status, res.Detail)
	}
	if len(bridge.Stopped) != 1 || bridge.Stopped[0] != "com.example.app" {
		t.Errorf("Stopped = %v, want [com.example.app]", bridge.Stopped)
	}
	if len(bridge.Killed) != 0 {
		t.Errorf("force mode at primary also killed: %v", bridge.Killed)
	}
}

func TestProcessBackgroundPrimary(t *testing.T) {
	bridge := platform.NewMemoryBridge()
	h := NewProcess(bridge)

	res := h.Handle(context.Background(), processRecord("com.example.app", "background"), capability.TierPrimary)

	if res.Status != actionable.StatusSuccess {
		t.Fatalf("status = %s, detail = %q", res.Status, res.Detail)
	}
	if len(bridge.Killed) != 1 || bridge.Killed[0] != "com.example.app" {
		t.Errorf("Killed = %v, want [com.example.app]", bridge.Killed)
	}
	if len(bridge.Stopped) != 0 {
		t.Errorf("background mode force-stopped: %v", bridge.Stopped)
	}
}

func TestProcessForceFallbackDegrades(t *testing.T) {
	bridge := platform.NewMemoryBridge()
	h := NewProcess(bridge)

	res := h.Handle(context.Background(), processRecord("com.example.app", "force"), capability.TierFallback)

	if res.Status != actionable.StatusSuccess {
		t.Fatalf("status = %s, detail = %q", res.Status, res.Detail)
	}
	if len(bridge.Stopped) != 0 {
		t.Errorf("fallback tier force-stopped: %v", bridge.Stopped)
	}
	if len(bridge.Killed) != 1 {
		t.Fatalf("Killed = %v, want one entry", bridge.Killed)
	}
	// The downgrade is named in the outcome so the history reads honestly.
	if !strings.Contains(res.Detail, "force-stop not reachable") {
		t.Errorf("detail = %q, want mention of the force-stop downgrade", res.Detail)
	}
}

func TestProcessBlankTarget(t *testing.T) {
	bridge := platform.NewMemoryBridge()
	h := NewProcess(bridge)

	res := h.Handle(context.Background(), processRecord("", "force"), capability.TierPrimary)

	if res.Status != actionable.StatusFailed || res.Detail != detailBlankTarget {
		t.Errorf("got (%s, %q), want (%s, %q)", res.Status, res.Detail, actionable.StatusFailed, detailBlankTarget)
	}
	if n := bridge.EffectCalls(); n != 0 {
		t.Errorf("blank target reached the bridge: %d effect call(s)", n)
	}
}

func TestProcessUnavailable(t *testing.T) {
	bridge := platform.NewMemoryBridge()
	h := NewProcess(bridge)

	res := h.Handle(context.Background(), processRecord("com.example.app", "force"), capability.TierUnavailable)

	if res.Status != actionable.StatusFailed || res.Detail != detailUnavailable {
		t.Errorf("got (%s, %q), want (%s, %q)", res.Status, res.Detail, actionable.StatusFailed, detailUnavailable)
	}
}
