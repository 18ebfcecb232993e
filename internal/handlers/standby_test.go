package handlers

import (
	"context"
	"errors"
	"testing"

	"powerpilot/internal/actionable"
	"powerpilot/internal/capability"
	"powerpilot/internal/platform"
)

func standbyRecord(target, mode string) actionable.Record {
	return actionable.Record{
		ID:            "act-001",
		Type:          actionable.TypeSetStandbyBucket,
		Target:        target,
		RequestedMode: mode,
	}
}

func TestBucketFromMode(t *testing.T) {
	tests := []struct {
		mode string
		want bucket
	}{
		{"active", bucketActive},
		{"working_set", bucketWorkingSet},
		{"frequent", bucketFrequent},
		{"rare", bucketRare},
		{"restricted", bucketRestricted},
		{"RESTRICTED", bucketRestricted},
		{"  rare  ", bucketRare},
		// Vocabulary drift from the recommendation service lands on the
		// mildest restricting bucket.
		{"super_max_saver", bucketRare},
		{"", bucketRare},
	}

	for _, tt := range tests {
		if got := bucketFromMode(tt.mode); got != tt.want {
			t.Errorf("bucketFromMode(%q) = %s, want %s", tt.mode, got, tt.want)
		}
	}
}

func TestStandbyBlankTarget(t *testing.T) {
	bridge := platform.NewMemoryBridge()
	h := NewStandby(bridge)

	res := h.Handle(context.Background(), standbyRecord("", "restricted"), capability.TierPrimary)

	if res.Status != actionable.StatusFailed {
		t.Fatalf("status = %s, want %s", res.Status, actionable.StatusFailed)
	}
	if res.Detail != detailBlankTarget {
		t.Errorf("detail = %q, want %q", res.Detail, detailBlankTarget)
	}
	if n := bridge.EffectCalls(); n != 0 {
		t.Errorf("blank target reached the bridge: %d effect call(s)", n)
	}
}

func TestStandbyUnavailable(t *testing.T) {
	bridge := platform.NewMemoryBridge()
	h := NewStandby(bridge)

	res := h.Handle(context.Background(), standbyRecord("com.example.app", "rare"), capability.TierUnavailable)

	if res.Status != actionable.StatusFailed {
		t.Fatalf("status = %s, want %s", res.Status, actionable.StatusFailed)
	}
	if res.Detail != detailUnavailable {
		t.Errorf("detail = %q, want %q", res.Detail, detailUnavailable)
	}
	if n := bridge.EffectCalls(); n != 0 {
		t.Errorf("unavailable tier reached the bridge: %d effect call(s)", n)
	}
}

func TestStandbyPrimary(t *testing.T) {
	bridge := platform.NewMemoryBridge()
	h := NewStandby(bridge)

	res := h.Handle(context.Background(), standbyRecord("com.example.app", "restricted"), capability.TierPrimary)

	if res.Status != actionable.StatusSuccess {
		t.Fatalf("status = %s, detail = %q", res.Status, res.Detail)
	}
	if got := bridge.Buckets["com.example.app"]; got != "restricted" {
		t.Errorf("bucket = %q, want restricted", got)
	}
}

func TestStandbyPrimaryConservativeDefault(t *testing.T) {
	bridge := platform.NewMemoryBridge()
	h := NewStandby(bridge)

	res := h.Handle(context.Background(), standbyRecord("com.example.app", "mystery-mode"), capability.TierPrimary)

	if res.Status != actionable.StatusSuccess {
		t.Fatalf("status = %s, detail = %q", res.Status, res.Detail)
	}
	if got := bridge.Buckets["com.example.app"]; got != "rare" {
		t.Errorf("bucket = %q, want rare for unrecognized mode", got)
	}
}

func TestStandbyFallback(t *testing.T) {
	bridge := platform.NewMemoryBridge()
	h := NewStandby(bridge)

	res := h.Handle(context.Background(), standbyRecord("com.example.app", "rare"), capability.TierFallback)

	if res.Status != actionable.StatusSuccess {
		t.Fatalf("status = %s, detail = %q", res.Status, res.Detail)
	}
	if !bridge.Inactive["com.example.app"] {
		t.Error("fallback tier did not mark the app inactive")
	}
	if len(bridge.Buckets) != 0 {
		t.Error("fallback tier touched the primary mechanism")
	}
}

func TestStandbyFallbackActiveMode(t *testing.T) {
	bridge := platform.NewMemoryBridge()
	h := NewStandby(bridge)

	res := h.Handle(context.Background(), standbyRecord("com.example.app", "active"), capability.TierFallback)

	if res.Status != actionable.StatusSuccess {
		t.Fatalf("status = %s, detail = %q", res.Status, res.Detail)
	}
	if inactive, ok := bridge.Inactive["com.example.app"]; !ok || inactive {
		t.Errorf("active mode at fallback: inactive=%v ok=%v, want active flag cleared", inactive, ok)
	}
}

func TestStandbyBridgeFailure(t *testing.T) {
	bridge := platform.NewMemoryBridge()
	bridge.Deny(platform.MechStandbyBucket, errors.New("shell exited 255"))
	h := NewStandby(bridge)

	res := h.Handle(context.Background(), standbyRecord("com.example.app", "rare"), capability.TierPrimary)

	if res.Status != actionable.StatusFailed {
		t.Fatalf("status = %s, want %s", res.Status, actionable.StatusFailed)
	}
}
