package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powerpilot/internal/actionable"
	"powerpilot/internal/capability"
	"powerpilot/internal/handlers"
	"powerpilot/internal/platform"
)

// memRecorder captures appended outcomes in call order.
type memRecorder struct {
	mu      sync.Mutex
	batches []string
	results []actionable.Result
	err     error
}

func (r *memRecorder) Append(_ context.Context, batchID string, _ actionable.Record, res actionable.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, batchID)
	r.results = append(r.results, res)
	return r.err
}

func newTestCoordinator(t *testing.T, bridge *platform.MemoryBridge, rec Recorder) *Coordinator {
	t.Helper()
	reg := actionable.NewRegistry()
	require.NoError(t, handlers.Register(reg, bridge))
	return NewCoordinator(reg, capability.NewProber(bridge), rec, 0)
}

func statuses(results []actionable.Result) []actionable.Status {
	out := make([]actionable.Status, len(results))
	for i, r := range results {
		out[i] = r.Status
	}
	return out
}

func TestExecuteBatchOrderAndCompleteness(t *testing.T) {
	bridge := platform.NewMemoryBridge()
	recorder := &memRecorder{}
	c := newTestCoordinator(t, bridge, recorder)

	records := []actionable.Record{
		{ID: "a-1", Type: actionable.TypeSetStandbyBucket, Target: "com.example.one", RequestedMode: "rare"},
		{ID: "a-2", Type: actionable.TypeRestrictBackgroundData, Target: "com.example.two", RequestedMode: "restrict"},
		{ID: "a-3", Type: actionable.TypeThrottleCPU, Target: "com.example.three", RequestedMode: "moderate"},
	}

	results := c.ExecuteBatch(context.Background(), "batch-1", records)

	require.Len(t, results, len(records))
	for i, rec := range records {
		assert.Equal(t, rec.ID, results[i].ActionableID, "result %d out of order", i)
		assert.Equal(t, actionable.StatusSuccess, results[i].Status, "result %d: %s", i, results[i].Detail)
	}

	// The recorder sees every outcome, in the same order, under one batch.
	require.Len(t, recorder.results, len(records))
	if diff := cmp.Diff(results, recorder.results); diff != "" {
		t.Errorf("recorded outcomes differ from returned (-returned +recorded):\n%s", diff)
	}
	for _, id := range recorder.batches {
		assert.Equal(t, "batch-1", id)
	}
}

func TestExecuteBatchUnknownTypeMidBatch(t *testing.T) {
	bridge := platform.NewMemoryBridge()
	c := newTestCoordinator(t, bridge, nil)

	records := []actionable.Record{
		{ID: "a-1", Type: actionable.TypeSetStandbyBucket, Target: "com.example.one", RequestedMode: "rare"},
		{ID: "a-2", Type: "DEFRAG_STORAGE", Target: "com.example.two"},
		{ID: "a-3", Type: actionable.TypeForceStopApp, Target: "com.example.three", RequestedMode: "force"},
	}

	results := c.ExecuteBatch(context.Background(), "batch-2", records)

	require.Len(t, results, 3)
	want := []actionable.Status{actionable.StatusSuccess, actionable.StatusUnsupported, actionable.StatusSuccess}
	if diff := cmp.Diff(want, statuses(results)); diff != "" {
		t.Errorf("status sequence (-want +got):\n%s", diff)
	}
	// The unrecognized record never reaches the OS and never aborts the
	// records after it.
	assert.Equal(t, []string{"com.example.three"}, bridge.Stopped)
}

func TestExecuteBatchMalformedRecordFails(t *testing.T) {
	bridge := platform.NewMemoryBridge()
	c := newTestCoordinator(t, bridge, nil)

	records := []actionable.Record{
		{Type: actionable.TypeSetStandbyBucket, Target: "com.example.one", RequestedMode: "rare"}, // no ID
	}

	results := c.ExecuteBatch(context.Background(), "batch-3", records)

	require.Len(t, results, 1)
	assert.Equal(t, actionable.StatusFailed, results[0].Status)
	assert.Zero(t, bridge.EffectCalls(), "malformed record reached the bridge")
}

func TestExecuteBatchUnavailableDomain(t *testing.T) {
	bridge := platform.NewMemoryBridge()
	bridge.Deny(platform.MechStandbyBucket, platform.ErrPermissionDenied)
	bridge.Deny(platform.MechSetInactive, platform.ErrPermissionDenied)
	c := newTestCoordinator(t, bridge, nil)

	records := []actionable.Record{
		{ID: "a-1", Type: actionable.TypeSetStandbyBucket, Target: "com.example.one", RequestedMode: "rare"},
		{ID: "a-2", Type: actionable.TypeSetStandbyBucket, Target: "com.example.two", RequestedMode: "restricted"},
		{ID: "a-3", Type: actionable.TypeSetStandbyBucket, Target: "com.example.three", RequestedMode: "active"},
	}

	results := c.ExecuteBatch(context.Background(), "batch-4", records)

	require.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, actionable.StatusFailed, res.Status, "result %d", i)
		assert.Equal(t, "capability unavailable", res.Detail, "result %d", i)
	}
	// Both tiers were checked once; the cached verdict covers the rest of
	// the batch without re-probing.
	assert.Equal(t, 2, bridge.CheckCalls())
	assert.Zero(t, bridge.EffectCalls())
}

func TestExecuteBatchDeterministicAcrossRuns(t *testing.T) {
	records := []actionable.Record{
		{ID: "a-1", Type: actionable.TypeSetStandbyBucket, Target: "com.example.one", RequestedMode: "rare"},
		{ID: "a-2", Type: "UNKNOWN_OP", Target: "com.example.two"},
		{ID: "a-3", Type: actionable.TypeThrottleCPU, Target: "", RequestedMode: "light"},
	}

	run := func() []actionable.Status {
		c := newTestCoordinator(t, platform.NewMemoryBridge(), nil)
		return statuses(c.ExecuteBatch(context.Background(), "batch-5", records))
	}

	first := run()
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, run()); diff != "" {
			t.Fatalf("run %d diverged (-first +later):\n%s", i, diff)
		}
	}
}

func TestInvokeTimeout(t *testing.T) {
	bridge := platform.NewMemoryBridge()
	reg := actionable.NewRegistry()
	require.NoError(t, reg.Register(actionable.TypeSetStandbyBucket, capability.DomainAppStandby,
		actionable.HandlerFunc(func(ctx context.Context, rec actionable.Record, _ capability.Tier) actionable.Result {
			<-ctx.Done()
			return actionable.Success(rec.ID, "too late")
		}), "id"))
	c := NewCoordinator(reg, capability.NewProber(bridge), nil, 50*time.Millisecond)

	start := time.Now()
	results := c.ExecuteBatch(context.Background(), "batch-6", []actionable.Record{
		{ID: "a-1", Type: actionable.TypeSetStandbyBucket, Target: "com.example.one"},
	})

	require.Len(t, results, 1)
	assert.Equal(t, actionable.StatusFailed, results[0].Status)
	assert.Equal(t, "timeout", results[0].Detail)
	assert.Less(t, time.Since(start), 5*time.Second, "stuck handler stalled the batch")
}

func TestInvokePanicRecovery(t *testing.T) {
	bridge := platform.NewMemoryBridge()
	reg := actionable.NewRegistry()
	require.NoError(t, reg.Register(actionable.TypeThrottleCPU, capability.DomainCPUControl,
		actionable.HandlerFunc(func(_ context.Context, _ actionable.Record, _ capability.Tier) actionable.Result {
			panic("bridge went sideways")
		}), "id"))
	c := NewCoordinator(reg, capability.NewProber(bridge), nil, 0)

	results := c.ExecuteBatch(context.Background(), "batch-7", []actionable.Record{
		{ID: "a-1", Type: actionable.TypeThrottleCPU, Target: "com.example.one"},
		{ID: "a-2", Type: actionable.TypeThrottleCPU, Target: "com.example.two"},
	})

	require.Len(t, results, 2, "panic aborted the batch")
	for _, res := range results {
		assert.Equal(t, actionable.StatusFailed, res.Status)
		assert.Contains(t, res.Detail, "handler panic")
	}
}

func TestRecorderErrorDoesNotAlterResult(t *testing.T) {
	bridge := platform.NewMemoryBridge()
	recorder := &memRecorder{err: errors.New("disk full")}
	c := newTestCoordinator(t, bridge, recorder)

	results := c.ExecuteBatch(context.Background(), "batch-8", []actionable.Record{
		{ID: "a-1", Type: actionable.TypeSetStandbyBucket, Target: "com.example.one", RequestedMode: "rare"},
	})

	require.Len(t, results, 1)
	assert.Equal(t, actionable.StatusSuccess, results[0].Status)
}

func TestDecodeBatch(t *testing.T) {
	in := strings.NewReader(`{
		"batch_id": "batch-xyz",
		"actionables": [
			{"id": "a-1", "type": "SET_STANDBY_BUCKET", "target": "com.example.app", "requested_mode": "rare"}
		]
	}`)

	b, err := DecodeBatch(in)
	require.NoError(t, err)
	assert.Equal(t, "batch-xyz", b.ID)
	require.Len(t, b.Records, 1)
	assert.Equal(t, actionable.TypeSetStandbyBucket, b.Records[0].Type)
	assert.Equal(t, "com.example.app", b.Records[0].Target)
}

func TestDecodeBatchAssignsID(t *testing.T) {
	b, err := DecodeBatch(strings.NewReader(`{"actionables": []}`))
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
}

func TestDecodeBatchMalformed(t *testing.T) {
	_, err := DecodeBatch(strings.NewReader(`{"actionables": `))
	require.Error(t, err)
}
