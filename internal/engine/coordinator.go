// Package engine coordinates batch execution: validate, probe, dispatch,
// record. One outcome per instruction, in input order, no retries, no
// batch-level aborts.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"powerpilot/internal/actionable"
	"powerpilot/internal/capability"
	"powerpilot/internal/logging"
)

// DefaultHandlerTimeout bounds one handler call when no timeout is
// configured.
const DefaultHandlerTimeout = 10 * time.Second

// Recorder persists outcomes. history.Store satisfies this; a nil
// recorder disables persistence (one-shot CLI runs against stdout).
type Recorder interface {
	Append(ctx context.Context, batchID string, rec actionable.Record, res actionable.Result) error
}

// Coordinator validates and sequentially executes instruction batches.
// One batch at a time on a single logical flow: execution latency is
// small and the relative order of audit entries matters more than
// throughput.
type Coordinator struct {
	registry *actionable.Registry
	prober   *capability.Prober
	recorder Recorder
	timeout  time.Duration
}

// NewCoordinator wires a coordinator. recorder may be nil.
func NewCoordinator(registry *actionable.Registry, prober *capability.Prober, recorder Recorder, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultHandlerTimeout
	}
	return &Coordinator{registry: registry, prober: prober, recorder: recorder, timeout: timeout}
}

// ExecuteBatch processes records strictly in input order and returns one
// result per record, in the same order. Every instruction is attempted
// exactly once; a failure on one never skips or aborts the rest, and
// nothing is retried within the batch - a later recommendation cycle
// re-evaluates device state and may reissue.
func (c *Coordinator) ExecuteBatch(ctx context.Context, batchID string, records []actionable.Record) []actionable.Result {
	timer := logging.StartTimer(logging.CategoryEngine, fmt.Sprintf("batch %s (%d records)", batchID, len(records)))
	defer timer.Stop()

	results := make([]actionable.Result, 0, len(records))
	for _, rec := range records {
		res := c.executeOne(ctx, rec)
		c.record(ctx, batchID, rec, res)
		results = append(results, res)
	}
	return results
}

// executeOne runs the per-record state machine:
// Received -> Validated -> Probed -> Executed{Success|Failed}, or
// Received -> Rejected{Unsupported}. Terminal either way; no re-entry.
func (c *Coordinator) executeOne(ctx context.Context, rec actionable.Record) actionable.Result {
	if err := c.registry.Validate(rec); err != nil {
		// Zero OS calls on validation failure. Unknown type is the
		// Unsupported classification; a malformed payload of a known
		// type is a plain failure.
		if errors.Is(err, actionable.ErrUnknownType) {
			logging.EngineWarn("record %s rejected: %v", rec.ID, err)
			return actionable.Unsupported(rec.ID, err.Error())
		}
		logging.EngineWarn("record %s invalid: %v", rec.ID, err)
		return actionable.Failed(rec.ID, err.Error())
	}

	domain, ok := c.registry.DomainOf(rec.Type)
	if !ok {
		// Unreachable after Validate; kept as a guard on the registry
		// contract.
		return actionable.Unsupported(rec.ID, fmt.Sprintf("no domain bound for type %s", rec.Type))
	}
	tier := c.prober.Probe(ctx, domain)

	handler := c.registry.Resolve(rec.Type)
	res := c.invoke(ctx, handler, rec, tier)

	logging.EngineDebug("record %s (%s) -> %s: %s", rec.ID, rec.Type, res.Status, res.Detail)
	return res
}

// invoke runs one handler call under the configured timeout, with a
// recover guard on top of the handler never-panic contract. A stuck OS
// call must never stall the batch: on expiry the instruction is marked
// failed and the coordinator moves on. The lingering call keeps its
// cancelled context, so a conforming bridge unwinds shortly after.
func (c *Coordinator) invoke(ctx context.Context, h actionable.Handler, rec actionable.Record, tier capability.Tier) actionable.Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan actionable.Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.EngineError("handler panic on record %s: %v", rec.ID, r)
				done <- actionable.Failedf(rec.ID, "handler panic: %v", r)
			}
		}()
		done <- h.Handle(ctx, rec, tier)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		logging.EngineWarn("record %s timed out after %v", rec.ID, c.timeout)
		return actionable.Failed(rec.ID, "timeout")
	}
}

// record hands a result to the recorder. Recorder errors are logged and
// never alter the result: the outcome contract is already settled.
func (c *Coordinator) record(ctx context.Context, batchID string, rec actionable.Record, res actionable.Result) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Append(ctx, batchID, rec, res); err != nil {
		logging.HistoryError("failed to record outcome for %s: %v", res.ActionableID, err)
	}
}
