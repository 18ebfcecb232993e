// Package actionable defines the closed instruction taxonomy shared with
// the recommendation service and the registry that binds each instruction
// type to its handler.
//
// The taxonomy is closed-world by design: the engine never acts on a type
// it does not recognize. Growing the set requires a registry entry and a
// handler on this side, and a matching vocabulary bump on the service side.
package actionable

import (
	"context"
	"fmt"
	"time"

	"powerpilot/internal/capability"
)

// TypeTag identifies one instruction type from the closed taxonomy.
type TypeTag string

const (
	// TypeSetStandbyBucket assigns an app to an idle-state bucket.
	TypeSetStandbyBucket TypeTag = "SET_STANDBY_BUCKET"

	// TypeRestrictBackgroundData restricts an app's background transfers.
	TypeRestrictBackgroundData TypeTag = "RESTRICT_BACKGROUND_DATA"

	// TypeForceStopApp terminates an app's processes.
	TypeForceStopApp TypeTag = "FORCE_STOP_APP"

	// TypeManageWakeSource inspects or curbs an app's wake sources.
	TypeManageWakeSource TypeTag = "MANAGE_WAKE_SOURCE"

	// TypeThrottleCPU lowers an app's CPU allocation or priority.
	TypeThrottleCPU TypeTag = "THROTTLE_CPU"

	// TypeNotifyUsageThreshold raises a usage alert. Notification-only;
	// the one type with no OS mutation behind it.
	TypeNotifyUsageThreshold TypeTag = "NOTIFY_USAGE_THRESHOLD"
)

// Record is one optimization instruction issued by the recommendation
// service. Records are transient: consumed once per batch, never mutated.
type Record struct {
	ID            string            `json:"id"`
	Type          TypeTag           `json:"type"`
	Target        string            `json:"target,omitempty"` // package identifier; empty for device-global instructions
	RequestedMode string            `json:"requested_mode"`
	Reason        string            `json:"reason,omitempty"`
	Parameters    map[string]string `json:"parameters,omitempty"`
}

// Param returns the named parameter, or def when absent.
func (r Record) Param(key, def string) string {
	if v, ok := r.Parameters[key]; ok {
		return v
	}
	return def
}

// Status classifies the outcome of one instruction.
type Status string

const (
	// StatusSuccess means the instruction's effect was applied.
	StatusSuccess Status = "success"

	// StatusFailed means the instruction was recognized but could not be
	// applied (bad payload, missing capability, OS error, timeout).
	StatusFailed Status = "failed"

	// StatusUnsupported means the instruction type is not in the taxonomy.
	// The contract with the recommendation service makes this unreachable
	// in normal operation; it exists so vocabulary drift degrades instead
	// of crashing.
	StatusUnsupported Status = "unsupported"
)

// Result is the audit outcome for exactly one Record. Immutable once
// recorded; the engine produces one Result per input Record, in order.
type Result struct {
	ActionableID string    `json:"actionable_id"`
	Status       Status    `json:"status"`
	Detail       string    `json:"detail,omitempty"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Success builds a success Result for the given record ID.
func Success(id, detail string) Result {
	return Result{ActionableID: id, Status: StatusSuccess, Detail: detail, CompletedAt: time.Now().UTC()}
}

// Failed builds a failure Result for the given record ID.
func Failed(id, detail string) Result {
	return Result{ActionableID: id, Status: StatusFailed, Detail: detail, CompletedAt: time.Now().UTC()}
}

// Failedf builds a failure Result with a formatted detail.
func Failedf(id, format string, args ...any) Result {
	return Failed(id, fmt.Sprintf(format, args...))
}

// Unsupported builds an unsupported Result for the given record ID.
func Unsupported(id, detail string) Result {
	return Result{ActionableID: id, Status: StatusUnsupported, Detail: detail, CompletedAt: time.Now().UTC()}
}

// Handler executes one instruction type at a given capability tier.
//
// Contract: Handle never panics and never returns an error. Every failure
// path is folded into a Failed result with a diagnostic detail, so the
// coordinator can always append exactly one outcome per record. At
// TierUnavailable a handler must short-circuit without touching the OS.
type Handler interface {
	Handle(ctx context.Context, rec Record, tier capability.Tier) Result
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, rec Record, tier capability.Tier) Result

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, rec Record, tier capability.Tier) Result {
	return f(ctx, rec, tier)
}
