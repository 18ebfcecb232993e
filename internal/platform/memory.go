package platform

import (
	"context"
	"sync"
)

// MemoryBridge applies effects to in-memory state instead of the device.
// It backs the CLI's --dry-run mode and the engine's tests. Mechanisms
// can be made to fail by seeding errors with Deny, which lets tests and
// rehearsals exercise every tier combination without a device.
type MemoryBridge struct {
	mu sync.Mutex

	denied map[Mechanism]error

	// Recorded effects, keyed by package where applicable.
	Buckets          map[string]string
	Inactive         map[string]bool
	BackgroundPolicy map[string]string // deny / allow / exempt
	BackgroundOps    map[string]string
	Stopped          []string
	Killed           []string
	WakeLockOps      map[string]string
	Released         []string
	CPUShares        map[string]int
	Niceness         map[string]int
	Notifications    []string

	wakeSources map[string][]WakeSource

	checkCalls  int
	effectCalls int
}

// NewMemoryBridge creates an empty MemoryBridge with every mechanism
// available.
func NewMemoryBridge() *MemoryBridge {
	return &MemoryBridge{
		denied:           make(map[Mechanism]error),
		Buckets:          make(map[string]string),
		Inactive:         make(map[string]bool),
		BackgroundPolicy: make(map[string]string),
		BackgroundOps:    make(map[string]string),
		WakeLockOps:      make(map[string]string),
		CPUShares:        make(map[string]int),
		Niceness:         make(map[string]int),
		wakeSources:      make(map[string][]WakeSource),
	}
}

// Deny makes a mechanism fail with the given error, both under Check and
// when a handler invokes it.
func (b *MemoryBridge) Deny(m Mechanism, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.denied[m] = err
}

// Allow clears a previous denial.
func (b *MemoryBridge) Allow(m Mechanism) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.denied, m)
}

// SetWakeSources seeds the wake sources reported for a package.
func (b *MemoryBridge) SetWakeSources(pkg string, sources []WakeSource) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wakeSources[pkg] = sources
}

// CheckCalls returns how many probe checks have run.
func (b *MemoryBridge) CheckCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.checkCalls
}

// EffectCalls returns how many effect methods have run. Probe checks are
// not counted: this is the "OS calls attempted" number the audit
// invariants are stated against.
func (b *MemoryBridge) EffectCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.effectCalls
}

func (b *MemoryBridge) Check(ctx context.Context, m Mechanism) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkCalls++
	return b.denied[m]
}

// effect consumes one effect call against mechanism m, honoring seeded
// denials and context cancellation.
func (b *MemoryBridge) effect(ctx context.Context, m Mechanism) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.effectCalls++
	return b.denied[m]
}

func (b *MemoryBridge) SetStandbyBucket(ctx context.Context, pkg, bucket string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.effect(ctx, MechStandbyBucket); err != nil {
		return err
	}
	b.Buckets[pkg] = bucket
	return nil
}

func (b *MemoryBridge) SetAppInactive(ctx context.Context, pkg string, inactive bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.effect(ctx, MechSetInactive); err != nil {
		return err
	}
	b.Inactive[pkg] = inactive
	return nil
}

func (b *MemoryBridge) DenyBackgroundData(ctx context.Context, pkg string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.effect(ctx, MechNetPolicy); err != nil {
		return err
	}
	b.BackgroundPolicy[pkg] = "deny"
	return nil
}

func (b *MemoryBridge) AllowBackgroundData(ctx context.Context, pkg string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.effect(ctx, MechNetPolicy); err != nil {
		return err
	}
	b.BackgroundPolicy[pkg] = "allow"
	return nil
}

func (b *MemoryBridge) ExemptBackgroundData(ctx context.Context, pkg string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.effect(ctx, MechNetPolicy); err != nil {
		return err
	}
	b.BackgroundPolicy[pkg] = "exempt"
	return nil
}

func (b *MemoryBridge) SetBackgroundRunOp(ctx context.Context, pkg, op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.effect(ctx, MechAppOpsRun); err != nil {
		return err
	}
	b.BackgroundOps[pkg] = op
	return nil
}

func (b *MemoryBridge) ForceStop(ctx context.Context, pkg string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.effect(ctx, MechForceStop); err != nil {
		return err
	}
	b.Stopped = append(b.Stopped, pkg)
	return nil
}

func (b *MemoryBridge) KillBackground(ctx context.Context, pkg string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.effect(ctx, MechKillBackground); err != nil {
		return err
	}
	b.Killed = append(b.Killed, pkg)
	return nil
}

func (b *MemoryBridge) WakeSources(ctx context.Context, pkg string) ([]WakeSource, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.effect(ctx, MechWakeDump); err != nil {
		return nil, err
	}
	return b.wakeSources[pkg], nil
}

func (b *MemoryBridge) ReleaseWakeSources(ctx context.Context, pkg string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.effect(ctx, MechWakeDump); err != nil {
		return err
	}
	b.Released = append(b.Released, pkg)
	b.wakeSources[pkg] = nil
	return nil
}

func (b *MemoryBridge) SetWakeLockOp(ctx context.Context, pkg, op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.effect(ctx, MechAppOpsWakeLock); err != nil {
		return err
	}
	b.WakeLockOps[pkg] = op
	return nil
}

func (b *MemoryBridge) SetCPUShares(ctx context.Context, pkg string, shares int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.effect(ctx, MechCgroupCPU); err != nil {
		return err
	}
	b.CPUShares[pkg] = shares
	return nil
}

func (b *MemoryBridge) Renice(ctx context.Context, pkg string, niceness int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.effect(ctx, MechRenice); err != nil {
		return err
	}
	b.Niceness[pkg] = niceness
	return nil
}

func (b *MemoryBridge) PostNotification(ctx context.Context, title, body string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.effect(ctx, MechNotify); err != nil {
		return err
	}
	b.Notifications = append(b.Notifications, title+": "+body)
	return nil
}
