// Package platform is the OS access seam for the execution engine. A
// Bridge exposes one method per control mechanism; the capability prober
// checks mechanisms, the handlers invoke them. Everything above this
// package is OS-independent.
package platform

import (
	"context"
	"errors"
	"time"
)

// Mechanism names one concrete OS access path. A capability domain owns
// an ordered list of mechanisms (primary first, then the legacy
// alternate where one exists).
type Mechanism string

const (
	MechStandbyBucket  Mechanism = "usagestats.set_standby_bucket"
	MechSetInactive    Mechanism = "am.set_inactive" // legacy idle-state path
	MechNetPolicy      Mechanism = "netpolicy.restrict_background"
	MechAppOpsRun      Mechanism = "appops.run_any_in_background"
	MechForceStop      Mechanism = "am.force_stop"
	MechKillBackground Mechanism = "am.kill_background"
	MechWakeDump       Mechanism = "power.wake_sources"
	MechAppOpsWakeLock Mechanism = "appops.wake_lock"
	MechCgroupCPU      Mechanism = "cgroup.cpu_shares"
	MechRenice         Mechanism = "proc.renice"
	MechNotify         Mechanism = "notify.local"
)

// Classification sentinels for bridge errors. IsPermissionDenied drives
// the prober's fallback decision; IsMechanismMissing marks platform
// revisions that lack the mechanism entirely.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrMechanismMissing = errors.New("mechanism missing")
)

// IsPermissionDenied reports whether err is permission-class.
func IsPermissionDenied(err error) bool { return errors.Is(err, ErrPermissionDenied) }

// IsMechanismMissing reports whether err means the mechanism does not
// exist on this platform revision.
func IsMechanismMissing(err error) bool { return errors.Is(err, ErrMechanismMissing) }

// WakeSource describes one wake source held on behalf of a package.
type WakeSource struct {
	Name     string        `json:"name"`
	Count    int           `json:"count"`
	HeldFor  time.Duration `json:"held_for"`
	Inactive bool          `json:"inactive"`
}

// Bridge is implemented by anything that can reach the device control
// surfaces. All methods honor context cancellation; errors are
// classified with ErrPermissionDenied / ErrMechanismMissing where the
// underlying failure allows it.
//
// Check performs a side-effect-free availability test of a mechanism and
// is the only method the prober calls. The remaining methods apply
// effects and are only reached through handlers at a probed tier.
type Bridge interface {
	Check(ctx context.Context, m Mechanism) error

	// Idle-state control.
	SetStandbyBucket(ctx context.Context, pkg, bucket string) error
	SetAppInactive(ctx context.Context, pkg string, inactive bool) error

	// Background-transfer control.
	DenyBackgroundData(ctx context.Context, pkg string) error
	AllowBackgroundData(ctx context.Context, pkg string) error
	ExemptBackgroundData(ctx context.Context, pkg string) error
	SetBackgroundRunOp(ctx context.Context, pkg, op string) error

	// Process termination.
	ForceStop(ctx context.Context, pkg string) error
	KillBackground(ctx context.Context, pkg string) error

	// Wake-source management.
	WakeSources(ctx context.Context, pkg string) ([]WakeSource, error)
	ReleaseWakeSources(ctx context.Context, pkg string) error
	SetWakeLockOp(ctx context.Context, pkg, op string) error

	// CPU/priority throttling.
	SetCPUShares(ctx context.Context, pkg string, shares int) error
	Renice(ctx context.Context, pkg string, niceness int) error

	// Notification-only surface.
	PostNotification(ctx context.Context, title, body string) error
}
