// Package capability models the per-domain OS access tiers and the
// cached prober that determines them. A domain is a logical control
// surface (idle-state control, background-transfer control, ...) that
// can be reachable through a primary mechanism, a legacy fallback, or
// not at all on the host device.
package capability

import "powerpilot/internal/platform"

// Domain names one logical OS control surface.
type Domain string

const (
	DomainAppStandby     Domain = "app_standby"
	DomainNetPolicy      Domain = "net_policy"
	DomainProcessControl Domain = "process_control"
	DomainWakeSource     Domain = "wake_source"
	DomainCPUControl     Domain = "cpu_control"
	DomainNotify         Domain = "notify"
)

// Tier is the degree of access currently available for a domain.
type Tier string

const (
	// TierPrimary means the domain's preferred mechanism is usable.
	TierPrimary Tier = "primary"

	// TierFallback means only the legacy/alternate mechanism is usable.
	TierFallback Tier = "fallback"

	// TierUnavailable means no mechanism is usable; handlers must
	// short-circuit without attempting any OS call.
	TierUnavailable Tier = "unavailable"
)

// tierPlan lists the mechanisms to check per domain, primary first.
// Modeling the version-dependent access paths as an explicit ordered
// list keeps the fallback decision out of ad hoc error handling: each
// entry gets one deterministic usable/unusable classification.
var tierPlan = map[Domain][]platform.Mechanism{
	DomainAppStandby:     {platform.MechStandbyBucket, platform.MechSetInactive},
	DomainNetPolicy:      {platform.MechNetPolicy, platform.MechAppOpsRun},
	DomainProcessControl: {platform.MechForceStop, platform.MechKillBackground},
	DomainWakeSource:     {platform.MechWakeDump, platform.MechAppOpsWakeLock},
	DomainCPUControl:     {platform.MechCgroupCPU, platform.MechRenice},
	DomainNotify:         {platform.MechNotify},
}

// Domains returns every known domain in a stable order.
func Domains() []Domain {
	return []Domain{
		DomainAppStandby,
		DomainNetPolicy,
		DomainProcessControl,
		DomainWakeSource,
		DomainCPUControl,
		DomainNotify,
	}
}

// Known reports whether d is a defined domain.
func Known(d Domain) bool {
	_, ok := tierPlan[d]
	return ok
}
