package capability

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"powerpilot/internal/logging"
	"powerpilot/internal/platform"
)

// Prober determines and caches the usable access tier per capability
// domain. The cache is process-wide state: populated on first probe,
// mutated only by Invalidate (driven by the external permission flow).
// Once a domain is cached Unavailable, no further mechanism checks run
// for it until an invalidation, so a failing legacy lookup is paid at
// most once per grant state.
type Prober struct {
	mu     sync.RWMutex
	bridge platform.Bridge
	tiers  map[Domain]Tier

	// gens counts invalidations per domain. A probe captures the
	// generation before its mechanism checks and only caches the result
	// if the generation is unchanged afterwards, so a result computed
	// against pre-invalidation grant state can never survive the
	// invalidation that raced it.
	gens map[Domain]uint64

	// group collapses concurrent probes of the same domain so the
	// potentially expensive fallback check never runs twice at once.
	group singleflight.Group
}

// NewProber creates a Prober over the given bridge with an empty cache.
func NewProber(bridge platform.Bridge) *Prober {
	return &Prober{
		bridge: bridge,
		tiers:  make(map[Domain]Tier),
		gens:   make(map[Domain]uint64),
	}
}

// Probe returns the cached tier for a domain, running the mechanism
// checks on first use. Unknown domains are Unavailable.
func (p *Prober) Probe(ctx context.Context, domain Domain) Tier {
	if !Known(domain) {
		return TierUnavailable
	}

	p.mu.RLock()
	tier, ok := p.tiers[domain]
	p.mu.RUnlock()
	if ok {
		return tier
	}

	v, _, _ := p.group.Do(string(domain), func() (any, error) {
		for {
			// Re-check under the flight: another caller may have filled
			// the cache between our read and the flight starting.
			p.mu.RLock()
			tier, ok := p.tiers[domain]
			gen := p.gens[domain]
			p.mu.RUnlock()
			if ok {
				return tier, nil
			}

			tier = p.runProbe(ctx, domain)

			p.mu.Lock()
			if p.gens[domain] != gen {
				// An invalidation landed while the checks ran; the
				// result reflects pre-invalidation grant state and must
				// not enter the cache.
				p.mu.Unlock()
				logging.CapabilityDebug("domain %s invalidated mid-probe, re-probing", domain)
				continue
			}
			p.tiers[domain] = tier
			p.mu.Unlock()

			logging.Capability("Probed domain %s -> %s", domain, tier)
			return tier, nil
		}
	})
	return v.(Tier)
}

// runProbe walks the domain's tier plan in order. A clean check settles
// the tier; any failed check moves on to the next mechanism. Permission
// denials are the expected reason to fall back; unexpected errors are
// logged but classified the same way, since either way the mechanism is
// not usable right now and a fresh grant state re-probes it.
func (p *Prober) runProbe(ctx context.Context, domain Domain) Tier {
	timer := logging.StartTimer(logging.CategoryCapability, "probe "+string(domain))
	defer timer.Stop()

	plan := tierPlan[domain]
	for i, mech := range plan {
		err := p.bridge.Check(ctx, mech)
		if err == nil {
			if i == 0 {
				return TierPrimary
			}
			return TierFallback
		}
		switch {
		case platform.IsPermissionDenied(err):
			logging.CapabilityDebug("domain %s: %s denied: %v", domain, mech, err)
		case platform.IsMechanismMissing(err):
			logging.CapabilityDebug("domain %s: %s missing: %v", domain, mech, err)
		default:
			logging.CapabilityWarn("domain %s: %s check failed: %v", domain, mech, err)
		}
	}
	return TierUnavailable
}

// Invalidate drops the cached tier for a domain. Only the external
// permission-granting flow is expected to call this; the next Probe
// re-runs the mechanism checks.
func (p *Prober) Invalidate(domain Domain) {
	p.mu.Lock()
	_, had := p.tiers[domain]
	delete(p.tiers, domain)
	p.gens[domain]++
	p.mu.Unlock()

	if had {
		logging.Capability("Invalidated cached tier for domain %s", domain)
	}
}

// InvalidateAll drops every cached tier.
func (p *Prober) InvalidateAll() {
	p.mu.Lock()
	p.tiers = make(map[Domain]Tier)
	for _, d := range Domains() {
		p.gens[d]++
	}
	p.mu.Unlock()

	logging.Capability("Invalidated all cached tiers")
}

// Snapshot returns a copy of the current cache. Domains never probed are
// absent.
func (p *Prober) Snapshot() map[Domain]Tier {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[Domain]Tier, len(p.tiers))
	for d, t := range p.tiers {
		out[d] = t
	}
	return out
}
