// Package permission bridges the external permission-granting flow into
// the capability cache. The flow drops a grants file; this watcher diffs
// it on change and invalidates the affected capability domains. That
// invalidation is the only legal cache mutation besides first probe.
package permission

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"powerpilot/internal/capability"
	"powerpilot/internal/logging"
)

// grantDomains maps each privilege named in the grants file to the
// capability domains whose probed tier can change with it.
var grantDomains = map[string][]capability.Domain{
	"android.permission.CHANGE_APP_IDLE_STATE": {capability.DomainAppStandby},
	"android.permission.MANAGE_NETWORK_POLICY": {capability.DomainNetPolicy},
	"android.permission.FORCE_STOP_PACKAGES":   {capability.DomainProcessControl},
	"android.permission.KILL_BACKGROUND_PROCESSES": {capability.DomainProcessControl},
	"android.permission.DEVICE_POWER":              {capability.DomainWakeSource},
	"android.permission.UPDATE_APP_OPS_STATS":      {capability.DomainWakeSource, capability.DomainNetPolicy},
	"android.permission.SET_PROCESS_LIMIT":         {capability.DomainCPUControl},
	"android.permission.POST_NOTIFICATIONS":        {capability.DomainNotify},
}

// grantsFile is the wire form of the grants file.
type grantsFile struct {
	Granted []string `json:"granted"`
}

// Watcher watches the grants file and invalidates probed tiers when the
// grant set changes.
type Watcher struct {
	mu      sync.RWMutex
	watcher *fsnotify.Watcher
	prober  *capability.Prober
	path    string

	debounceDur time.Duration
	pendingAt   time.Time // last unprocessed event; zero means none
	granted     map[string]bool
	running     bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatcher creates a watcher over the given grants file path.
func NewWatcher(path string, prober *capability.Prober) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		watcher:     fw,
		prober:      prober,
		path:        path,
		debounceDur: 500 * time.Millisecond, // Debounce rapid rewrites
		granted:     make(map[string]bool),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the watch loop runs in its own
// goroutine until Stop. The current grants file, if any, seeds the
// baseline without invalidating anything.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.PermissionWarn("failed to create grants dir %s: %v (continuing)", dir, err)
	}
	// Watch the directory, not the file: permission flows typically
	// replace the file atomically, which drops a file-level watch.
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	if granted, err := w.load(); err == nil {
		w.mu.Lock()
		w.granted = granted
		w.mu.Unlock()
	}

	go w.loop()
	logging.Permission("watching grants file %s", w.path)
	return nil
}

// Stop ends the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
}

func (w *Watcher) loop() {
	defer close(w.doneCh)

	// Debounce is trailing-edge: each event restamps pendingAt and the
	// ticker processes once events settle past the window, so the final
	// state of a rapid save sequence is always the one diffed. A
	// leading-edge drop would lose the trailing write of a
	// create+write pair.
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			w.pendingAt = time.Now()
			w.mu.Unlock()
		case <-ticker.C:
			w.mu.Lock()
			pending := !w.pendingAt.IsZero() && time.Since(w.pendingAt) >= w.debounceDur
			if pending {
				w.pendingAt = time.Time{}
			}
			w.mu.Unlock()

			if pending {
				w.handleChange()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.PermissionWarn("watch error: %v", err)
		}
	}
}

// handleChange reloads the grants file, diffs the grant set, and
// invalidates the domains behind every changed grant.
func (w *Watcher) handleChange() {
	granted, err := w.load()
	if err != nil {
		logging.PermissionWarn("failed to reload grants: %v", err)
		return
	}

	w.mu.Lock()
	previous := w.granted
	w.granted = granted
	w.mu.Unlock()

	changed := diffGrants(previous, granted)
	if len(changed) == 0 {
		logging.PermissionDebug("grants file rewritten without changes")
		return
	}

	domains := make(map[capability.Domain]bool)
	for _, grant := range changed {
		mapped, known := grantDomains[grant]
		if !known {
			logging.PermissionDebug("ignoring unknown grant %q", grant)
			continue
		}
		for _, d := range mapped {
			domains[d] = true
		}
	}
	for d := range domains {
		w.prober.Invalidate(d)
	}
	logging.Permission("grant change (%d grants) invalidated %d domain(s)", len(changed), len(domains))
}

func (w *Watcher) load() (map[string]bool, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]bool), nil
		}
		return nil, err
	}
	var gf grantsFile
	if err := json.Unmarshal(data, &gf); err != nil {
		return nil, fmt.Errorf("parse grants: %w", err)
	}
	granted := make(map[string]bool, len(gf.Granted))
	for _, g := range gf.Granted {
		granted[g] = true
	}
	return granted, nil
}

// diffGrants returns grants present in exactly one of the two sets.
func diffGrants(before, after map[string]bool) []string {
	var changed []string
	for g := range after {
		if !before[g] {
			changed = append(changed, g)
		}
	}
	for g := range before {
		if !after[g] {
			changed = append(changed, g)
		}
	}
	return changed
}
