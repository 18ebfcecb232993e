package platform

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"powerpilot/internal/logging"
)

// ShellBridge reaches the device control surfaces through the platform
// shell (`cmd`, `am`, `appops`, `dumpsys`). Whether those commands are
// honored depends on installation privilege and granted permissions;
// the prober sorts that out per domain, this type just runs commands
// and classifies their failures.
type ShellBridge struct {
	// ProbePackage is a package that always exists, used as the subject
	// of read-only mechanism checks. Defaults to "android".
	ProbePackage string

	// Timeout bounds each individual shell call.
	Timeout time.Duration
}

// NewShellBridge creates a ShellBridge with defaults applied.
func NewShellBridge(probePackage string, timeout time.Duration) *ShellBridge {
	if probePackage == "" {
		probePackage = "android"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ShellBridge{ProbePackage: probePackage, Timeout: timeout}
}

// run executes one shell command under the bridge timeout and folds the
// outcome into a classified error.
func (b *ShellBridge) run(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	logging.PlatformDebug("exec: %s %s", name, strings.Join(args, " "))
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	output := string(out)
	if err != nil {
		cerr := classify(output, err)
		logging.PlatformWarn("exec failed: %s %s: %v", name, strings.Join(args, " "), cerr)
		return output, cerr
	}
	// Some platform commands report denial with exit code 0.
	if denied(output) {
		cerr := fmt.Errorf("%w: %s", ErrPermissionDenied, firstLine(output))
		logging.PlatformWarn("exec denied: %s %s: %v", name, strings.Join(args, " "), cerr)
		return output, cerr
	}
	return output, nil
}

// classify maps a command failure onto the bridge's error taxonomy.
func classify(output string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("command timed out: %w", err)
	}
	switch {
	case denied(output):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, firstLine(output))
	case missing(output) || errors.Is(err, exec.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrMechanismMissing, firstLine(output))
	default:
		return fmt.Errorf("command failed: %w: %s", err, firstLine(output))
	}
}

func denied(output string) bool {
	for _, marker := range []string{
		"Permission denial",
		"SecurityException",
		"requires android.permission",
		"Operation not permitted",
		"not allowed to",
	} {
		if strings.Contains(output, marker) {
			return true
		}
	}
	return false
}

func missing(output string) bool {
	for _, marker := range []string{
		"Unknown command",
		"unknown command",
		"No shell command implementation",
		"not found",
		"No such file or directory",
	} {
		if strings.Contains(output, marker) {
			return true
		}
	}
	return false
}

func firstLine(output string) string {
	output = strings.TrimSpace(output)
	if i := strings.IndexByte(output, '\n'); i >= 0 {
		output = output[:i]
	}
	if len(output) > 200 {
		output = output[:200]
	}
	return output
}

// checkCommands maps each mechanism to a read-only command that fails
// the same way the mechanism's mutating command would. Probing must
// never change device state.
func (b *ShellBridge) checkCommand(m Mechanism) ([]string, bool) {
	p := b.ProbePackage
	switch m {
	case MechStandbyBucket:
		return []string{"am", "get-standby-bucket", p}, true
	case MechSetInactive:
		return []string{"am", "get-inactive", p}, true
	case MechNetPolicy:
		return []string{"cmd", "netpolicy", "get", "restrict-background"}, true
	case MechAppOpsRun:
		return []string{"appops", "get", p, "RUN_ANY_IN_BACKGROUND"}, true
	case MechForceStop:
		return []string{"dumpsys", "activity", "processes"}, true
	case MechKillBackground:
		return []string{"am", "get-current-user"}, true
	case MechWakeDump:
		return []string{"dumpsys", "power"}, true
	case MechAppOpsWakeLock:
		return []string{"appops", "get", p, "WAKE_LOCK"}, true
	case MechCgroupCPU:
		return []string{"cat", "/dev/cpuctl/background/cpu.shares"}, true
	case MechRenice:
		return []string{"sh", "-c", "command -v renice"}, true
	case MechNotify:
		// Local notification posting needs no privilege.
		return nil, false
	default:
		return nil, false
	}
}

// Check runs the mechanism's read-only availability test.
func (b *ShellBridge) Check(ctx context.Context, m Mechanism) error {
	cmd, ok := b.checkCommand(m)
	if !ok {
		return nil
	}
	_, err := b.run(ctx, cmd[0], cmd[1:]...)
	return err
}

func (b *ShellBridge) SetStandbyBucket(ctx context.Context, pkg, bucket string) error {
	_, err := b.run(ctx, "am", "set-standby-bucket", pkg, bucket)
	return err
}

func (b *ShellBridge) SetAppInactive(ctx context.Context, pkg string, inactive bool) error {
	_, err := b.run(ctx, "am", "set-inactive", pkg, strconv.FormatBool(inactive))
	return err
}

func (b *ShellBridge) DenyBackgroundData(ctx context.Context, pkg string) error {
	_, err := b.run(ctx, "cmd", "netpolicy", "add", "restrict-background-blacklist", pkg)
	return err
}

func (b *ShellBridge) AllowBackgroundData(ctx context.Context, pkg string) error {
	_, err := b.run(ctx, "cmd", "netpolicy", "remove", "restrict-background-blacklist", pkg)
	return err
}

func (b *ShellBridge) ExemptBackgroundData(ctx context.Context, pkg string) error {
	_, err := b.run(ctx, "cmd", "netpolicy", "add", "restrict-background-whitelist", pkg)
	return err
}

func (b *ShellBridge) SetBackgroundRunOp(ctx context.Context, pkg, op string) error {
	_, err := b.run(ctx, "appops", "set", pkg, "RUN_ANY_IN_BACKGROUND", op)
	return err
}

func (b *ShellBridge) ForceStop(ctx context.Context, pkg string) error {
	_, err := b.run(ctx, "am", "force-stop", pkg)
	return err
}

func (b *ShellBridge) KillBackground(ctx context.Context, pkg string) error {
	_, err := b.run(ctx, "am", "kill", pkg)
	return err
}

func (b *ShellBridge) WakeSources(ctx context.Context, pkg string) ([]WakeSource, error) {
	out, err := b.run(ctx, "dumpsys", "power")
	if err != nil {
		return nil, err
	}
	return parseWakeSources(out, pkg), nil
}

func (b *ShellBridge) ReleaseWakeSources(ctx context.Context, pkg string) error {
	_, err := b.run(ctx, "am", "set-inactive", pkg, "true")
	return err
}

func (b *ShellBridge) SetWakeLockOp(ctx context.Context, pkg, op string) error {
	_, err := b.run(ctx, "appops", "set", pkg, "WAKE_LOCK", op)
	return err
}

func (b *ShellBridge) SetCPUShares(ctx context.Context, pkg string, shares int) error {
	_, err := b.run(ctx, "sh", "-c",
		fmt.Sprintf("echo %d > /dev/cpuctl/%s/cpu.shares", shares, pkg))
	return err
}

func (b *ShellBridge) Renice(ctx context.Context, pkg string, niceness int) error {
	_, err := b.run(ctx, "sh", "-c",
		fmt.Sprintf("renice -n %d -p $(pidof %s)", niceness, pkg))
	return err
}

func (b *ShellBridge) PostNotification(ctx context.Context, title, body string) error {
	_, err := b.run(ctx, "cmd", "notification", "post", "-t", title, "powerpilot", body)
	return err
}

// parseWakeSources extracts wake locks attributed to pkg from dumpsys
// power output. Lines look like:
//
//	PARTIAL_WAKE_LOCK 'JobScheduler' ... (uid=..., pkg=com.example.app)
func parseWakeSources(output, pkg string) []WakeSource {
	var sources []WakeSource
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "WAKE_LOCK") || !strings.Contains(line, pkg) {
			continue
		}
		name := line
		if start := strings.IndexByte(line, '\''); start >= 0 {
			if end := strings.IndexByte(line[start+1:], '\''); end >= 0 {
				name = line[start+1 : start+1+end]
			}
		}
		sources = append(sources, WakeSource{Name: name, Count: 1})
	}
	return sources
}
