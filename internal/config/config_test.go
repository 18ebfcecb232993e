package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, workspace, content string) {
	t.Helper()
	path := Path(workspace)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "powerpilot" {
		t.Errorf("name = %q", cfg.Name)
	}
	if cfg.Execution.MaxBatchSize != 100 {
		t.Errorf("max_batch_size = %d, want 100", cfg.Execution.MaxBatchSize)
	}
	if got := cfg.Execution.HandlerTimeoutDuration(); got != 10*time.Second {
		t.Errorf("handler timeout = %v, want 10s", got)
	}
	if cfg.Platform.ProbePackage != "android" {
		t.Errorf("probe_package = %q", cfg.Platform.ProbePackage)
	}
	if cfg.Server.Addr != "127.0.0.1:7715" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
}

func TestLoadOverrides(t *testing.T) {
	ws := t.TempDir()
	writeConfig(t, ws, `
execution:
  handler_timeout: 2s
  max_batch_size: 10
platform:
  probe_package: com.example.probe
server:
  addr: 127.0.0.1:9999
logging:
  debug_mode: true
  level: debug
`)

	cfg, err := Load(ws)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Execution.HandlerTimeoutDuration(); got != 2*time.Second {
		t.Errorf("handler timeout = %v, want 2s", got)
	}
	if cfg.Execution.MaxBatchSize != 10 {
		t.Errorf("max_batch_size = %d, want 10", cfg.Execution.MaxBatchSize)
	}
	if cfg.Platform.ProbePackage != "com.example.probe" {
		t.Errorf("probe_package = %q", cfg.Platform.ProbePackage)
	}
	if cfg.Server.Addr != "127.0.0.1:9999" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	opts := cfg.Logging.Options()
	if !opts.DebugMode || opts.Level != "debug" {
		t.Errorf("logging options = %+v", opts)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	ws := t.TempDir()
	writeConfig(t, ws, "execution:\n  max_batch_size: 5\n")

	cfg, err := Load(ws)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Execution.MaxBatchSize != 5 {
		t.Errorf("max_batch_size = %d, want 5", cfg.Execution.MaxBatchSize)
	}
	if cfg.Execution.HandlerTimeout != "10s" {
		t.Errorf("handler_timeout = %q, want default", cfg.Execution.HandlerTimeout)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	ws := t.TempDir()
	writeConfig(t, ws, "execution: [not a map")
	if _, err := Load(ws); err == nil {
		t.Error("Load succeeded on malformed yaml")
	}
}

func TestLoadInvalidTimeout(t *testing.T) {
	ws := t.TempDir()
	writeConfig(t, ws, "execution:\n  handler_timeout: soonish\n")
	if _, err := Load(ws); err == nil {
		t.Error("Load succeeded with unparseable handler_timeout")
	}
}

func TestLoadNegativeBatchSize(t *testing.T) {
	ws := t.TempDir()
	writeConfig(t, ws, "execution:\n  max_batch_size: -1\n")
	if _, err := Load(ws); err == nil {
		t.Error("Load succeeded with negative max_batch_size")
	}
}

func TestDatabasePathResolution(t *testing.T) {
	cfg := Default()
	got := cfg.DatabasePath("/home/user/ws")
	want := filepath.Join("/home/user/ws", ".powerpilot", "history.db")
	if got != want {
		t.Errorf("DatabasePath = %q, want %q", got, want)
	}

	cfg.History.DatabasePath = "/var/lib/powerpilot/history.db"
	if got := cfg.DatabasePath("/home/user/ws"); got != "/var/lib/powerpilot/history.db" {
		t.Errorf("absolute DatabasePath = %q", got)
	}
}
