package actionable

import (
	"context"
	"errors"
	"testing"

	"powerpilot/internal/capability"
)

func noopHandler() Handler {
	return HandlerFunc(func(ctx context.Context, rec Record, tier capability.Tier) Result {
		return Success(rec.ID, "ok")
	})
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if reg.Count() != 0 {
		t.Errorf("new registry should be empty, got %d types", reg.Count())
	}
}

func TestRegisterAndResolve(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(TypeSetStandbyBucket, capability.DomainAppStandby, noopHandler()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if h := reg.Resolve(TypeSetStandbyBucket); h == nil {
		t.Fatal("Resolve returned nil for registered type")
	}
	if h := reg.Resolve(TypeThrottleCPU); h != nil {
		t.Error("Resolve returned a handler for an unregistered type")
	}

	domain, ok := reg.DomainOf(TypeSetStandbyBucket)
	if !ok || domain != capability.DomainAppStandby {
		t.Errorf("DomainOf = %q, %v; want %q, true", domain, ok, capability.DomainAppStandby)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(TypeForceStopApp, capability.DomainProcessControl, noopHandler()); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	err := reg.Register(TypeForceStopApp, capability.DomainProcessControl, noopHandler())
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register("", capability.DomainNotify, noopHandler()); err == nil {
		t.Error("expected error for empty type")
	}
	if err := reg.Register(TypeNotifyUsageThreshold, capability.DomainNotify, nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("expected ErrNilHandler, got %v", err)
	}
}

func TestValidateClosedWorld(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(TypeSetStandbyBucket, capability.DomainAppStandby, noopHandler(), "id")
	reg.MustRegister(TypeNotifyUsageThreshold, capability.DomainNotify, noopHandler(), "id", "metric", "threshold")

	tests := []struct {
		name    string
		rec     Record
		wantErr error
	}{
		{
			name: "registered type, all fields",
			rec:  Record{ID: "a-1", Type: TypeSetStandbyBucket, Target: "com.example.app"},
		},
		{
			name:    "unregistered type",
			rec:     Record{ID: "a-2", Type: "DEFRAG_STORAGE"},
			wantErr: ErrUnknownType,
		},
		{
			name:    "empty type",
			rec:     Record{ID: "a-3"},
			wantErr: ErrUnknownType,
		},
		{
			name:    "missing id",
			rec:     Record{Type: TypeSetStandbyBucket},
			wantErr: ErrMissingField,
		},
		{
			name:    "missing required parameter",
			rec:     Record{ID: "a-4", Type: TypeNotifyUsageThreshold, Parameters: map[string]string{"metric": "battery"}},
			wantErr: ErrMissingField,
		},
		{
			name: "required parameters present",
			rec: Record{ID: "a-5", Type: TypeNotifyUsageThreshold,
				Parameters: map[string]string{"metric": "battery", "threshold": "80%"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Validate(tt.rec)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate failed: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate = %v, want %v", err, tt.wantErr)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
		})
	}
}

func TestTypes(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(TypeThrottleCPU, capability.DomainCPUControl, noopHandler())
	reg.MustRegister(TypeForceStopApp, capability.DomainProcessControl, noopHandler())

	types := reg.Types()
	if len(types) != 2 {
		t.Fatalf("Types returned %d entries, want 2", len(types))
	}
	if types[0] != TypeForceStopApp || types[1] != TypeThrottleCPU {
		t.Errorf("Types not sorted: %v", types)
	}
}
