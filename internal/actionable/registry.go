package actionable

import (
	"fmt"
	"sort"
	"sync"

	"powerpilot/internal/capability"
	"powerpilot/internal/logging"
)

// binding ties one instruction type to its handler, capability domain,
// and required fields.
type binding struct {
	handler  Handler
	domain   capability.Domain
	required []string
}

// Registry holds the type -> handler bindings for the closed taxonomy.
// Registration happens at initialization time only; lookups are
// thread-safe afterwards.
type Registry struct {
	mu       sync.RWMutex
	bindings map[TypeTag]*binding
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[TypeTag]*binding)}
}

// Register binds an instruction type to a handler and its capability
// domain. required names the fields that must be present on a record of
// this type: "id" and "requested_mode" refer to the record fields of the
// same name, anything else is a key that must exist in Parameters.
//
// Target presence is deliberately not a registry concern: a blank target
// is a payload defect the bound handler reports as Failed, not a
// contract violation (see the handler contract).
func (r *Registry) Register(t TypeTag, domain capability.Domain, h Handler, required ...string) error {
	if t == "" {
		return fmt.Errorf("actionable type cannot be empty")
	}
	if h == nil {
		return fmt.Errorf("%w: %s", ErrNilHandler, t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bindings[t]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, t)
	}
	r.bindings[t] = &binding{handler: h, domain: domain, required: required}

	logging.RegistryDebug("Registered actionable type %s (domain=%s, required=%v)", t, domain, required)
	return nil
}

// MustRegister registers a binding and panics on error. Use for static
// registration at init time.
func (r *Registry) MustRegister(t TypeTag, domain capability.Domain, h Handler, required ...string) {
	if err := r.Register(t, domain, h, required...); err != nil {
		panic(fmt.Sprintf("failed to register actionable type %s: %v", t, err))
	}
}

// Resolve returns the handler for a type, or nil if not registered.
func (r *Registry) Resolve(t TypeTag) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.bindings[t]; ok {
		return b.handler
	}
	return nil
}

// DomainOf returns the capability domain a type executes in.
func (r *Registry) DomainOf(t TypeTag) (capability.Domain, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.bindings[t]; ok {
		return b.domain, true
	}
	return "", false
}

// Has returns true if the type is registered.
func (r *Registry) Has(t TypeTag) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bindings[t]
	return ok
}

// Types returns all registered type tags, sorted.
func (r *Registry) Types() []TypeTag {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]TypeTag, 0, len(r.bindings))
	for t := range r.bindings {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Count returns the number of registered types.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}

// Validate applies closed-world validation to a record: the type must be
// registered and every required field must be present. An unregistered
// type is always a ValidationError wrapping ErrUnknownType, never a
// best-effort attempt, so the recommendation service can never push an
// unhandled action into OS-facing code.
func (r *Registry) Validate(rec Record) error {
	r.mu.RLock()
	b, ok := r.bindings[rec.Type]
	r.mu.RUnlock()

	if !ok {
		return &ValidationError{Type: rec.Type, Err: ErrUnknownType}
	}
	for _, field := range b.required {
		if !hasField(rec, field) {
			return &ValidationError{Type: rec.Type, Field: field, Err: ErrMissingField}
		}
	}
	return nil
}

func hasField(rec Record, field string) bool {
	switch field {
	case "id":
		return rec.ID != ""
	case "requested_mode":
		return rec.RequestedMode != ""
	default:
		_, ok := rec.Parameters[field]
		return ok
	}
}
