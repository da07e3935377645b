package eventbus

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"eventcore/internal/pkg/errorsx"

	"github.com/go-playground/validator/v10"
)

// SchemaKey identifies one accepted payload shape for a (type, version) pair.
type SchemaKey struct {
	Type    string
	Version int
}

// Schema pairs a zero value of the payload struct (used to allocate a fresh
// instance per Validate call) with the validator tags on its fields.
type Schema struct {
	// New returns a fresh pointer to the payload struct for this schema.
	New func() any
}

// Registry is the authoritative, closed-at-process-start set of (type,
// version) -> payload schema bindings. Unknown types are rejected on both
// publish and consume; a known type at an unrecognized version is rejected
// as UnsupportedVersion rather than silently accepted or skipped.
type Registry struct {
	mu       sync.RWMutex
	schemas  map[SchemaKey]Schema
	validate *validator.Validate
	closed   bool
}

// NewRegistry constructs an empty, open registry. Call Close after
// registering every schema the process will ever know about.
func NewRegistry() *Registry {
	return &Registry{
		schemas:  make(map[SchemaKey]Schema),
		validate: validator.New(),
	}
}

// Register binds (eventType, version) to a payload schema. New must return a
// pointer to a struct; its validator tags define the payload's shape.
// Register panics if called after Close, matching the contract that adding
// an event is one registry entry plus one handler, never dynamic fabrication.
func (r *Registry) Register(eventType string, version int, newPayload func() any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		panic("eventbus: Registry.Register called after Close")
	}
	r.schemas[SchemaKey{Type: eventType, Version: version}] = Schema{New: newPayload}
}

// Close freezes the registry; no further Register calls are permitted.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// Validate checks that (eventType, version) is registered and that data
// unmarshals and passes struct validation against its schema. On success it
// returns the decoded, typed payload.
func (r *Registry) Validate(eventType string, version int, data json.RawMessage) (any, error) {
	r.mu.RLock()
	schema, ok := r.schemas[SchemaKey{Type: eventType, Version: version}]
	r.mu.RUnlock()

	if !ok {
		if r.hasType(eventType) {
			return nil, fmt.Errorf("%w: %s v%d", errorsx.ErrUnsupportedVersion, eventType, version)
		}
		return nil, fmt.Errorf("%w: %s", errorsx.ErrUnknownType, eventType)
	}

	payload := schema.New()
	if len(data) > 0 {
		if err := json.Unmarshal(data, payload); err != nil {
			return nil, fmt.Errorf("%w: %v", errorsx.ErrValidation, err)
		}
	}
	if err := r.validate.Struct(payload); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, fmt.Errorf("%w: %v", errorsx.ErrValidation, verrs)
		}
		return nil, fmt.Errorf("%w: %v", errorsx.ErrValidation, err)
	}
	return payload, nil
}

func (r *Registry) hasType(eventType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for k := range r.schemas {
		if k.Type == eventType {
			return true
		}
	}
	return false
}

// ValidateEnvelope is a convenience wrapper around Validate taking a decoded Envelope.
func (r *Registry) ValidateEnvelope(e Envelope) (any, error) {
	return r.Validate(e.Type, e.Version, e.Data)
}
