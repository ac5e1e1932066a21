// Package protocol defines the contract every wire protocol adapter
// implements and a registry for dispatching on protocol tags. Adapters map
// protocol-neutral entities to and from one protocol's wire documents; the
// entity owns field values and defaults, the adapter owns field-name
// mapping and per-protocol signing.
package protocol

import (
	"context"
	"fmt"
	"sync"

	"github.com/trusttri/federation/entity"
	"github.com/trusttri/federation/errors"
)

// Protocol tags used in recipient descriptors and the adapter registry.
const (
	// ActivityPub is the JSON-LD ActivityPub protocol.
	ActivityPub = "activitypub"
	// Legacy is the XML magic-envelope protocol.
	Legacy = "legacy"
)

// KeySource supplies the PEM-encoded public key of a remote actor for
// inbound signature verification. Implementations typically wrap the remote
// profile resolver.
type KeySource interface {
	// PublicKeyFor returns the actor's public key PEM. Failure to locate
	// a key must be reported as errors.ErrMissingPublicKey.
	PublicKeyFor(ctx context.Context, actorID string) (string, error)
}

// Adapter maps entities to and from one protocol's serialized documents.
//
// Marshal serializes an entity and applies the protocol's outbound
// signature using the sender's key material where the document requires
// integrity. Unmarshal verifies any inbound signature against the claimed
// actor's public key before parsing; a verification failure is fatal to
// the message and must surface errors.ErrSignatureInvalid.
type Adapter interface {
	// Name returns the protocol tag.
	Name() string

	// Marshal serializes and signs an outbound entity.
	Marshal(ctx context.Context, e *entity.Entity, sender entity.UserType) ([]byte, error)

	// Unmarshal verifies and deserializes an inbound document.
	Unmarshal(ctx context.Context, data []byte, keys KeySource) (*entity.Entity, error)
}

// Registry maps protocol tags to adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter under its protocol tag, replacing any previous
// registration.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
}

// Get returns the adapter for a protocol tag.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[name]
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrMalformedDocument, "protocol", "Get",
			fmt.Sprintf("no adapter registered for protocol %q", name))
	}
	return a, nil
}

// Names returns the registered protocol tags.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
