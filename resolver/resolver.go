// Package resolver fetches and parses remote actor profiles. It defines the
// resolution contract the lifecycle pipeline consumes, an HTTP
// implementation speaking WebFinger and ActivityPub actor documents, and a
// caching wrapper with in-flight deduplication.
package resolver

import (
	"context"

	"github.com/trusttri/federation/entity"
	"github.com/trusttri/federation/errors"
	"github.com/trusttri/federation/protocol"
)

// Resolver retrieves a remote actor's public profile. Identifiers are
// either actor URIs or user@domain handles.
//
// Implementations must be idempotent for the same identifier within a
// bounded cache window and must tag failures with the resolution subkinds
// (network, not-found, malformed response) so callers can abort uniformly
// while observability keeps the distinction.
type Resolver interface {
	RetrieveProfile(ctx context.Context, identifier string) (*entity.Entity, error)
}

// Keys adapts a Resolver into the key source the protocol adapters verify
// inbound signatures against.
type Keys struct {
	resolver Resolver
}

// NewKeys creates a key source backed by a resolver.
func NewKeys(r Resolver) *Keys {
	return &Keys{resolver: r}
}

// PublicKeyFor resolves the actor's profile and returns its public key PEM.
func (k *Keys) PublicKeyFor(ctx context.Context, actorID string) (string, error) {
	profile, err := k.resolver.RetrieveProfile(ctx, actorID)
	if err != nil {
		return "", err
	}
	if profile.PublicKeyPEM == "" {
		return "", errors.WrapFatal(errors.ErrMissingPublicKey, "resolver", "PublicKeyFor", actorID)
	}
	return profile.PublicKeyPEM, nil
}

var _ protocol.KeySource = (*Keys)(nil)
