package entity

import "crypto/rsa"

// UserType carries the local actor identity and signing material passed
// explicitly through the send path. Keys are never looked up ambiently.
type UserType struct {
	// ID is the actor's protocol-global identifier.
	ID string

	// PrivateKey is the actor's signing key. The matching public key is
	// embedded in the actor's Profile document for remote verification.
	PrivateKey *rsa.PrivateKey
}

// Recipient describes one delivery destination for an outbound activity.
// Produced by the lifecycle pipeline, consumed by the transport layer.
type Recipient struct {
	// Endpoint is the inbox URI to deliver to.
	Endpoint string `json:"endpoint"`

	// FID is the federated identifier of the receiving actor.
	FID string `json:"fid"`

	// Protocol tags which wire protocol the delivery uses.
	Protocol string `json:"protocol"`

	// Public is true when delivery targets a shared/public inbox.
	Public bool `json:"public"`
}
