// Package legacyxml implements the XML legacy protocol adapter. Entities map
// to flat XML payload elements which travel sealed in a magic envelope: the
// payload is base64url-encoded and signed RSA-SHA256 with the sending
// actor's key, and inbound envelopes are verified against the claimed
// sender's public key before the payload is interpreted.
package legacyxml

import (
	"bytes"
	"context"
	"encoding/xml"
	"log/slog"

	"github.com/trusttri/federation/entity"
	"github.com/trusttri/federation/errors"
	"github.com/trusttri/federation/protocol"
)

// Adapter maps entities to and from legacy XML documents.
type Adapter struct {
	logger *slog.Logger
}

// Option is a configuration option for the adapter.
type Option func(*Adapter)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// New creates a legacy XML adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the protocol tag.
func (a *Adapter) Name() string {
	return protocol.Legacy
}

// Marshal serializes an outbound entity to a legacy XML payload and, when
// the sender carries key material, seals it in a signed magic envelope.
func (a *Adapter) Marshal(_ context.Context, e *entity.Entity, sender entity.UserType) ([]byte, error) {
	payload, err := a.ToDocument(e)
	if err != nil {
		return nil, err
	}

	if sender.PrivateKey == nil {
		return append([]byte(xml.Header), payload...), nil
	}

	env, err := Seal(payload, sender)
	if err != nil {
		return nil, err
	}
	sealed, err := xml.Marshal(env)
	if err != nil {
		return nil, errors.WrapInvalid(err, "legacyxml", "Marshal", "encoding envelope")
	}
	return append([]byte(xml.Header), sealed...), nil
}

// Unmarshal parses an inbound legacy document. Enveloped payloads are
// verified against the sender's public key first; an envelope whose sealed
// author does not match the payload author is treated as forged.
func (a *Adapter) Unmarshal(ctx context.Context, data []byte, keys protocol.KeySource) (*entity.Entity, error) {
	root, err := rootElement(data)
	if err != nil {
		return nil, err
	}

	if root != envelopeElement {
		return a.FromDocument(data)
	}

	var env Envelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, errors.WrapInvalid(errors.ErrMalformedDocument, "legacyxml", "Unmarshal", err.Error())
	}
	if keys == nil {
		return nil, errors.WrapFatal(errors.ErrMissingPublicKey, "legacyxml", "Unmarshal",
			"sealed envelope with no key source")
	}

	payload, author, err := Open(ctx, &env, keys)
	if err != nil {
		return nil, err
	}

	e, err := a.FromDocument(payload)
	if err != nil {
		return nil, err
	}
	if e.ActorID != author {
		return nil, errors.WrapFatal(errors.ErrSignatureInvalid, "legacyxml", "Unmarshal",
			"payload author does not match envelope sender")
	}
	return e, nil
}

// rootElement returns the local name of a document's root element.
func rootElement(data []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err != nil {
			return "", errors.WrapInvalid(errors.ErrMalformedDocument, "legacyxml", "rootElement", err.Error())
		}
		if start, ok := token.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}
