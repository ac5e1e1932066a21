// Package activitypub implements the JSON-LD ActivityPub protocol adapter.
// Outbound entities become activity documents with pinned @context lists and
// linked-data signatures; inbound documents are schema-checked, verified
// against the claimed actor's public key and mapped back to entities.
package activitypub

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/trusttri/federation/entity"
	"github.com/trusttri/federation/errors"
	"github.com/trusttri/federation/protocol"
	"github.com/trusttri/federation/vocabulary"
)

// Adapter maps entities to and from ActivityPub documents.
type Adapter struct {
	prober Prober
	logger *slog.Logger
	schema *gojsonschema.Schema
}

// Option is a configuration option for the adapter.
type Option func(*Adapter)

// WithProber sets the content-type prober used to enrich actor icons.
func WithProber(p Prober) Option {
	return func(a *Adapter) {
		a.prober = p
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// New creates an ActivityPub adapter.
func New(opts ...Option) (*Adapter, error) {
	a := &Adapter{
		prober: NewHTTPProber(nil),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
	if err != nil {
		return nil, errors.Wrap(err, "activitypub", "New", "compiling document schema")
	}
	a.schema = schema

	return a, nil
}

// Name returns the protocol tag.
func (a *Adapter) Name() string {
	return protocol.ActivityPub
}

// signatureRequired reports whether a variant's @context carries the
// linked-data signature vocabulary; only those receive an outbound
// signature.
func signatureRequired(k entity.Kind) bool {
	switch k {
	case entity.KindPost, entity.KindComment, entity.KindProfile:
		return true
	default:
		return false
	}
}

// Marshal serializes an outbound entity to an ActivityPub document, signing
// it with the sender's key when the document's context declares signature
// support.
func (a *Adapter) Marshal(ctx context.Context, e *entity.Entity, sender entity.UserType) ([]byte, error) {
	doc, err := a.ToDocument(ctx, e)
	if err != nil {
		return nil, err
	}

	if signatureRequired(e.Kind) && sender.PrivateKey != nil {
		if err := Sign(doc, sender); err != nil {
			return nil, err
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.WrapInvalid(err, "activitypub", "Marshal", "encoding document")
	}
	return data, nil
}

// Unmarshal parses an inbound document, verifying any embedded signature
// against the claimed actor's public key before the payload is interpreted.
// Signature failures are fatal to the message.
func (a *Adapter) Unmarshal(ctx context.Context, data []byte, keys protocol.KeySource) (*entity.Entity, error) {
	if err := a.validateDocument(data); err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapInvalid(errors.ErrMalformedDocument, "activitypub", "Unmarshal", err.Error())
	}

	if _, signed := doc["signature"]; signed {
		if keys == nil {
			return nil, errors.WrapFatal(errors.ErrMissingPublicKey, "activitypub", "Unmarshal",
				"signed document with no key source")
		}
		actor := claimedActor(doc)
		pem, err := keys.PublicKeyFor(ctx, actor)
		if err != nil {
			return nil, errors.Wrap(err, "activitypub", "Unmarshal", "fetching public key for "+actor)
		}
		if err := Verify(doc, pem); err != nil {
			return nil, err
		}
	}

	return a.FromDocument(doc)
}

// validateDocument runs the inbound JSON schema check. Any violation maps
// to ErrMalformedDocument so the caller skips the message and keeps
// consuming.
func (a *Adapter) validateDocument(data []byte) error {
	result, err := a.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return errors.WrapInvalid(errors.ErrMalformedDocument, "activitypub", "validateDocument", err.Error())
	}
	if !result.Valid() {
		detail := "schema violation"
		if errs := result.Errors(); len(errs) > 0 {
			detail = errs[0].String()
		}
		return errors.WrapInvalid(errors.ErrMalformedDocument, "activitypub", "validateDocument", detail)
	}
	return nil
}

// claimedActor extracts the actor a document claims to originate from.
func claimedActor(doc map[string]any) string {
	if actor := stringField(doc, "actor"); actor != "" {
		return actor
	}
	if attributed := stringField(doc, "attributedTo"); attributed != "" {
		return attributed
	}
	return stringField(doc, "id")
}

// contextFeatures maps entity kinds to the extension entries their
// documents activate. Kinds absent from the table use the default list;
// retractions use the minimal list.
var contextFeatures = map[entity.Kind]vocabulary.Feature{
	entity.KindPost:    vocabulary.FeatureLDSignatures | vocabulary.FeatureSensitive,
	entity.KindComment: vocabulary.FeatureLDSignatures | vocabulary.FeatureSensitive,
	entity.KindProfile: vocabulary.FeatureLDSignatures | vocabulary.FeatureManualApproval,
}

// contextFor returns the @context list for an entity kind.
func contextFor(k entity.Kind) []vocabulary.Entry {
	if k == entity.KindRetraction {
		return vocabulary.Minimal()
	}
	if features, ok := contextFeatures[k]; ok {
		return vocabulary.Build(features)
	}
	return vocabulary.Defaults()
}
