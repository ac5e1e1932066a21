// Package entity defines the protocol-neutral in-memory model for federated
// social objects. An Entity is a closed tagged variant (see Kind) carrying
// the fields shared by every protocol plus the variant-specific fields the
// adapters map onto wire documents.
//
// Entities are constructed by the application (outbound) or by a protocol
// adapter deserializing a wire document (inbound), mutated in place by the
// lifecycle pipeline, and discarded after hand-off. There is no persistent
// entity store in this layer.
package entity

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/trusttri/federation/errors"
)

// Entity is the protocol-neutral representation of a federated object.
//
// Field usage depends on Kind:
//   - Post/Comment: RawContent, Sensitive, Summary, URL, Children;
//     Comment additionally sets TargetID to the parent entity.
//   - Follow/Accept/Undo/Announce: ActorID and TargetID are required;
//     Object may carry an embedded sub-entity where the protocol embeds
//     rather than references (Accept, Undo).
//   - Retraction: TargetID names the retracted object, RetractedKind its
//     original variant.
//   - Profile: actor == subject; the Profile* fields apply.
type Entity struct {
	// Kind is the variant tag. Immutable after construction.
	Kind Kind

	// ID is the protocol-global identifier (a URI). Immutable once
	// assigned; generated with a random suffix at construction for the
	// variants that permit it (Follow, Accept, Undo).
	ID string

	// ActorID is the originating actor's identifier.
	ActorID string

	// TargetID references another entity by URI.
	TargetID string

	// Object is an embedded sub-entity, used where the protocol expects
	// an inline document rather than a URI reference.
	Object *Entity

	// Published is the creation timestamp. Set at construction when
	// absent; preserved on round-trip.
	Published time.Time

	// RawContent is the textual content of Post/Comment variants.
	RawContent string

	// Sensitive marks content behind a sensitive-content warning.
	Sensitive bool

	// Summary is an optional content warning / profile bio.
	Summary string

	// URL is the human-facing location of the entity.
	URL string

	// Children are owned child entities (images, hashtags, mentions) in
	// order. Order-significant and append-only during pre-send.
	Children []Child

	// RetractedKind is the variant of the object a Retraction withdraws.
	RetractedKind Kind

	// Profile-only fields.
	Name             string
	Handle           string
	PublicKeyPEM     string
	Inbox            string
	Outbox           string
	Followers        string
	Following        string
	SharedInbox      string
	ManuallyApproves bool
	IconURL          string
}

// Child is a child entity owned exclusively by its parent. Children have no
// independent lifecycle and are serialized inline.
type Child struct {
	Kind      ChildKind `json:"kind"`
	URL       string    `json:"url,omitempty"`
	Name      string    `json:"name,omitempty"`
	MediaType string    `json:"media_type,omitempty"`
}

// Option is a functional option for configuring entity construction.
type Option func(*Entity)

// WithPublished sets a specific publication timestamp instead of time.Now().
func WithPublished(t time.Time) Option {
	return func(e *Entity) {
		e.Published = t
	}
}

// WithSensitive marks the content as sensitive.
func WithSensitive(sensitive bool) Option {
	return func(e *Entity) {
		e.Sensitive = sensitive
	}
}

// WithSummary sets the optional summary (content warning).
func WithSummary(summary string) Option {
	return func(e *Entity) {
		e.Summary = summary
	}
}

// WithURL sets the human-facing URL.
func WithURL(u string) Option {
	return func(e *Entity) {
		e.URL = u
	}
}

// WithChildren appends child entities in the given order.
func WithChildren(children ...Child) Option {
	return func(e *Entity) {
		e.Children = append(e.Children, children...)
	}
}

// WithObject embeds a sub-entity.
func WithObject(obj *Entity) Option {
	return func(e *Entity) {
		e.Object = obj
	}
}

// Profile options.

// WithName sets the display name.
func WithName(name string) Option {
	return func(e *Entity) {
		e.Name = name
	}
}

// WithHandle sets the actor handle (user@domain).
func WithHandle(handle string) Option {
	return func(e *Entity) {
		e.Handle = handle
	}
}

// WithPublicKey sets the PEM-encoded public key.
func WithPublicKey(pem string) Option {
	return func(e *Entity) {
		e.PublicKeyPEM = pem
	}
}

// WithInboxes sets the private and shared inbox endpoints.
func WithInboxes(private, shared string) Option {
	return func(e *Entity) {
		e.Inbox = private
		e.SharedInbox = shared
	}
}

// WithOutbox sets the outbox endpoint.
func WithOutbox(outbox string) Option {
	return func(e *Entity) {
		e.Outbox = outbox
	}
}

// WithFollowCollections sets the followers and following collection URIs.
func WithFollowCollections(followers, following string) Option {
	return func(e *Entity) {
		e.Followers = followers
		e.Following = following
	}
}

// WithManualApproval sets the manually-approves-followers flag.
func WithManualApproval(manual bool) Option {
	return func(e *Entity) {
		e.ManuallyApproves = manual
	}
}

// WithIcon sets the profile icon URL.
func WithIcon(iconURL string) Option {
	return func(e *Entity) {
		e.IconURL = iconURL
	}
}

// NewPost creates a Post entity.
func NewPost(id, actorID, rawContent string, opts ...Option) (*Entity, error) {
	e := &Entity{
		Kind:       KindPost,
		ID:         id,
		ActorID:    actorID,
		RawContent: rawContent,
	}
	applyDefaults(e, opts)

	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// NewComment creates a Comment entity replying to the entity at inReplyTo.
func NewComment(id, actorID, inReplyTo, rawContent string, opts ...Option) (*Entity, error) {
	e := &Entity{
		Kind:       KindComment,
		ID:         id,
		ActorID:    actorID,
		TargetID:   inReplyTo,
		RawContent: rawContent,
	}
	applyDefaults(e, opts)

	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// NewFollow creates a Follow entity. If id is empty a random-suffixed
// identifier is derived from the actor.
func NewFollow(id, actorID, targetID string, opts ...Option) (*Entity, error) {
	if id == "" && actorID != "" {
		id = randomSuffixID(actorID, "follow")
	}
	e := &Entity{
		Kind:     KindFollow,
		ID:       id,
		ActorID:  actorID,
		TargetID: targetID,
	}
	applyDefaults(e, opts)

	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// NewAccept creates an Accept entity replying to the activity at targetID.
// If id is empty a random-suffixed identifier is derived from the actor,
// matching the "<actor>#accept-<random>" convention.
func NewAccept(id, actorID, targetID string, opts ...Option) (*Entity, error) {
	if id == "" && actorID != "" {
		id = AcceptID(actorID)
	}
	e := &Entity{
		Kind:     KindAccept,
		ID:       id,
		ActorID:  actorID,
		TargetID: targetID,
	}
	applyDefaults(e, opts)

	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// NewUndo creates an Undo entity reversing the activity at targetID.
// If id is empty a random-suffixed identifier is derived from the actor.
func NewUndo(id, actorID, targetID string, opts ...Option) (*Entity, error) {
	if id == "" && actorID != "" {
		id = randomSuffixID(actorID, "undo")
	}
	e := &Entity{
		Kind:     KindUndo,
		ID:       id,
		ActorID:  actorID,
		TargetID: targetID,
	}
	applyDefaults(e, opts)

	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// NewAnnounce creates an Announce entity sharing the entity at targetID.
func NewAnnounce(id, actorID, targetID string, opts ...Option) (*Entity, error) {
	e := &Entity{
		Kind:     KindAnnounce,
		ID:       id,
		ActorID:  actorID,
		TargetID: targetID,
	}
	applyDefaults(e, opts)

	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// NewRetraction creates a Retraction withdrawing the entity at targetID.
// The retracted kind decides the wire shape: retracting an Announce becomes
// an Undo of the announce activity, anything else a Delete with a tombstone
// stub.
func NewRetraction(id, actorID, targetID string, retracted Kind, opts ...Option) (*Entity, error) {
	e := &Entity{
		Kind:          KindRetraction,
		ID:            id,
		ActorID:       actorID,
		TargetID:      targetID,
		RetractedKind: retracted,
	}
	applyDefaults(e, opts)

	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// NewProfile creates a Profile entity. The actor is the subject, so no
// separate actor identifier is required.
func NewProfile(id string, opts ...Option) (*Entity, error) {
	e := &Entity{
		Kind:    KindProfile,
		ID:      id,
		ActorID: id,
	}
	applyDefaults(e, opts)

	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// applyDefaults applies functional options and fills generated defaults.
func applyDefaults(e *Entity, opts []Option) {
	for _, opt := range opts {
		opt(e)
	}
	if e.Published.IsZero() {
		e.Published = time.Now().UTC()
	}
}

// Validate checks the entity for construction-time correctness: identifier
// shape and the required fields of the variant.
func (e *Entity) Validate() error {
	if !e.Kind.IsValid() {
		return errors.WrapInvalid(errors.ErrInvalidIdentifier, "entity", "Validate",
			fmt.Sprintf("unknown kind %q", e.Kind))
	}

	for field, value := range map[string]string{"id": e.ID, "actor_id": e.ActorID, "target_id": e.TargetID} {
		if value != "" && !isURI(value) {
			return errors.WrapInvalid(errors.ErrInvalidIdentifier, "entity", "Validate",
				fmt.Sprintf("%s %q is not a URI", field, value))
		}
	}

	switch e.Kind {
	case KindFollow, KindAccept, KindUndo:
		if e.ActorID == "" {
			return missingField(e.Kind, "actor_id")
		}
		if e.TargetID == "" && e.Object == nil {
			return missingField(e.Kind, "target_id")
		}
	case KindPost:
		if e.ID == "" {
			return missingField(e.Kind, "id")
		}
		if e.ActorID == "" {
			return missingField(e.Kind, "actor_id")
		}
	case KindComment:
		if e.ID == "" {
			return missingField(e.Kind, "id")
		}
		if e.ActorID == "" {
			return missingField(e.Kind, "actor_id")
		}
		if e.TargetID == "" {
			return missingField(e.Kind, "target_id")
		}
	case KindAnnounce, KindRetraction:
		if e.ActorID == "" {
			return missingField(e.Kind, "actor_id")
		}
		if e.TargetID == "" {
			return missingField(e.Kind, "target_id")
		}
	case KindProfile:
		if e.ID == "" {
			return missingField(e.Kind, "id")
		}
	}

	return nil
}

// CreateActivityID derives the deterministic activity identifier wrapping
// this entity in a Create activity.
func (e *Entity) CreateActivityID() string {
	return e.ID + "#create"
}

// DeleteActivityID derives the deterministic activity identifier for a
// retraction of this entity.
func (e *Entity) DeleteActivityID() string {
	return e.ID + "#delete"
}

// AcceptID mints an Accept activity identifier for the given actor with a
// random suffix: "<actor>#accept-<random>". Suffixes are the one permitted
// exception to deterministic IDs and must not collide in practice.
func AcceptID(actorID string) string {
	return actorID + "#accept-" + uuid.NewString()
}

// randomSuffixID mints "<actor>#<label>-<random>".
func randomSuffixID(actorID, label string) string {
	return fmt.Sprintf("%s#%s-%s", actorID, label, uuid.NewString())
}

// missingField builds the standard MissingRequiredField error.
func missingField(kind Kind, field string) error {
	return errors.WrapInvalid(errors.ErrMissingRequiredField, "entity", "Validate",
		fmt.Sprintf("%s requires %s", kind, field))
}

// isURI reports whether s parses as an absolute URI with scheme and host.
func isURI(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
