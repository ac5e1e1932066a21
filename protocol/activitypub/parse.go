package activitypub

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/trusttri/federation/entity"
	"github.com/trusttri/federation/errors"
	"github.com/trusttri/federation/pkg/timestamp"
)

// FromDocument maps an inbound ActivityPub document to an entity. Parsing is
// tolerant about optional fields and strict about the activity type: unknown
// types surface ErrUnsupportedActivityType so the caller can skip the
// message without treating it as malformed.
func (a *Adapter) FromDocument(doc map[string]any) (*entity.Entity, error) {
	typ := stringField(doc, "type")
	id := stringField(doc, "id")
	actor := stringField(doc, "actor")

	switch typ {
	case "Follow":
		return entity.NewFollow(id, actor, objectID(doc["object"]))
	case "Accept":
		return entity.NewAccept(id, actor, objectID(doc["object"]))
	case "Undo":
		return a.parseUndo(doc, id, actor)
	case "Announce":
		return entity.NewAnnounce(strings.TrimSuffix(id, "#create"), actor, objectID(doc["object"]),
			entity.WithPublished(timestamp.Parse(stringField(doc, "published"))))
	case "Create":
		note, ok := doc["object"].(map[string]any)
		if !ok {
			return nil, errors.WrapInvalid(errors.ErrMalformedDocument, "activitypub", "FromDocument",
				"Create activity without an embedded object")
		}
		return a.parseNote(note, actor)
	case "Note", "Article":
		return a.parseNote(doc, actor)
	case "Delete":
		return a.parseDelete(doc, id, actor)
	case "Person", "Service", "Organization", "Application":
		return a.parseActor(doc)
	default:
		return nil, errors.WrapInvalid(errors.ErrUnsupportedActivityType, "activitypub", "FromDocument",
			fmt.Sprintf("activity type %q", typ))
	}
}

// parseUndo distinguishes an undone announce, which maps back to a
// Retraction, from an undone follow.
func (a *Adapter) parseUndo(doc map[string]any, id, actor string) (*entity.Entity, error) {
	if object, ok := doc["object"].(map[string]any); ok && stringField(object, "type") == "Announce" {
		target := strings.TrimSuffix(stringField(object, "id"), "activity")
		return entity.NewRetraction(id, actor, target, entity.KindAnnounce,
			entity.WithPublished(timestamp.Parse(stringField(doc, "published"))))
	}
	return entity.NewUndo(id, actor, objectID(doc["object"]))
}

// parseDelete maps a tombstoned Delete to a Retraction. A Tombstone hides
// the original variant, so the retracted kind defaults to Post.
func (a *Adapter) parseDelete(doc map[string]any, id, actor string) (*entity.Entity, error) {
	target := objectID(doc["object"])
	if target == "" {
		return nil, errors.WrapInvalid(errors.ErrMalformedDocument, "activitypub", "parseDelete",
			"Delete activity without an object identifier")
	}
	return entity.NewRetraction(id, actor, target, entity.KindPost,
		entity.WithPublished(timestamp.Parse(stringField(doc, "published"))))
}

// parseNote maps a Note to a Post or, when inReplyTo is set, a Comment.
// Absent optional fields take their documented defaults: sensitive false,
// summary empty, no children.
func (a *Adapter) parseNote(note map[string]any, fallbackActor string) (*entity.Entity, error) {
	id := stringField(note, "id")
	actor := stringField(note, "attributedTo")
	if actor == "" {
		actor = fallbackActor
	}

	opts := []entity.Option{
		entity.WithPublished(timestamp.Parse(stringField(note, "published"))),
		entity.WithSensitive(boolField(note, "sensitive")),
		entity.WithSummary(stringField(note, "summary")),
		entity.WithURL(stringField(note, "url")),
	}
	if children := parseChildren(note); len(children) > 0 {
		opts = append(opts, entity.WithChildren(children...))
	}

	content := stringField(note, "content")
	if inReplyTo := stringField(note, "inReplyTo"); inReplyTo != "" {
		return entity.NewComment(id, actor, inReplyTo, content, opts...)
	}
	return entity.NewPost(id, actor, content, opts...)
}

// parseChildren collects tag and attachment children in document order,
// tags first. Unknown tag types are dropped.
func parseChildren(note map[string]any) []entity.Child {
	var children []entity.Child

	for _, raw := range listField(note, "tag") {
		tag, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch stringField(tag, "type") {
		case "Hashtag":
			children = append(children, entity.Child{
				Kind: entity.ChildHashtag,
				Name: strings.TrimPrefix(stringField(tag, "name"), "#"),
				URL:  stringField(tag, "href"),
			})
		case "Mention":
			children = append(children, entity.Child{
				Kind: entity.ChildMention,
				Name: stringField(tag, "name"),
				URL:  stringField(tag, "href"),
			})
		}
	}

	for _, raw := range listField(note, "attachment") {
		attachment, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch stringField(attachment, "type") {
		case "Image", "Document":
			children = append(children, entity.Child{
				Kind:      entity.ChildImage,
				URL:       stringField(attachment, "url"),
				Name:      stringField(attachment, "name"),
				MediaType: stringField(attachment, "mediaType"),
			})
		}
	}

	return children
}

// parseActor maps a Person document to a Profile entity.
func (a *Adapter) parseActor(doc map[string]any) (*entity.Entity, error) {
	id := stringField(doc, "id")

	opts := []entity.Option{
		entity.WithName(stringField(doc, "name")),
		entity.WithURL(stringField(doc, "url")),
		entity.WithSummary(stringField(doc, "summary")),
		entity.WithOutbox(stringField(doc, "outbox")),
		entity.WithFollowCollections(stringField(doc, "followers"), stringField(doc, "following")),
		entity.WithManualApproval(boolField(doc, "manuallyApprovesFollowers")),
	}

	sharedInbox := ""
	if endpoints, ok := doc["endpoints"].(map[string]any); ok {
		sharedInbox = stringField(endpoints, "sharedInbox")
	}
	opts = append(opts, entity.WithInboxes(stringField(doc, "inbox"), sharedInbox))

	if key, ok := doc["publicKey"].(map[string]any); ok {
		opts = append(opts, entity.WithPublicKey(stringField(key, "publicKeyPem")))
	}
	if icon, ok := doc["icon"].(map[string]any); ok {
		opts = append(opts, entity.WithIcon(stringField(icon, "url")))
	}
	if handle := deriveHandle(stringField(doc, "preferredUsername"), id); handle != "" {
		opts = append(opts, entity.WithHandle(handle))
	}

	return entity.NewProfile(id, opts...)
}

// deriveHandle builds user@domain from the preferred username and the
// actor identifier's host.
func deriveHandle(username, actorID string) string {
	if username == "" {
		return ""
	}
	u, err := url.Parse(actorID)
	if err != nil || u.Host == "" {
		return username
	}
	return username + "@" + u.Host
}

// Loosely-typed field accessors for parsed JSON documents.

func stringField(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return s
}

func boolField(doc map[string]any, key string) bool {
	b, _ := doc[key].(bool)
	return b
}

func listField(doc map[string]any, key string) []any {
	l, _ := doc[key].([]any)
	return l
}

// objectID resolves an activity object to its identifier whether it is a
// bare reference or an embedded document.
func objectID(v any) string {
	switch object := v.(type) {
	case string:
		return object
	case map[string]any:
		return stringField(object, "id")
	default:
		return ""
	}
}
