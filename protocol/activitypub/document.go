package activitypub

import (
	"context"
	"fmt"
	"strings"

	"github.com/trusttri/federation/entity"
	"github.com/trusttri/federation/errors"
	"github.com/trusttri/federation/pkg/timestamp"
)

// ToDocument maps an entity to its ActivityPub wire document. Field names,
// @context ordering and null/default conventions are pinned by
// interoperability fixtures; changes here are wire-visible.
func (a *Adapter) ToDocument(ctx context.Context, e *entity.Entity) (map[string]any, error) {
	if e == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingRequiredField, "activitypub", "ToDocument", "nil entity")
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	switch e.Kind {
	case entity.KindPost, entity.KindComment:
		return a.createDocument(e), nil
	case entity.KindFollow:
		return a.followDocument(e), nil
	case entity.KindAccept:
		return a.acceptDocument(ctx, e)
	case entity.KindUndo:
		return a.undoDocument(ctx, e)
	case entity.KindAnnounce:
		return a.announceDocument(e), nil
	case entity.KindRetraction:
		return a.retractionDocument(e), nil
	case entity.KindProfile:
		return a.actorDocument(ctx, e), nil
	default:
		return nil, errors.WrapInvalid(errors.ErrUnsupportedActivityType, "activitypub", "ToDocument",
			fmt.Sprintf("no document mapping for kind %q", e.Kind))
	}
}

// createDocument wraps a Post or Comment in a Create activity. The Note
// always carries inReplyTo, sensitive, summary, tag and url so receivers
// see explicit defaults rather than absent fields.
func (a *Adapter) createDocument(e *entity.Entity) map[string]any {
	published := timestamp.Format(e.Published)

	var inReplyTo any
	if e.Kind == entity.KindComment {
		inReplyTo = e.TargetID
	}

	var summary any
	if e.Summary != "" {
		summary = e.Summary
	}

	note := map[string]any{
		"id":           e.ID,
		"type":         "Note",
		"attributedTo": e.ActorID,
		"content":      e.RawContent,
		"published":    published,
		"inReplyTo":    inReplyTo,
		"sensitive":    e.Sensitive,
		"summary":      summary,
		"tag":          tagList(e.Children),
		"url":          e.URL,
	}
	if attachments := attachmentList(e.Children); len(attachments) > 0 {
		note["attachment"] = attachments
	}

	return map[string]any{
		"@context":  contextFor(e.Kind),
		"id":        e.CreateActivityID(),
		"type":      "Create",
		"actor":     e.ActorID,
		"object":    note,
		"published": published,
	}
}

// tagList renders hashtag and mention children in entity order. The list is
// always present, empty when there are no tag children.
func tagList(children []entity.Child) []any {
	tags := make([]any, 0)
	for _, c := range children {
		switch c.Kind {
		case entity.ChildHashtag:
			name := c.Name
			if !strings.HasPrefix(name, "#") {
				name = "#" + name
			}
			tag := map[string]any{"type": "Hashtag", "name": name}
			if c.URL != "" {
				tag["href"] = c.URL
			}
			tags = append(tags, tag)
		case entity.ChildMention:
			tags = append(tags, map[string]any{
				"type": "Mention",
				"href": c.URL,
				"name": c.Name,
			})
		}
	}
	return tags
}

// attachmentList renders image children in entity order.
func attachmentList(children []entity.Child) []any {
	var attachments []any
	for _, c := range children {
		if c.Kind != entity.ChildImage {
			continue
		}
		image := map[string]any{"type": "Image", "url": c.URL}
		if c.MediaType != "" {
			image["mediaType"] = c.MediaType
		}
		if c.Name != "" {
			image["name"] = c.Name
		}
		attachments = append(attachments, image)
	}
	return attachments
}

func (a *Adapter) followDocument(e *entity.Entity) map[string]any {
	return map[string]any{
		"@context": contextFor(e.Kind),
		"id":       e.ID,
		"type":     "Follow",
		"actor":    e.ActorID,
		"object":   e.TargetID,
	}
}

// acceptDocument embeds the accepted activity in full, @context included,
// when the entity carries it; otherwise the object is a bare reference.
func (a *Adapter) acceptDocument(ctx context.Context, e *entity.Entity) (map[string]any, error) {
	var object any = e.TargetID
	if e.Object != nil {
		embedded, err := a.ToDocument(ctx, e.Object)
		if err != nil {
			return nil, err
		}
		object = embedded
	}

	return map[string]any{
		"@context": contextFor(e.Kind),
		"id":       e.ID,
		"type":     "Accept",
		"actor":    e.ActorID,
		"object":   object,
	}, nil
}

// undoDocument embeds the undone activity as a context-free stub: receivers
// match it by identifier, not by revalidating it as a document.
func (a *Adapter) undoDocument(ctx context.Context, e *entity.Entity) (map[string]any, error) {
	var object any = e.TargetID
	if e.Object != nil {
		stub, err := a.ToDocument(ctx, e.Object)
		if err != nil {
			return nil, err
		}
		delete(stub, "@context")
		object = stub
	}

	return map[string]any{
		"@context": contextFor(e.Kind),
		"id":       e.ID,
		"type":     "Undo",
		"actor":    e.ActorID,
		"object":   object,
	}, nil
}

func (a *Adapter) announceDocument(e *entity.Entity) map[string]any {
	id := e.ID
	if !strings.Contains(id, "#") {
		id = e.CreateActivityID()
	}
	return map[string]any{
		"@context":  contextFor(e.Kind),
		"id":        id,
		"type":      "Announce",
		"actor":     e.ActorID,
		"object":    e.TargetID,
		"published": timestamp.Format(e.Published),
	}
}

// retractionDocument renders a retraction as either an Undo of the announce
// activity or a Delete with a Tombstone stub. The stub carries only the
// identifier and type: retractions never restate retracted content.
func (a *Adapter) retractionDocument(e *entity.Entity) map[string]any {
	id := e.ID
	if id == "" {
		id = e.TargetID + "#delete"
	}

	if e.RetractedKind == entity.KindAnnounce {
		return map[string]any{
			"@context":  contextFor(e.Kind),
			"id":        id,
			"type":      "Undo",
			"actor":     e.ActorID,
			"object":    map[string]any{"id": e.TargetID + "activity", "type": "Announce"},
			"published": timestamp.Format(e.Published),
		}
	}

	return map[string]any{
		"@context":  contextFor(e.Kind),
		"id":        id,
		"type":      "Delete",
		"actor":     e.ActorID,
		"object":    map[string]any{"id": e.TargetID, "type": "Tombstone"},
		"published": timestamp.Format(e.Published),
	}
}

// actorDocument renders a Profile as a Person document. The icon is
// enriched with a probed media type; when the probe fails the icon is
// omitted rather than emitted untyped.
func (a *Adapter) actorDocument(ctx context.Context, e *entity.Entity) map[string]any {
	doc := map[string]any{
		"@context": contextFor(e.Kind),
		"id":       e.ID,
		"type":     "Person",
		"name":     e.Name,
		"url":      e.URL,
		"inbox":    e.Inbox,
		"outbox":   e.Outbox,
		"endpoints": map[string]any{
			"sharedInbox": e.SharedInbox,
		},
		"followers":                 e.Followers,
		"following":                 e.Following,
		"manuallyApprovesFollowers": e.ManuallyApproves,
		"publicKey": map[string]any{
			"id":           e.ID + "#main-key",
			"owner":        e.ID,
			"publicKeyPem": e.PublicKeyPEM,
		},
	}

	if e.Summary != "" {
		doc["summary"] = e.Summary
	}
	if username := localPart(e.Handle); username != "" {
		doc["preferredUsername"] = username
	}

	if e.IconURL != "" {
		mediaType, err := a.prober.ContentType(ctx, e.IconURL)
		if err != nil {
			a.logger.Warn("omitting actor icon, media type probe failed",
				"actor", e.ID, "icon", e.IconURL, "error", err)
		} else {
			doc["icon"] = map[string]any{
				"type":      "Image",
				"url":       e.IconURL,
				"mediaType": mediaType,
			}
		}
	}

	return doc
}

// localPart extracts the username from a user@domain handle.
func localPart(handle string) string {
	handle = strings.TrimPrefix(handle, "@")
	if i := strings.Index(handle, "@"); i > 0 {
		return handle[:i]
	}
	return handle
}
