package legacyxml

import (
	"encoding/xml"
	"fmt"

	"github.com/trusttri/federation/entity"
	"github.com/trusttri/federation/errors"
	"github.com/trusttri/federation/pkg/timestamp"
)

// Payload element structs. Element and field names are part of the legacy
// wire contract. Identifiers carry the same URIs as the rest of the model;
// the legacy wire does not introduce a second identifier scheme.

type statusMessage struct {
	XMLName   xml.Name `xml:"status_message"`
	Author    string   `xml:"author"`
	GUID      string   `xml:"guid"`
	CreatedAt string   `xml:"created_at"`
	Text      string   `xml:"text"`
	NSFW      bool     `xml:"nsfw"`
}

type comment struct {
	XMLName    xml.Name `xml:"comment"`
	Author     string   `xml:"author"`
	GUID       string   `xml:"guid"`
	ParentGUID string   `xml:"parent_guid"`
	CreatedAt  string   `xml:"created_at"`
	Text       string   `xml:"text"`
}

type contact struct {
	XMLName   xml.Name `xml:"contact"`
	Author    string   `xml:"author"`
	Recipient string   `xml:"recipient"`
	Following bool     `xml:"following"`
	Sharing   bool     `xml:"sharing"`
}

type reshare struct {
	XMLName   xml.Name `xml:"reshare"`
	Author    string   `xml:"author"`
	GUID      string   `xml:"guid"`
	CreatedAt string   `xml:"created_at"`
	RootGUID  string   `xml:"root_guid"`
}

type retraction struct {
	XMLName    xml.Name `xml:"retraction"`
	Author     string   `xml:"author"`
	TargetGUID string   `xml:"target_guid"`
	TargetType string   `xml:"target_type"`
}

type profileDoc struct {
	XMLName   xml.Name `xml:"profile"`
	Author    string   `xml:"author"`
	Handle    string   `xml:"handle,omitempty"`
	FullName  string   `xml:"full_name,omitempty"`
	URL       string   `xml:"url,omitempty"`
	ImageURL  string   `xml:"image_url,omitempty"`
	Bio       string   `xml:"bio,omitempty"`
	PublicKey string   `xml:"public_key,omitempty"`
	NSFW      bool     `xml:"nsfw"`
}

// retractionTypes maps retracted kinds to their legacy target_type labels.
var retractionTypes = map[entity.Kind]string{
	entity.KindPost:     "Post",
	entity.KindComment:  "Comment",
	entity.KindAnnounce: "Share",
	entity.KindProfile:  "Profile",
}

// kindForTargetType is the inbound inverse of retractionTypes. Unknown
// labels default to Post.
func kindForTargetType(label string) entity.Kind {
	for kind, l := range retractionTypes {
		if l == label {
			return kind
		}
	}
	return entity.KindPost
}

// ToDocument maps an entity to its legacy XML payload. The legacy protocol
// has no accept element: follow relationships are confirmed implicitly, so
// Accept maps to unsupported rather than an invented shape.
func (a *Adapter) ToDocument(e *entity.Entity) ([]byte, error) {
	if e == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingRequiredField, "legacyxml", "ToDocument", "nil entity")
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	var doc any
	switch e.Kind {
	case entity.KindPost:
		doc = statusMessage{
			Author:    e.ActorID,
			GUID:      e.ID,
			CreatedAt: timestamp.Format(e.Published),
			Text:      e.RawContent,
			NSFW:      e.Sensitive,
		}
	case entity.KindComment:
		doc = comment{
			Author:     e.ActorID,
			GUID:       e.ID,
			ParentGUID: e.TargetID,
			CreatedAt:  timestamp.Format(e.Published),
			Text:       e.RawContent,
		}
	case entity.KindFollow:
		doc = contact{Author: e.ActorID, Recipient: e.TargetID, Following: true, Sharing: true}
	case entity.KindUndo:
		doc = contact{Author: e.ActorID, Recipient: undoRecipient(e), Following: false, Sharing: false}
	case entity.KindAnnounce:
		doc = reshare{
			Author:    e.ActorID,
			GUID:      e.ID,
			CreatedAt: timestamp.Format(e.Published),
			RootGUID:  e.TargetID,
		}
	case entity.KindRetraction:
		label, ok := retractionTypes[e.RetractedKind]
		if !ok {
			label = retractionTypes[entity.KindPost]
		}
		doc = retraction{Author: e.ActorID, TargetGUID: e.TargetID, TargetType: label}
	case entity.KindProfile:
		doc = profileDoc{
			Author:    e.ID,
			Handle:    e.Handle,
			FullName:  e.Name,
			URL:       e.URL,
			ImageURL:  e.IconURL,
			Bio:       e.Summary,
			PublicKey: e.PublicKeyPEM,
		}
	default:
		return nil, errors.WrapInvalid(errors.ErrUnsupportedActivityType, "legacyxml", "ToDocument",
			fmt.Sprintf("no legacy element for kind %q", e.Kind))
	}

	data, err := xml.Marshal(doc)
	if err != nil {
		return nil, errors.WrapInvalid(err, "legacyxml", "ToDocument", "encoding payload")
	}
	return data, nil
}

// undoRecipient resolves the actor an unfollow addresses: the target of the
// embedded follow when present, otherwise the undo target itself.
func undoRecipient(e *entity.Entity) string {
	if e.Object != nil && e.Object.TargetID != "" {
		return e.Object.TargetID
	}
	return e.TargetID
}

// FromDocument maps an inbound legacy payload to an entity, dispatching on
// the root element. Unknown elements surface ErrUnsupportedActivityType.
func (a *Adapter) FromDocument(data []byte) (*entity.Entity, error) {
	root, err := rootElement(data)
	if err != nil {
		return nil, err
	}

	switch root {
	case "status_message":
		var doc statusMessage
		if err := unmarshalPayload(data, &doc); err != nil {
			return nil, err
		}
		return entity.NewPost(doc.GUID, doc.Author, doc.Text,
			entity.WithPublished(timestamp.Parse(doc.CreatedAt)),
			entity.WithSensitive(doc.NSFW))
	case "comment":
		var doc comment
		if err := unmarshalPayload(data, &doc); err != nil {
			return nil, err
		}
		return entity.NewComment(doc.GUID, doc.Author, doc.ParentGUID, doc.Text,
			entity.WithPublished(timestamp.Parse(doc.CreatedAt)))
	case "contact":
		var doc contact
		if err := unmarshalPayload(data, &doc); err != nil {
			return nil, err
		}
		if doc.Following {
			return entity.NewFollow("", doc.Author, doc.Recipient)
		}
		return entity.NewUndo("", doc.Author, doc.Recipient)
	case "reshare":
		var doc reshare
		if err := unmarshalPayload(data, &doc); err != nil {
			return nil, err
		}
		return entity.NewAnnounce(doc.GUID, doc.Author, doc.RootGUID,
			entity.WithPublished(timestamp.Parse(doc.CreatedAt)))
	case "retraction":
		var doc retraction
		if err := unmarshalPayload(data, &doc); err != nil {
			return nil, err
		}
		return entity.NewRetraction("", doc.Author, doc.TargetGUID, kindForTargetType(doc.TargetType))
	case "profile":
		var doc profileDoc
		if err := unmarshalPayload(data, &doc); err != nil {
			return nil, err
		}
		return entity.NewProfile(doc.Author,
			entity.WithHandle(doc.Handle),
			entity.WithName(doc.FullName),
			entity.WithURL(doc.URL),
			entity.WithIcon(doc.ImageURL),
			entity.WithSummary(doc.Bio),
			entity.WithPublicKey(doc.PublicKey))
	default:
		return nil, errors.WrapInvalid(errors.ErrUnsupportedActivityType, "legacyxml", "FromDocument",
			fmt.Sprintf("root element %q", root))
	}
}

func unmarshalPayload(data []byte, doc any) error {
	if err := xml.Unmarshal(data, doc); err != nil {
		return errors.WrapInvalid(errors.ErrMalformedDocument, "legacyxml", "FromDocument", err.Error())
	}
	return nil
}
