package entity

// Kind identifies the variant of a federated entity. The set is closed:
// protocol adapters dispatch on the kind tag rather than on dynamic types.
type Kind string

const (
	// KindPost is a top-level piece of authored content.
	KindPost Kind = "post"
	// KindComment is authored content in reply to another entity.
	KindComment Kind = "comment"
	// KindFollow is a request by an actor to follow a target actor.
	KindFollow Kind = "follow"
	// KindAccept is a positive reply to a Follow.
	KindAccept Kind = "accept"
	// KindUndo reverses a previously sent activity.
	KindUndo Kind = "undo"
	// KindAnnounce shares another actor's entity (a boost/reshare).
	KindAnnounce Kind = "announce"
	// KindRetraction withdraws a previously federated entity.
	KindRetraction Kind = "retraction"
	// KindProfile is an actor's public profile document.
	KindProfile Kind = "profile"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid checks if the kind is one of the closed variant set.
func (k Kind) IsValid() bool {
	switch k {
	case KindPost, KindComment, KindFollow, KindAccept, KindUndo,
		KindAnnounce, KindRetraction, KindProfile:
		return true
	default:
		return false
	}
}

// ChildKind identifies the type of a child entity owned by a parent.
type ChildKind string

const (
	// ChildImage is an attached image.
	ChildImage ChildKind = "image"
	// ChildHashtag is a hashtag reference.
	ChildHashtag ChildKind = "hashtag"
	// ChildMention is a mention of another actor.
	ChildMention ChildKind = "mention"
)

// String returns the string representation of the child kind.
func (ck ChildKind) String() string {
	return string(ck)
}

// IsValid checks if the child kind is known.
func (ck ChildKind) IsValid() bool {
	switch ck {
	case ChildImage, ChildHashtag, ChildMention:
		return true
	default:
		return false
	}
}
