// Package vocabulary defines the static JSON-LD context and term tables for
// the ActivityPub wire format. Context lists are append-only and ordered: a
// default vocabulary list first, then zero or more extension entries
// activated by feature flags on the entity. The order is part of the wire
// contract and must be reproducible byte-for-byte.
package vocabulary

// Entry is a single element of a JSON-LD @context list: either an IRI
// string or a single-term alias map.
type Entry any

// Context IRIs and term aliases. These values are pinned by interoperability
// fixtures; do not reorder or edit.
var (
	// ActivityStreams is the base ActivityStreams vocabulary.
	ActivityStreams Entry = "https://www.w3.org/ns/activitystreams"

	// Hashtag aliases the Hashtag tag type into the default vocabulary.
	Hashtag Entry = map[string]any{"Hashtag": "as:Hashtag"}

	// LinkedDataSignatures enables the linked-data signature terms.
	LinkedDataSignatures Entry = "https://w3id.org/security/v1"

	// ManuallyApprovesFollowers aliases the manual follower approval flag.
	ManuallyApprovesFollowers Entry = map[string]any{
		"manuallyApprovesFollowers": "as:manuallyApprovesFollowers",
	}

	// Sensitive aliases the sensitive-content marker.
	Sensitive Entry = map[string]any{"sensitive": "as:sensitive"}
)

// Feature is a flag activating an extension context entry.
type Feature int

const (
	// FeatureLDSignatures marks documents carrying linked-data signatures.
	FeatureLDSignatures Feature = 1 << iota
	// FeatureManualApproval marks actors declaring manual follower approval terms.
	FeatureManualApproval
	// FeatureSensitive marks content carrying the sensitive flag term.
	FeatureSensitive
)

// Has reports whether the feature set contains f.
func (fs Feature) Has(f Feature) bool {
	return fs&f != 0
}

// extensionOrder fixes the canonical activation order of extension entries.
// Appending in any other order breaks wire compatibility.
var extensionOrder = []struct {
	feature Feature
	entry   Entry
}{
	{FeatureLDSignatures, LinkedDataSignatures},
	{FeatureManualApproval, ManuallyApprovesFollowers},
	{FeatureSensitive, Sensitive},
}

// Defaults returns a fresh copy of the default vocabulary list.
func Defaults() []Entry {
	return []Entry{ActivityStreams, Hashtag}
}

// Minimal returns the bare ActivityStreams context used by retractions.
func Minimal() []Entry {
	return []Entry{ActivityStreams}
}

// Build assembles the ordered @context list for a document: the default
// vocabulary entries followed by the extension entries for each set
// feature, in canonical order.
func Build(features Feature) []Entry {
	ctx := Defaults()
	for _, ext := range extensionOrder {
		if features.Has(ext.feature) {
			ctx = append(ctx, ext.entry)
		}
	}
	return ctx
}
