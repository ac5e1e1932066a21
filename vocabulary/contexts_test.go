package vocabulary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	ctx := Defaults()

	assert.Equal(t, []Entry{
		"https://www.w3.org/ns/activitystreams",
		map[string]any{"Hashtag": "as:Hashtag"},
	}, ctx)
}

func TestDefaults_ReturnsFreshCopy(t *testing.T) {
	first := Defaults()
	first = append(first, Sensitive)

	assert.Len(t, Defaults(), 2)
	assert.Len(t, first, 3)
}

func TestBuild_Ordering(t *testing.T) {
	// Profile with manual-approval and linked-data-signature flags:
	// defaults first, then ld-signatures, then manual-approval.
	ctx := Build(FeatureLDSignatures | FeatureManualApproval)

	assert.Equal(t, []Entry{
		"https://www.w3.org/ns/activitystreams",
		map[string]any{"Hashtag": "as:Hashtag"},
		"https://w3id.org/security/v1",
		map[string]any{"manuallyApprovesFollowers": "as:manuallyApprovesFollowers"},
	}, ctx)
}

func TestBuild_NoteFeatures(t *testing.T) {
	ctx := Build(FeatureLDSignatures | FeatureSensitive)

	assert.Equal(t, []Entry{
		"https://www.w3.org/ns/activitystreams",
		map[string]any{"Hashtag": "as:Hashtag"},
		"https://w3id.org/security/v1",
		map[string]any{"sensitive": "as:sensitive"},
	}, ctx)
}

func TestBuild_Deterministic(t *testing.T) {
	features := FeatureLDSignatures | FeatureManualApproval | FeatureSensitive

	first := Build(features)
	second := Build(features)

	assert.Equal(t, first, second)
	// All three extensions in canonical order after the defaults
	assert.Len(t, first, 5)
	assert.Equal(t, "https://w3id.org/security/v1", first[2])
}

func TestBuild_NoFeatures(t *testing.T) {
	assert.Equal(t, Defaults(), Build(0))
}

func TestMinimal(t *testing.T) {
	assert.Equal(t, []Entry{"https://www.w3.org/ns/activitystreams"}, Minimal())
}
