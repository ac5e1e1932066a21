package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trusttri/federation/entity"
)

func TestExtractImages_OrderPreserved(t *testing.T) {
	content := "#Cycling #lauttasaari #sea #sun\n" +
		"![](https://domain.local/media/one.jpg)" +
		"![](https://domain.local/media/two.jpg)" +
		"![](https://domain.local/media/three.jpg)" +
		"![](https://domain.local/media/four.jpg)"

	stripped, images := extractImages(content, "")

	assert.Equal(t, "#Cycling #lauttasaari #sea #sun", stripped)
	assert.Len(t, images, 4)
	assert.Equal(t, "https://domain.local/media/one.jpg", images[0].URL)
	assert.Equal(t, "https://domain.local/media/two.jpg", images[1].URL)
	assert.Equal(t, "https://domain.local/media/three.jpg", images[2].URL)
	assert.Equal(t, "https://domain.local/media/four.jpg", images[3].URL)
	for _, img := range images {
		assert.Equal(t, entity.ChildImage, img.Kind)
	}
}

func TestExtractImages_NamedAndRelative(t *testing.T) {
	stripped, images := extractImages("text ![diagram](/media/d.png)", "https://domain.local")

	assert.Equal(t, "text", stripped)
	assert.Len(t, images, 1)
	assert.Equal(t, "diagram", images[0].Name)
	assert.Equal(t, "https://domain.local/media/d.png", images[0].URL)
}

func TestExtractImages_NoImages(t *testing.T) {
	stripped, images := extractImages("plain text", "")
	assert.Equal(t, "plain text", stripped)
	assert.Empty(t, images)
}

func TestExtractHashtags(t *testing.T) {
	tags := extractHashtags("#Cycling #lauttasaari #sea #sun and #sea again")

	assert.Len(t, tags, 4)
	assert.Equal(t, "Cycling", tags[0].Name)
	assert.Equal(t, "lauttasaari", tags[1].Name)
	assert.Equal(t, "sea", tags[2].Name)
	assert.Equal(t, "sun", tags[3].Name)
}

func TestExtractHashtags_MidWordNotMatched(t *testing.T) {
	tags := extractHashtags("issue#42 has no tag but #real does")

	assert.Len(t, tags, 1)
	assert.Equal(t, "real", tags[0].Name)
}

func TestCleanupLinkifiedTags(t *testing.T) {
	content := `riding <a class="hashtag" href="https://remote.local/tag/cycling/">#cycling</a> today`
	assert.Equal(t, "riding #cycling today", cleanupLinkifiedTags(content))
}

func TestAbsolutize(t *testing.T) {
	assert.Equal(t, "https://domain.local/media/a.jpg", absolutize("/media/a.jpg", "https://domain.local"))
	assert.Equal(t, "https://domain.local/media/a.jpg", absolutize("/media/a.jpg", "https://domain.local/"))
	assert.Equal(t, "https://other.local/a.jpg", absolutize("https://other.local/a.jpg", "https://domain.local"))
	assert.Equal(t, "/media/a.jpg", absolutize("/media/a.jpg", ""))
}
