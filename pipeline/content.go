package pipeline

import (
	"regexp"
	"strings"

	"github.com/trusttri/federation/entity"
)

// markdownImagePattern matches inline markdown images: ![name](url).
var markdownImagePattern = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)\)`)

// hashtagPattern matches hashtags in raw content.
var hashtagPattern = regexp.MustCompile(`(^|\s)#([\pL\pN_-]+)`)

// linkifiedTagPattern matches hashtags a remote server wrapped in anchor
// markup; inbound cleanup reduces them back to plain tags.
var linkifiedTagPattern = regexp.MustCompile(`<a[^>]*>(#[\pL\pN_-]+)</a>`)

// extractImages removes markdown image syntax from content and returns the
// stripped content plus one image child per reference, in order of
// appearance.
func extractImages(content, baseURL string) (string, []entity.Child) {
	matches := markdownImagePattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return content, nil
	}

	children := make([]entity.Child, 0, len(matches))
	for _, m := range matches {
		children = append(children, entity.Child{
			Kind: entity.ChildImage,
			Name: m[1],
			URL:  absolutize(m[2], baseURL),
		})
	}

	stripped := markdownImagePattern.ReplaceAllString(content, "")
	return strings.TrimRight(stripped, " \n"), children
}

// extractHashtags returns one hashtag child per distinct tag, in order of
// first appearance. The content itself is left untouched: tags stay
// readable in the text.
func extractHashtags(content string) []entity.Child {
	matches := hashtagPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	children := make([]entity.Child, 0, len(matches))
	for _, m := range matches {
		tag := m[2]
		if seen[tag] {
			continue
		}
		seen[tag] = true
		children = append(children, entity.Child{Kind: entity.ChildHashtag, Name: tag})
	}
	return children
}

// cleanupLinkifiedTags unwraps anchor-wrapped hashtags in inbound content.
func cleanupLinkifiedTags(content string) string {
	return linkifiedTagPattern.ReplaceAllString(content, "$1")
}

// absolutize prefixes host-relative URLs with the local base URL.
func absolutize(u, baseURL string) string {
	if baseURL == "" || !strings.HasPrefix(u, "/") {
		return u
	}
	return strings.TrimSuffix(baseURL, "/") + u
}
