package resolver

import (
	"encoding/json"

	"github.com/trusttri/federation/errors"
)

// webFingerDocument is the discovery response for a user@domain handle.
type webFingerDocument struct {
	Subject string          `json:"subject"`
	Aliases []string        `json:"aliases"`
	Links   []webFingerLink `json:"links"`
}

type webFingerLink struct {
	Rel  string `json:"rel"`
	Type string `json:"type"`
	Href string `json:"href"`
}

// ParseWebFinger extracts the actor document URL from a WebFinger response.
// The self link with an ActivityStreams media type wins; a bare self link is
// accepted as fallback.
func ParseWebFinger(data []byte) (string, error) {
	var doc webFingerDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", errors.WrapInvalid(errors.ErrResolutionMalformed, "resolver", "ParseWebFinger", err.Error())
	}

	fallback := ""
	for _, link := range doc.Links {
		if link.Rel != "self" || link.Href == "" {
			continue
		}
		switch link.Type {
		case "application/activity+json",
			`application/ld+json; profile="https://www.w3.org/ns/activitystreams"`:
			return link.Href, nil
		default:
			if fallback == "" {
				fallback = link.Href
			}
		}
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", errors.WrapInvalid(errors.ErrResolutionMalformed, "resolver", "ParseWebFinger",
		"no self link in document")
}

// parseNodeInfoIndex extracts the schema document URL from the well-known
// nodeinfo index, which links schema versions rather than self relations.
func parseNodeInfoIndex(data []byte) (string, error) {
	var doc webFingerDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", errors.WrapInvalid(errors.ErrResolutionMalformed, "resolver", "parseNodeInfoIndex", err.Error())
	}
	for _, link := range doc.Links {
		if link.Href != "" {
			return link.Href, nil
		}
	}
	return "", errors.WrapInvalid(errors.ErrResolutionMalformed, "resolver", "parseNodeInfoIndex",
		"index has no linked schema document")
}

// NodeInfo describes a remote server's software and protocol support,
// consumed when deciding which protocol adapter a destination speaks.
type NodeInfo struct {
	SoftwareName     string
	SoftwareVersion  string
	Protocols        []string
	OpenRegistration bool
}

// nodeInfoDocument is the well-known nodeinfo 2.x schema subset we read.
type nodeInfoDocument struct {
	Software struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"software"`
	Protocols         []string `json:"protocols"`
	OpenRegistrations bool     `json:"openRegistrations"`
}

// ParseNodeInfo parses a nodeinfo 2.x document.
func ParseNodeInfo(data []byte) (*NodeInfo, error) {
	var doc nodeInfoDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapInvalid(errors.ErrResolutionMalformed, "resolver", "ParseNodeInfo", err.Error())
	}
	if doc.Software.Name == "" {
		return nil, errors.WrapInvalid(errors.ErrResolutionMalformed, "resolver", "ParseNodeInfo",
			"document has no software name")
	}
	return &NodeInfo{
		SoftwareName:     doc.Software.Name,
		SoftwareVersion:  doc.Software.Version,
		Protocols:        doc.Protocols,
		OpenRegistration: doc.OpenRegistrations,
	}, nil
}
