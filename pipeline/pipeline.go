// Package pipeline implements the entity lifecycle: PreSend enrichment of
// outbound entities, PostReceive processing of inbound ones, and a Driver
// that executes the side-effect commands the transforms request (profile
// resolution, accept dispatch) against injected collaborators.
package pipeline

import (
	"log/slog"

	"github.com/microcosm-cc/bluemonday"

	"github.com/trusttri/federation/entity"
	"github.com/trusttri/federation/errors"
)

// Pipeline holds the pure lifecycle transforms. Both transforms are
// one-shot: they mutate the entity in place and idempotency is not
// guaranteed across repeated calls on the same entity.
type Pipeline struct {
	baseURL   string
	sanitizer *bluemonday.Policy
	logger    *slog.Logger
}

// Option is a configuration option for the pipeline.
type Option func(*Pipeline)

// WithBaseURL sets the local platform base URL used to absolutize
// host-relative media references.
func WithBaseURL(baseURL string) Option {
	return func(p *Pipeline) {
		p.baseURL = baseURL
	}
}

// WithSanitizer replaces the default UGC sanitization policy.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(p *Pipeline) {
		p.sanitizer = policy
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		sanitizer: bluemonday.UGCPolicy(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PreSend enriches an outbound entity before serialization: markdown image
// references become image children in order of appearance, hashtags become
// tag children, and host-relative URLs are absolutized. Returns the entity
// and the commands the driver must execute before dispatch.
func (p *Pipeline) PreSend(e *entity.Entity) (*entity.Entity, []Command, error) {
	if e == nil {
		return nil, nil, errors.WrapInvalid(errors.ErrMissingRequiredField, "pipeline", "PreSend", "nil entity")
	}

	switch e.Kind {
	case entity.KindPost, entity.KindComment:
		content, images := extractImages(e.RawContent, p.baseURL)
		e.RawContent = content
		e.Children = append(e.Children, images...)
		e.Children = append(e.Children, p.newHashtags(e)...)
		for i, c := range e.Children {
			if c.Kind == entity.ChildMention {
				e.Children[i].URL = absolutize(c.URL, p.baseURL)
			}
		}
		e.URL = absolutize(e.URL, p.baseURL)
	case entity.KindProfile:
		e.IconURL = absolutize(e.IconURL, p.baseURL)
		e.URL = absolutize(e.URL, p.baseURL)
	}

	return e, nil, nil
}

// newHashtags extracts hashtag children not already present on the entity.
func (p *Pipeline) newHashtags(e *entity.Entity) []entity.Child {
	existing := make(map[string]bool, len(e.Children))
	for _, c := range e.Children {
		if c.Kind == entity.ChildHashtag {
			existing[c.Name] = true
		}
	}

	var fresh []entity.Child
	for _, tag := range extractHashtags(e.RawContent) {
		if !existing[tag.Name] {
			fresh = append(fresh, tag)
		}
	}
	return fresh
}

// PostReceive processes an inbound entity after deserialization and
// verification: content is sanitized and linkified tags unwrapped, and an
// inbound follow yields the commands that resolve the follower and dispatch
// the accept.
func (p *Pipeline) PostReceive(e *entity.Entity) (*entity.Entity, []Command, error) {
	if e == nil {
		return nil, nil, errors.WrapInvalid(errors.ErrMissingRequiredField, "pipeline", "PostReceive", "nil entity")
	}

	switch e.Kind {
	case entity.KindPost, entity.KindComment:
		e.RawContent = cleanupLinkifiedTags(p.sanitizer.Sanitize(e.RawContent))
	case entity.KindProfile:
		e.Summary = p.sanitizer.Sanitize(e.Summary)
	case entity.KindFollow:
		return e, []Command{
			FetchProfile{Identifier: e.ActorID},
			DispatchAccept{Follow: e},
		}, nil
	}

	return e, nil, nil
}
