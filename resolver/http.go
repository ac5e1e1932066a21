package resolver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/trusttri/federation/entity"
	"github.com/trusttri/federation/errors"
	"github.com/trusttri/federation/protocol/activitypub"
)

const actorMediaType = "application/activity+json"

// maxDocumentSize bounds discovery and actor document bodies.
const maxDocumentSize = 1 << 20

// HTTPResolver resolves actor profiles over HTTP: WebFinger discovery for
// user@domain handles, then an ActivityPub actor document fetch.
type HTTPResolver struct {
	client  *http.Client
	adapter *activitypub.Adapter
	logger  *slog.Logger
}

// HTTPOption is a configuration option for the HTTP resolver.
type HTTPOption func(*HTTPResolver)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(r *HTTPResolver) {
		r.client = client
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(r *HTTPResolver) {
		r.logger = logger
	}
}

// NewHTTP creates an HTTP resolver.
func NewHTTP(opts ...HTTPOption) (*HTTPResolver, error) {
	adapter, err := activitypub.New()
	if err != nil {
		return nil, err
	}

	r := &HTTPResolver{
		client:  &http.Client{Timeout: 15 * time.Second},
		adapter: adapter,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RetrieveProfile resolves an identifier to a Profile entity. Handles go
// through WebFinger discovery first; actor URIs are fetched directly.
func (r *HTTPResolver) RetrieveProfile(ctx context.Context, identifier string) (*entity.Entity, error) {
	actorURL := identifier
	if isHandle(identifier) {
		discovered, err := r.discover(ctx, identifier)
		if err != nil {
			return nil, err
		}
		actorURL = discovered
	}

	body, err := r.fetch(ctx, actorURL, actorMediaType)
	if err != nil {
		return nil, err
	}

	profile, err := r.adapter.Unmarshal(ctx, body, nil)
	if err != nil {
		return nil, errors.WrapInvalid(errors.ErrResolutionMalformed, "resolver", "RetrieveProfile", err.Error())
	}
	if profile.Kind != entity.KindProfile {
		return nil, errors.WrapInvalid(errors.ErrResolutionMalformed, "resolver", "RetrieveProfile",
			fmt.Sprintf("document at %s is a %s, not an actor", actorURL, profile.Kind))
	}

	r.logger.Debug("resolved remote profile", "identifier", identifier, "actor", profile.ID)
	return profile, nil
}

// discover resolves a user@domain handle to an actor URL via WebFinger.
func (r *HTTPResolver) discover(ctx context.Context, handle string) (string, error) {
	domain := handleDomain(handle)
	if domain == "" {
		return "", errors.WrapInvalid(errors.ErrResolutionMalformed, "resolver", "discover",
			fmt.Sprintf("identifier %q is neither a URI nor a handle", handle))
	}

	endpoint := fmt.Sprintf("https://%s/.well-known/webfinger?resource=%s",
		domain, url.QueryEscape("acct:"+strings.TrimPrefix(handle, "@")))

	body, err := r.fetch(ctx, endpoint, "application/jrd+json")
	if err != nil {
		return "", err
	}
	return ParseWebFinger(body)
}

// ResolveNodeInfo fetches a domain's nodeinfo document, following the
// well-known link indirection.
func (r *HTTPResolver) ResolveNodeInfo(ctx context.Context, domain string) (*NodeInfo, error) {
	body, err := r.fetch(ctx, fmt.Sprintf("https://%s/.well-known/nodeinfo", domain), "application/json")
	if err != nil {
		return nil, err
	}

	href, err := parseNodeInfoIndex(body)
	if err != nil {
		return nil, err
	}

	body, err = r.fetch(ctx, href, "application/json")
	if err != nil {
		return nil, err
	}
	return ParseNodeInfo(body)
}

// fetch performs a GET and maps transport and status failures onto the
// resolution error subkinds.
func (r *HTTPResolver) fetch(ctx context.Context, fetchURL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, errors.WrapInvalid(errors.ErrResolutionMalformed, "resolver", "fetch", err.Error())
	}
	req.Header.Set("Accept", accept)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errors.WrapTransient(errors.ErrResolutionNetwork, "resolver", "fetch", err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, errors.WrapInvalid(errors.ErrResolutionNotFound, "resolver", "fetch", fetchURL)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, errors.WrapTransient(errors.ErrResolutionNetwork, "resolver", "fetch",
			fmt.Sprintf("%s returned %s", fetchURL, resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, errors.WrapTransient(errors.ErrResolutionNetwork, "resolver", "fetch", err.Error())
	}
	return body, nil
}

// isHandle reports whether an identifier is a user@domain handle rather
// than a URI.
func isHandle(identifier string) bool {
	return !strings.Contains(identifier, "://") && strings.Contains(identifier, "@")
}

// handleDomain extracts the domain from a user@domain handle.
func handleDomain(handle string) string {
	handle = strings.TrimPrefix(handle, "@")
	parts := strings.SplitN(handle, "@", 2)
	if len(parts) != 2 || parts[1] == "" {
		return ""
	}
	return parts[1]
}
