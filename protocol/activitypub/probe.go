package activitypub

import (
	"context"
	"mime"
	"net/http"
	"time"

	"github.com/trusttri/federation/errors"
)

// Prober resolves the media type of a remote resource. Used to enrich actor
// icons with the mediaType the wire format requires.
type Prober interface {
	ContentType(ctx context.Context, resourceURL string) (string, error)
}

// HTTPProber probes media types with a HEAD request.
type HTTPProber struct {
	client *http.Client
}

// NewHTTPProber creates a prober. A nil client gets a default with a short
// timeout; probes are best-effort enrichment and must not stall the send
// path.
func NewHTTPProber(client *http.Client) *HTTPProber {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPProber{client: client}
}

// ContentType issues a HEAD request and returns the bare media type without
// parameters. All failures map to the transient ErrProbeFailed; callers
// degrade by omitting the enriched field.
func (p *HTTPProber) ContentType(ctx context.Context, resourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, resourceURL, nil)
	if err != nil {
		return "", errors.WrapInvalid(errors.ErrProbeFailed, "activitypub", "ContentType", err.Error())
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", errors.WrapTransient(errors.ErrProbeFailed, "activitypub", "ContentType", err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.WrapTransient(errors.ErrProbeFailed, "activitypub", "ContentType",
			"unexpected status "+resp.Status)
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType == "" {
		return "", errors.WrapTransient(errors.ErrProbeFailed, "activitypub", "ContentType",
			"no parseable content type")
	}
	return mediaType, nil
}
