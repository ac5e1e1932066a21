package resolver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trusttri/federation/entity"
	"github.com/trusttri/federation/errors"
)

func actorDocument(id string) map[string]any {
	return map[string]any{
		"@context": "https://www.w3.org/ns/activitystreams",
		"id":       id,
		"type":     "Person",
		"name":     "Jane",
		"inbox":    id + "inbox/",
		"publicKey": map[string]any{
			"id":           id + "#main-key",
			"owner":        id,
			"publicKeyPem": "-----BEGIN PUBLIC KEY-----\nxyz\n-----END PUBLIC KEY-----",
		},
	}
}

func TestHTTPResolver_RetrieveProfileByURL(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, actorMediaType, req.Header.Get("Accept"))
		w.Header().Set("Content-Type", actorMediaType)
		_ = json.NewEncoder(w).Encode(actorDocument(server.URL + "/profile/999/"))
	}))
	defer server.Close()

	r, err := NewHTTP()
	require.NoError(t, err)

	profile, err := r.RetrieveProfile(context.Background(), server.URL+"/profile/999/")
	require.NoError(t, err)

	assert.Equal(t, entity.KindProfile, profile.Kind)
	assert.Equal(t, "Jane", profile.Name)
	assert.Contains(t, profile.PublicKeyPEM, "BEGIN PUBLIC KEY")
}

func TestHTTPResolver_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	r, err := NewHTTP()
	require.NoError(t, err)

	_, err = r.RetrieveProfile(context.Background(), server.URL+"/profile/999/")
	assert.ErrorIs(t, err, errors.ErrResolutionNotFound)
	assert.ErrorIs(t, err, errors.ErrActorResolution)
}

func TestHTTPResolver_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	r, err := NewHTTP()
	require.NoError(t, err)

	_, err = r.RetrieveProfile(context.Background(), server.URL+"/profile/999/")
	assert.ErrorIs(t, err, errors.ErrResolutionNetwork)
	assert.True(t, errors.IsTransient(err))
}

func TestHTTPResolver_MalformedDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"type": "Note", "id": "https://r.local/post/1/"}`))
	}))
	defer server.Close()

	r, err := NewHTTP()
	require.NoError(t, err)

	// A resolvable document that is not an actor is a malformed response
	_, err = r.RetrieveProfile(context.Background(), server.URL+"/profile/999/")
	assert.ErrorIs(t, err, errors.ErrResolutionMalformed)
}

func TestParseWebFinger(t *testing.T) {
	data := []byte(`{
		"subject": "acct:jane@domain.local",
		"links": [
			{"rel": "http://webfinger.net/rel/profile-page", "type": "text/html", "href": "https://domain.local/u/jane/"},
			{"rel": "self", "type": "application/activity+json", "href": "https://domain.local/profile/999/"}
		]
	}`)

	href, err := ParseWebFinger(data)
	require.NoError(t, err)
	assert.Equal(t, "https://domain.local/profile/999/", href)
}

func TestParseWebFinger_NoSelfLink(t *testing.T) {
	_, err := ParseWebFinger([]byte(`{"subject": "acct:jane@domain.local", "links": []}`))
	assert.ErrorIs(t, err, errors.ErrResolutionMalformed)
}

func TestParseNodeInfo(t *testing.T) {
	data := []byte(`{
		"version": "2.0",
		"software": {"name": "socialhome", "version": "1.0.0"},
		"protocols": ["activitypub", "diaspora"],
		"openRegistrations": true
	}`)

	info, err := ParseNodeInfo(data)
	require.NoError(t, err)
	assert.Equal(t, "socialhome", info.SoftwareName)
	assert.Equal(t, []string{"activitypub", "diaspora"}, info.Protocols)
	assert.True(t, info.OpenRegistration)
}

func TestParseNodeInfo_Malformed(t *testing.T) {
	_, err := ParseNodeInfo([]byte(`{"software": {}}`))
	assert.ErrorIs(t, err, errors.ErrResolutionMalformed)
}

func TestHandleDetection(t *testing.T) {
	assert.True(t, isHandle("jane@domain.local"))
	assert.True(t, isHandle("@jane@domain.local"))
	assert.False(t, isHandle("https://domain.local/profile/999/"))
	assert.Equal(t, "domain.local", handleDomain("jane@domain.local"))
	assert.Equal(t, "domain.local", handleDomain("@jane@domain.local"))
	assert.Equal(t, "", handleDomain("jane"))
}

func TestKeys_PublicKeyFor(t *testing.T) {
	withKey, err := entity.NewProfile("https://r.local/profile/1/",
		entity.WithPublicKey("-----BEGIN PUBLIC KEY-----\nxyz\n-----END PUBLIC KEY-----"))
	require.NoError(t, err)
	withoutKey, err := entity.NewProfile("https://r.local/profile/2/")
	require.NoError(t, err)

	keys := NewKeys(&fakeResolver{profiles: map[string]*entity.Entity{
		withKey.ID:    withKey,
		withoutKey.ID: withoutKey,
	}})

	pem, err := keys.PublicKeyFor(context.Background(), withKey.ID)
	require.NoError(t, err)
	assert.Contains(t, pem, "BEGIN PUBLIC KEY")

	_, err = keys.PublicKeyFor(context.Background(), withoutKey.ID)
	assert.ErrorIs(t, err, errors.ErrMissingPublicKey)
}
