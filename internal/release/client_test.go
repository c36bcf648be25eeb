package release

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleFeed = `{
  "name": "v0.29.0",
  "tag_name": "v0.29.0",
  "assets": [
    {"name": "node-datachannel-v0.29.0-linux-x64.tar.gz", "browser_download_url": "https://example.com/a.tar.gz"},
    {"name": "weird.zip", "browser_download_url": "https://example.com/weird.zip"}
  ]
}`

// TestDecode_Valid checks that assets keep feed order and extra fields are ignored.
func TestDecode_Valid(t *testing.T) {
	t.Parallel()

	rel, err := Decode(strings.NewReader(sampleFeed))
	require.NoError(t, err)
	require.Equal(t, "v0.29.0", rel.Name)
	require.Len(t, rel.Assets, 2)
	require.Equal(t, "node-datachannel-v0.29.0-linux-x64.tar.gz", rel.Assets[0].Name)
	require.Equal(t, "https://example.com/weird.zip", rel.Assets[1].DownloadURL)
}

// TestDecode_SchemaViolations covers every field the feed must provide.
func TestDecode_SchemaViolations(t *testing.T) {
	t.Parallel()

	cases := []struct {
		doc   string
		field string
	}{
		{`not json`, "$"},
		{`{"assets": []}`, "name"},
		{`{"name": 1, "assets": []}`, "$"},
		{`{"name": "v1"}`, "assets"},
		{`{"name": "v1", "assets": null}`, "assets"},
		{`{"name": "v1", "assets": [null]}`, "assets[0]"},
		{`{"name": "v1", "assets": [{"browser_download_url": "https://x/y"}]}`, "assets[0].name"},
		{`{"name": "v1", "assets": [{"name": "a"}]}`, "assets[0].browser_download_url"},
		{`{"name": "v1", "assets": [{"name": "a", "browser_download_url": "/relative"}]}`, "assets[0].browser_download_url"},
	}

	for _, tc := range cases {
		_, err := Decode(strings.NewReader(tc.doc))
		require.ErrorIs(t, err, ErrFeedSchema, tc.doc)

		var schemaErr *FeedSchemaError

		require.ErrorAs(t, err, &schemaErr)
		require.Equal(t, tc.field, schemaErr.Field, tc.doc)
	}
}

// TestClient_Fetch serves the feed and checks headers sent by the client.
func TestClient_Fetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if r.Header.Get("User-Agent") != "prebuild-test" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		_, _ = io.WriteString(w, sampleFeed)
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/releases/latest", WithToken("token"), WithUserAgent("prebuild-test"))

	rel, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, rel.Assets, 2)
}

// TestClient_Download_BadStatus ensures a non-success response is a DownloadError.
func TestClient_Download_BadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithTimeout(0))

	body, err := client.Download(context.Background(), srv.URL+"/missing.tar.gz?token=secret")
	require.Nil(t, body)
	require.ErrorIs(t, err, ErrDownload)

	var downloadErr *DownloadError

	require.ErrorAs(t, err, &downloadErr)
	require.Equal(t, http.StatusNotFound, downloadErr.StatusCode)
	require.NotContains(t, downloadErr.Error(), "secret")
}

// TestClient_TokenNotLeaked checks that the token stays on the feed host.
func TestClient_TokenNotLeaked(t *testing.T) {
	t.Parallel()

	var leaked atomic.Bool

	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		leaked.Store(r.Header.Get("Authorization") != "")
		_, _ = io.WriteString(w, "payload")
	}))
	defer cdn.Close()

	client := NewClient("https://api.example.com/releases/latest", WithToken("token"))

	body, err := client.Download(context.Background(), cdn.URL+"/asset.tar.gz")
	require.NoError(t, err)

	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))
	require.False(t, leaked.Load())
}

// TestNormalizeVersion strips the tag prefix and validates semver.
func TestNormalizeVersion(t *testing.T) {
	t.Parallel()

	v, err := NormalizeVersion("v0.29.0")
	require.NoError(t, err)
	require.Equal(t, "0.29.0", v)

	v, err = NormalizeVersion("0.0.0-dev.5")
	require.NoError(t, err)
	require.Equal(t, "0.0.0-dev.5", v)

	v, err = NormalizeVersion("1.2.3+build.7")
	require.NoError(t, err)
	require.Equal(t, "1.2.3+build.7", v)

	for _, name := range []string{"nightly", "v1.0", "1", "v2"} {
		_, err = NormalizeVersion(name)
		require.ErrorIs(t, err, ErrInvalidVersion, name)
	}
}
