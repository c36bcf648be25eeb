// Package releasetest serves a fake release feed for tests.
package releasetest

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	feedPath   = "/releases/latest"
	assetsPath = "/assets/"
)

// BinaryPath is the binary location inside every generated archive.
const BinaryPath = "build/Release/node_datachannel.node"

// Asset is one file published by the fake feed.
type Asset struct {
	// Name is the published file name.
	Name string
	// Files are packed into a gzip tar payload when Raw is nil.
	Files map[string]string
	// Raw replaces the generated payload.
	Raw []byte
	// Status overrides the 200 response of the download.
	Status int
}

// Binary returns an asset whose archive holds a single binary with the given body.
func Binary(name, body string) Asset {
	return Asset{
		Name:  name,
		Files: map[string]string{BinaryPath: body},
	}
}

// Feed is a running fake release feed.
type Feed struct {
	server    *httptest.Server
	release   string
	assets    []Asset
	payloads  map[string][]byte
	downloads atomic.Int64
	requests  atomic.Int64
}

// NewFeed starts a feed publishing the given release. The server is closed with the test.
func NewFeed(t testing.TB, release string, assets ...Asset) *Feed {
	t.Helper()

	f := &Feed{
		release:  release,
		assets:   assets,
		payloads: make(map[string][]byte, len(assets)),
	}

	for _, asset := range assets {
		payload := asset.Raw
		if payload == nil {
			payload = TarGz(t, asset.Files)
		}

		f.payloads[asset.Name] = payload
	}

	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)

	return f
}

// URL returns the feed endpoint.
func (f *Feed) URL() string {
	return f.server.URL + feedPath
}

// Downloads returns how many asset downloads were requested.
func (f *Feed) Downloads() int64 {
	return f.downloads.Load()
}

// Requests returns how many times the feed document was requested.
func (f *Feed) Requests() int64 {
	return f.requests.Load()
}

// Payload returns the archive bytes served for an asset.
func (f *Feed) Payload(name string) []byte {
	return f.payloads[name]
}

func (f *Feed) serve(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == feedPath:
		f.requests.Add(1)
		f.serveRelease(w)
	case strings.HasPrefix(r.URL.Path, assetsPath):
		f.downloads.Add(1)
		f.serveAsset(w, strings.TrimPrefix(r.URL.Path, assetsPath))
	default:
		http.NotFound(w, r)
	}
}

func (f *Feed) serveRelease(w http.ResponseWriter) {
	type asset struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	}

	doc := struct {
		Name   string  `json:"name"`
		Assets []asset `json:"assets"`
	}{
		Name:   f.release,
		Assets: make([]asset, 0, len(f.assets)),
	}

	for _, a := range f.assets {
		doc.Assets = append(doc.Assets, asset{
			Name:               a.Name,
			BrowserDownloadURL: f.server.URL + assetsPath + a.Name,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}

func (f *Feed) serveAsset(w http.ResponseWriter, name string) {
	idx := slices.IndexFunc(f.assets, func(a Asset) bool { return a.Name == name })
	if idx < 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if status := f.assets[idx].Status; status != 0 && status != http.StatusOK {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(f.payloads[name])
}

// TarGz packs files into a gzip tar archive. Entries are written in name order.
func TarGz(t testing.TB, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer

	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		body := files[name]

		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(body)),
		}))

		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())

	return buf.Bytes()
}
