package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/oshokin/datachannels-prebuild/internal/domain/platform"
)

// maxFeedBytes is the upper bound on the release document size (10 MB).
const maxFeedBytes = 10 << 20

type (
	// Release is a validated release document.
	Release struct {
		// Name is the release name, usually the tag ("v0.29.0").
		Name string
		// Assets are the downloadable files in feed order.
		Assets []platform.ReleaseAsset
	}

	// feedRelease is the JSON wire format. Pointers tell missing fields from empty ones.
	feedRelease struct {
		Name   *string       `json:"name"`
		Assets *[]*feedAsset `json:"assets"`
	}

	// feedAsset is the JSON wire format of a single asset.
	feedAsset struct {
		Name               *string `json:"name"`
		BrowserDownloadURL *string `json:"browser_download_url"`
	}

	// Client fetches the release document and asset payloads.
	Client struct {
		httpClient *http.Client
		feedURL    string
		token      string
		userAgent  string
	}

	// Option configures a Client during construction.
	Option func(*Client)
)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithTimeout bounds every request made by the client.
func WithTimeout(timeout time.Duration) Option {
	return func(cl *Client) {
		if timeout > 0 {
			cl.httpClient = &http.Client{
				Transport: cl.httpClient.Transport,
				Timeout:   timeout,
			}
		}
	}
}

// WithToken sets a bearer token sent to the feed host.
func WithToken(token string) Option {
	return func(cl *Client) {
		cl.token = token
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// NewClient creates a client for the release document at feedURL.
func NewClient(feedURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		feedURL:    feedURL,
		userAgent:  "datachannels-prebuild/dev",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Fetch downloads and validates the release document.
// Schema violations are reported as *FeedSchemaError, bad statuses as *DownloadError.
func (c *Client) Fetch(ctx context.Context) (*Release, error) {
	body, err := c.get(ctx, c.feedURL, "application/vnd.github+json")
	if err != nil {
		return nil, err
	}

	defer func() { _ = body.Close() }()

	return Decode(io.LimitReader(body, maxFeedBytes))
}

// Download streams the payload at assetURL. The caller closes the returned body.
func (c *Client) Download(ctx context.Context, assetURL string) (io.ReadCloser, error) {
	return c.get(ctx, assetURL, "application/octet-stream")
}

// Decode parses and validates a release document.
func Decode(r io.Reader) (*Release, error) {
	var raw feedRelease
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, &FeedSchemaError{Field: "$", Reason: err.Error()}
	}

	if raw.Name == nil {
		return nil, &FeedSchemaError{Field: "name", Reason: "required"}
	}

	if raw.Assets == nil {
		return nil, &FeedSchemaError{Field: "assets", Reason: "required"}
	}

	release := &Release{
		Name:   *raw.Name,
		Assets: make([]platform.ReleaseAsset, 0, len(*raw.Assets)),
	}

	for i, asset := range *raw.Assets {
		field := fmt.Sprintf("assets[%d]", i)

		if asset == nil {
			return nil, &FeedSchemaError{Field: field, Reason: "must be an object"}
		}

		if asset.Name == nil {
			return nil, &FeedSchemaError{Field: field + ".name", Reason: "required"}
		}

		if asset.BrowserDownloadURL == nil {
			return nil, &FeedSchemaError{Field: field + ".browser_download_url", Reason: "required"}
		}

		if !isAbsoluteURL(*asset.BrowserDownloadURL) {
			return nil, &FeedSchemaError{Field: field + ".browser_download_url", Reason: "must be an absolute URL"}
		}

		release.Assets = append(release.Assets, platform.ReleaseAsset{
			Name:        *asset.Name,
			DownloadURL: *asset.BrowserDownloadURL,
		})
	}

	return release, nil
}

// NormalizeVersion strips the leading "v" of a release name and checks that the
// remainder is a semantic version.
func NormalizeVersion(name string) (string, error) {
	trimmed := strings.TrimSpace(name)

	tagged := trimmed
	if !strings.HasPrefix(tagged, "v") {
		tagged = "v" + tagged
	}

	// semver accepts shorthands like v1.0; npm does not.
	if !semver.IsValid(tagged) || semver.Canonical(tagged) != strings.TrimSuffix(tagged, semver.Build(tagged)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, name)
	}

	return strings.TrimPrefix(tagged, "v"), nil
}

// get executes a GET request and returns the body of a successful response.
func (c *Client) get(ctx context.Context, rawURL, accept string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)

	// Only attach the token when the request targets the feed host.
	if c.token != "" && c.isFeedHost(req.URL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &DownloadError{URL: redactURL(rawURL), Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_ = resp.Body.Close()

		return nil, &DownloadError{
			URL:        redactURL(rawURL),
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	return resp.Body, nil
}

// isFeedHost reports whether u points at the same host as the feed URL.
func (c *Client) isFeedHost(u *url.URL) bool {
	feed, err := url.Parse(c.feedURL)
	if err != nil {
		return false
	}

	return strings.EqualFold(u.Host, feed.Host)
}

// isAbsoluteURL reports whether s parses as a URL with a scheme and a host.
func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}

	return u.Scheme != "" && u.Host != ""
}

// redactURL strips query parameters and fragments from a URL for error messages.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}

	u.RawQuery = ""
	u.Fragment = ""

	return u.String()
}
