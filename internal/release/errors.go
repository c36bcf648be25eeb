package release

import (
	"errors"
	"fmt"
)

var (
	// ErrFeedSchema is wrapped by FeedSchemaError.
	ErrFeedSchema = errors.New("release feed does not match schema")
	// ErrDownload is wrapped by DownloadError.
	ErrDownload = errors.New("download failed")
	// ErrInvalidVersion indicates the release version is not valid semver.
	ErrInvalidVersion = errors.New("invalid semantic version")
)

// FeedSchemaError reports a release document that is missing required fields.
type FeedSchemaError struct {
	// Field is the JSON path of the offending field, e.g. "assets[2].browser_download_url".
	Field string
	// Reason describes what is wrong with the field.
	Reason string
}

// Error formats the offending field and the reason.
func (e *FeedSchemaError) Error() string {
	return fmt.Sprintf("release feed: %s: %s", e.Field, e.Reason)
}

// Unwrap returns ErrFeedSchema so callers can use errors.Is.
func (e *FeedSchemaError) Unwrap() error { return ErrFeedSchema }

// DownloadError reports a transfer that did not complete with a success status.
type DownloadError struct {
	// URL is the requested location with query and fragment removed.
	URL string
	// StatusCode is the HTTP status, zero when no response was received.
	StatusCode int
	// Status is the HTTP status text.
	Status string
	// Err is the transport error, if any.
	Err error
}

// Error formats the failed URL with either the status or the transport error.
func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to download %s: %v", e.URL, e.Err)
	}

	return fmt.Sprintf("failed to download %s: %s", e.URL, e.Status)
}

// Unwrap returns both ErrDownload and the transport error.
func (e *DownloadError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDownload}
	}

	return []error{ErrDownload, e.Err}
}
