// Package release talks to the release feed: it fetches the release document,
// validates it against the expected schema and streams asset payloads.
package release
