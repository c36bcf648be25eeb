package platform

import "strings"

const (
	// LibcGlibc marks builds linked against the GNU C library.
	LibcGlibc = "glibc"
	// LibcMusl marks builds linked against musl.
	LibcMusl = "musl"

	osLinux     = "linux"
	osLinuxMusl = "linuxmusl"
)

// ReleaseAsset is a single downloadable file listed by the release feed.
type ReleaseAsset struct {
	// Name is the asset file name, e.g. "node-datachannel-v0.29.0-linux-x64.tar.gz".
	Name string
	// DownloadURL is the absolute URL the payload is fetched from.
	DownloadURL string
}

// Key is the normalized platform triple parsed from an asset name.
type Key struct {
	// OS is the npm "os" value (linux, darwin, win32...).
	OS string
	// Arch is the npm "cpu" value (x64, arm64...).
	Arch string
	// Libc is "glibc" or "musl" for Linux builds and empty elsewhere.
	Libc string
}

// Valid reports whether both OS and Arch are present.
func (k Key) Valid() bool {
	return k.OS != "" && k.Arch != ""
}

// PackageID returns the "<os>-<arch>" identifier of the key.
func (k Key) PackageID() string {
	return k.OS + "-" + k.Arch
}

// DisambiguatedPackageID returns a PackageID that keeps musl builds apart from
// glibc builds by using the raw "linuxmusl" token.
func (k Key) DisambiguatedPackageID() string {
	if k.Libc == LibcMusl {
		return osLinuxMusl + "-" + k.Arch
	}

	return k.PackageID()
}

// String renders the key for logs.
func (k Key) String() string {
	if k.Libc == "" {
		return k.PackageID()
	}

	return k.PackageID() + " (" + k.Libc + ")"
}

// AssetToken derives the "<os>-<arch>" token from an asset name: the last two
// hyphen-separated segments joined back together and cut at the first dot.
// Names with a single segment yield that segment without its extension.
func AssetToken(name string) string {
	segments := strings.Split(name, "-")
	if len(segments) > 2 {
		segments = segments[len(segments)-2:]
	}

	token, _, _ := strings.Cut(strings.Join(segments, "-"), ".")

	return token
}

// ParseKey parses an asset name into a platform Key.
// The second return value is false when the name carries no usable os/arch pair.
func ParseKey(name string) (Key, bool) {
	token := AssetToken(name)
	if token == "" {
		return Key{}, false
	}

	osToken, archToken, _ := strings.Cut(token, "-")

	key := Key{
		OS:   osToken,
		Arch: archToken,
	}

	switch osToken {
	case osLinuxMusl:
		key.OS = osLinux
		key.Libc = LibcMusl
	case osLinux:
		key.Libc = LibcGlibc
	}

	if !key.Valid() {
		return Key{}, false
	}

	return key, true
}
