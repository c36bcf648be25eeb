package platform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAssetToken covers the trailing-segment extraction on typical and odd names.
func TestAssetToken(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"node-datachannel-v0.29.0-linux-x64.tar.gz":       "linux-x64",
		"node-datachannel-v0.29.0-linuxmusl-arm64.tar.gz": "linuxmusl-arm64",
		"node-datachannel-v0.29.0-win32-ia32.tar.gz":      "win32-ia32",
		"darwin-arm64.tgz":                                "darwin-arm64",
		"weird.zip":                                       "weird",
		".tar.gz":                                         "",
		"":                                                "",
	}

	for name, want := range cases {
		require.Equal(t, want, AssetToken(name), name)
	}
}

// TestParseKey_Normalization verifies libc tagging for Linux variants.
func TestParseKey_Normalization(t *testing.T) {
	t.Parallel()

	key, ok := ParseKey("X-linux-x64.tar.gz")
	require.True(t, ok)
	require.Equal(t, Key{OS: "linux", Arch: "x64", Libc: LibcGlibc}, key)
	require.Equal(t, "linux-x64", key.PackageID())

	key, ok = ParseKey("X-linuxmusl-arm64.tar.gz")
	require.True(t, ok)
	require.Equal(t, Key{OS: "linux", Arch: "arm64", Libc: LibcMusl}, key)
	require.Equal(t, "linux-arm64", key.PackageID())
	require.Equal(t, "linuxmusl-arm64", key.DisambiguatedPackageID())

	key, ok = ParseKey("X-darwin-arm64.tar.gz")
	require.True(t, ok)
	require.Equal(t, Key{OS: "darwin", Arch: "arm64"}, key)
	require.Equal(t, "darwin-arm64", key.DisambiguatedPackageID())
	require.Equal(t, "darwin-arm64", key.String())
}

// TestParseKey_Rejects checks names that carry no os/arch pair.
func TestParseKey_Rejects(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"weird.zip", "", ".tar.gz", "release-.tar.gz", "-x64.tar.gz", "checksums.txt"} {
		_, ok := ParseKey(name)
		require.False(t, ok, name)
	}
}

// TestSet_InsertionOrder ensures ids keep first-seen order and repeats are ignored.
func TestSet_InsertionOrder(t *testing.T) {
	t.Parallel()

	var s Set

	require.True(t, s.Add("linux-x64"))
	require.True(t, s.Add("darwin-arm64"))
	require.False(t, s.Add("linux-x64"))
	require.True(t, s.Add("win32-x64"))

	require.Equal(t, []string{"linux-x64", "darwin-arm64", "win32-x64"}, s.Values())
	require.Equal(t, 3, s.Len())
	require.True(t, s.Contains("darwin-arm64"))
	require.False(t, s.Contains("linux-arm64"))

	values := s.Values()
	values[0] = "mutated"
	require.Equal(t, "linux-x64", s.Values()[0])

	require.Equal(t, s.Values(), NewSet("linux-x64", "darwin-arm64", "linux-x64", "win32-x64").Values())
	require.False(t, new(Set).Contains("linux-x64"))
}
