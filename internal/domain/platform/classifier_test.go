package platform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func assets(names ...string) []ReleaseAsset {
	result := make([]ReleaseAsset, 0, len(names))
	for _, name := range names {
		result = append(result, ReleaseAsset{Name: name, DownloadURL: "https://example.com/" + name})
	}

	return result
}

// TestClassify_GlibcAndMusl classifies a glibc build and a musl build for different arches.
func TestClassify_GlibcAndMusl(t *testing.T) {
	t.Parallel()

	got, err := NewClassifier(CollisionOverwrite).Classify(assets(
		"node-datachannel-v1.0.0-linux-x64.tar.gz",
		"node-datachannel-v1.0.0-linuxmusl-arm64.tar.gz",
	))
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, "linux-x64", got[0].PackageID)
	require.Equal(t, LibcGlibc, got[0].Key.Libc)
	require.Equal(t, "linux-arm64", got[1].PackageID)
	require.Equal(t, LibcMusl, got[1].Key.Libc)
	require.Equal(t, "linux", got[1].Key.OS)
	require.False(t, got[0].Repeat)
	require.False(t, got[1].Repeat)
}

// TestClassify_SkipsUnrecognized ensures odd names are silently excluded.
func TestClassify_SkipsUnrecognized(t *testing.T) {
	t.Parallel()

	got, err := NewClassifier("").Classify(assets("weird.zip", "X-darwin-x64.tar.gz", ".tar.gz"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "darwin-x64", got[0].PackageID)
	require.Equal(t, "https://example.com/X-darwin-x64.tar.gz", got[0].Asset.DownloadURL)
}

// TestClassify_CollisionPolicies checks the four ways a glibc/musl clash is handled.
func TestClassify_CollisionPolicies(t *testing.T) {
	t.Parallel()

	clash := assets("X-linux-x64.tar.gz", "X-linuxmusl-x64.tar.gz")

	for _, policy := range []CollisionPolicy{CollisionOverwrite, CollisionMerge} {
		got, err := NewClassifier(policy).Classify(clash)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, got[0].PackageID, got[1].PackageID)
		require.True(t, got[1].Repeat)
		require.Equal(t, []string{"linux-x64"}, PackageSet(got).Values())
	}

	_, err := NewClassifier(CollisionAbort).Classify(clash)
	require.ErrorIs(t, err, ErrPackageCollision)

	var collision *CollisionError

	require.ErrorAs(t, err, &collision)
	require.Equal(t, "linux-x64", collision.PackageID)
	require.Equal(t, "X-linux-x64.tar.gz", collision.First)
	require.Equal(t, "X-linuxmusl-x64.tar.gz", collision.Second)

	got, err := NewClassifier(CollisionDisambiguate).Classify(clash)
	require.NoError(t, err)
	require.Equal(t, []string{"linux-x64", "linuxmusl-x64"}, PackageSet(got).Values())
	require.False(t, got[1].Repeat)
}

// TestPackageSet_Deterministic verifies that the same feed yields the same order twice.
func TestPackageSet_Deterministic(t *testing.T) {
	t.Parallel()

	feed := assets(
		"X-win32-x64.tar.gz",
		"X-linux-arm64.tar.gz",
		"X-darwin-arm64.tar.gz",
		"X-linux-x64.tar.gz",
	)

	first, err := NewClassifier(CollisionOverwrite).Classify(feed)
	require.NoError(t, err)

	second, err := NewClassifier(CollisionOverwrite).Classify(feed)
	require.NoError(t, err)

	require.Equal(t, PackageSet(first).Values(), PackageSet(second).Values())
	require.Equal(t, []string{"win32-x64", "linux-arm64", "darwin-arm64", "linux-x64"}, PackageSet(first).Values())
}

// TestParseCollisionPolicy checks accepted values and the default.
func TestParseCollisionPolicy(t *testing.T) {
	t.Parallel()

	policy, err := ParseCollisionPolicy("")
	require.NoError(t, err)
	require.Equal(t, CollisionOverwrite, policy)

	policy, err = ParseCollisionPolicy(" Disambiguate ")
	require.NoError(t, err)
	require.Equal(t, CollisionDisambiguate, policy)

	_, err = ParseCollisionPolicy("rename")
	require.Error(t, err)
}
