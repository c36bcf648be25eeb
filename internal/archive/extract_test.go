package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type entry struct {
	name     string
	typeflag byte
	body     string
	linkname string
}

// tarGz builds an in-memory gzip tar archive from the given entries.
func tarGz(t *testing.T, entries ...entry) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer

	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.name,
			Typeflag: e.typeflag,
			Mode:     0o644,
			Size:     int64(len(e.body)),
			Linkname: e.linkname,
		}

		if e.typeflag != tar.TypeReg {
			hdr.Size = 0
		}

		if e.typeflag == tar.TypeDir {
			hdr.Mode = 0o755
		}

		require.NoError(t, tw.WriteHeader(hdr))

		if e.typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())

	return &buf
}

// TestExtractTarGz_Layout extracts a prebuilt layout and checks files on disk.
func TestExtractTarGz_Layout(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "linux-x64")
	payload := tarGz(t,
		entry{name: "build/", typeflag: tar.TypeDir},
		entry{name: "build/Release/", typeflag: tar.TypeDir},
		entry{name: "build/Release/node_datachannel.node", typeflag: tar.TypeReg, body: "ELF"},
		entry{name: "build/Release/current.node", typeflag: tar.TypeSymlink, linkname: "node_datachannel.node"},
		entry{name: "build/fifo", typeflag: tar.TypeFifo},
	)

	stats, err := ExtractTarGz(context.Background(), payload, dir)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Files)
	require.EqualValues(t, 3, stats.Bytes)

	data, err := os.ReadFile(filepath.Join(dir, "build", "Release", "node_datachannel.node"))
	require.NoError(t, err)
	require.Equal(t, "ELF", string(data))

	link, err := os.Readlink(filepath.Join(dir, "build", "Release", "current.node"))
	require.NoError(t, err)
	require.Equal(t, "node_datachannel.node", link)

	_, err = os.Lstat(filepath.Join(dir, "build", "fifo"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestExtractTarGz_Malformed ensures non-gzip input is an archive error.
func TestExtractTarGz_Malformed(t *testing.T) {
	t.Parallel()

	_, err := ExtractTarGz(context.Background(), bytes.NewBufferString("<html>not found</html>"), t.TempDir())
	require.ErrorIs(t, err, ErrArchive)

	// Valid gzip wrapping garbage instead of a tar stream.
	var buf bytes.Buffer

	gw := gzip.NewWriter(&buf)
	_, err = gw.Write(bytes.Repeat([]byte{0x7f}, 1024))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	_, err = ExtractTarGz(context.Background(), &buf, t.TempDir())
	require.ErrorIs(t, err, ErrArchive)
}

// TestExtractTarGz_RejectsTraversal covers entries and links escaping the root.
func TestExtractTarGz_RejectsTraversal(t *testing.T) {
	t.Parallel()

	cases := []entry{
		{name: "../evil.node", typeflag: tar.TypeReg, body: "x"},
		{name: "/etc/evil", typeflag: tar.TypeReg, body: "x"},
		{name: "build/link", typeflag: tar.TypeSymlink, linkname: "../../outside"},
		{name: "build/abs", typeflag: tar.TypeSymlink, linkname: "/etc/passwd"},
	}

	for _, tc := range cases {
		base := t.TempDir()
		dir := filepath.Join(base, "pkg")

		_, err := ExtractTarGz(context.Background(), tarGz(t, tc), dir)
		require.ErrorIs(t, err, ErrArchive, tc.name)

		var archiveErr *Error

		require.ErrorAs(t, err, &archiveErr)
		require.Equal(t, tc.name, archiveErr.Entry)

		_, statErr := os.Stat(filepath.Join(base, "evil.node"))
		require.ErrorIs(t, statErr, os.ErrNotExist)
	}
}

// TestExtractTarGz_SymlinkChain writes through a chain of links that each look
// local on their own but together point above the destination.
func TestExtractTarGz_SymlinkChain(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	dir := filepath.Join(base, "pkg")
	victim := filepath.Join(base, "victim.txt")

	require.NoError(t, os.WriteFile(victim, []byte("original"), 0o600))

	payload := tarGz(t,
		entry{name: "a/b/", typeflag: tar.TypeDir},
		entry{name: "a/b/up", typeflag: tar.TypeSymlink, linkname: "../.."},
		entry{name: "a/b/up/esc", typeflag: tar.TypeSymlink, linkname: "../victim.txt"},
		entry{name: "a/b/up/esc", typeflag: tar.TypeReg, body: "pwned"},
	)

	_, err := ExtractTarGz(context.Background(), payload, dir)
	require.ErrorIs(t, err, ErrArchive)

	var archiveErr *Error

	require.ErrorAs(t, err, &archiveErr)
	require.Equal(t, "a/b/up/esc", archiveErr.Entry)

	data, err := os.ReadFile(victim)
	require.NoError(t, err)
	require.Equal(t, "original", string(data))
}

// TestExtractTarGz_Canceled stops before reading entries when the context is done.
func TestExtractTarGz_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	payload := tarGz(t, entry{name: "a.node", typeflag: tar.TypeReg, body: "x"})

	_, err := ExtractTarGz(ctx, payload, t.TempDir())
	require.ErrorIs(t, err, context.Canceled)
}
