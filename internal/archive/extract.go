package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/datachannels-prebuild/internal/logger"
)

const (
	// maxEntryBytes is the upper bound on a single extracted file (500 MB).
	maxEntryBytes = 500 << 20

	dirMode os.FileMode = 0o755
)

var (
	// ErrArchive is wrapped by every extraction failure.
	ErrArchive = errors.New("malformed archive")

	errEscapesRoot = errors.New("entry escapes destination")
	errTooLarge    = errors.New("entry exceeds size limit")
)

// Error reports a payload that could not be extracted.
type Error struct {
	// Entry is the tar entry being processed, empty for stream-level failures.
	Entry string
	// Err is the underlying failure.
	Err error
}

// Error formats the entry and the cause.
func (e *Error) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("extract archive: %v", e.Err)
	}

	return fmt.Sprintf("extract archive entry %q: %v", e.Entry, e.Err)
}

// Unwrap returns ErrArchive and the underlying cause.
func (e *Error) Unwrap() []error {
	return []error{ErrArchive, e.Err}
}

// Stats summarizes an extraction.
type Stats struct {
	// Files is the number of regular files written.
	Files int
	// Bytes is the total size of the regular files written.
	Bytes int64
}

// ExtractTarGz unpacks the gzip tar stream r below dir.
// Directories, regular files and symlinks pointing inside dir are materialized;
// other entry types are skipped. All writes go through an os.Root opened at dir,
// so symlinks planted by earlier entries cannot redirect later ones outside it.
// Any failure is returned as *Error.
func ExtractTarGz(ctx context.Context, r io.Reader, dir string) (Stats, error) {
	var stats Stats

	if err := os.MkdirAll(dir, dirMode); err != nil {
		return stats, &Error{Err: err}
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return stats, &Error{Err: err}
	}

	defer func() {
		_ = root.Close()
	}()

	gz, err := gzip.NewReader(r)
	if err != nil {
		return stats, &Error{Err: err}
	}

	defer func() {
		// Read-only stream; close errors carry no information.
		_ = gz.Close()
	}()

	tr := tar.NewReader(gz)

	for {
		if err = ctx.Err(); err != nil {
			return stats, err
		}

		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}

		if nextErr != nil {
			return stats, &Error{Entry: entryName(hdr), Err: nextErr}
		}

		name, nameErr := within(hdr.Name)
		if nameErr != nil {
			return stats, &Error{Entry: hdr.Name, Err: nameErr}
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			err = root.MkdirAll(name, dirMode)
		case tar.TypeReg:
			var written int64

			written, err = writeFile(root, tr, name, hdr.FileInfo().Mode().Perm())
			if err == nil {
				stats.Files++
				stats.Bytes += written
			}
		case tar.TypeSymlink:
			err = writeSymlink(root, name, hdr.Linkname)
		default:
			logger.DebugKV(ctx, "Skipping archive entry", "entry", hdr.Name, "type", string(hdr.Typeflag))
		}

		if err != nil {
			return stats, &Error{Entry: hdr.Name, Err: err}
		}
	}

	return stats, nil
}

// entryName returns the header name or an empty string for a nil header.
func entryName(hdr *tar.Header) string {
	if hdr == nil {
		return ""
	}

	return hdr.Name
}

// within cleans name into a root-relative path and rejects absolute or escaping ones.
func within(name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", errEscapesRoot
	}

	rel := filepath.Clean(filepath.FromSlash(name))
	if escapes(rel) {
		return "", errEscapesRoot
	}

	return rel, nil
}

// escapes reports whether the cleaned relative path leaves its base.
func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// writeFile copies one regular entry to name, creating parent directories.
func writeFile(root *os.Root, r io.Reader, name string, mode os.FileMode) (_ int64, err error) {
	if err = root.MkdirAll(filepath.Dir(name), dirMode); err != nil {
		return 0, err
	}

	if mode == 0 {
		mode = 0o644
	}

	f, err := root.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return 0, err
	}

	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	// Read one byte past the limit to detect oversized entries.
	written, err := io.Copy(f, io.LimitReader(r, maxEntryBytes+1))
	if err != nil {
		return written, err
	}

	if written > maxEntryBytes {
		return written, errTooLarge
	}

	return written, nil
}

// writeSymlink creates name pointing at linkname when the link stays inside root.
// The check is lexical; following a chain of links is left to os.Root, which
// refuses any later open that would resolve outside the directory.
func writeSymlink(root *os.Root, name, linkname string) error {
	if filepath.IsAbs(linkname) {
		return errEscapesRoot
	}

	if escapes(filepath.Join(filepath.Dir(name), filepath.FromSlash(linkname))) {
		return errEscapesRoot
	}

	if err := root.MkdirAll(filepath.Dir(name), dirMode); err != nil {
		return err
	}

	// Replace whatever an earlier payload left at this path.
	_ = root.Remove(name)

	return root.Symlink(linkname, name)
}
