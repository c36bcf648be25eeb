package selector

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
)

// Needle is the static native require the loader module ships with.
const Needle = `require("../../../build/Release/node_datachannel.node")`

const (
	loaderFileMode os.FileMode = 0o644
	loaderDirMode  os.FileMode = 0o755
)

// ErrLoaderNeedleNotFound is returned when the loader module has no native require to replace.
var ErrLoaderNeedleNotFound = errors.New("native require not found in loader module")

// RewriteLoader replaces the first occurrence of Needle in source with the
// procedure expression. Everything else is passed through unchanged.
func RewriteLoader(source []byte, procedure *Procedure) ([]byte, error) {
	needle := []byte(Needle)
	if !bytes.Contains(source, needle) {
		return nil, ErrLoaderNeedleNotFound
	}

	return bytes.Replace(source, needle, []byte(procedure.Expression()), 1), nil
}

// InstallLoader atomically replaces the file at path with content.
// A missing file is created first, since the swap needs an existing target.
func InstallLoader(path string, content []byte) error {
	path = filepath.Clean(path)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err = os.MkdirAll(filepath.Dir(path), loaderDirMode); err != nil {
			return fmt.Errorf("create loader directory: %w", err)
		}

		// The update swaps files, so the target has to exist first.
		placeholder, createErr := os.Create(path)
		if createErr != nil {
			return fmt.Errorf("create loader module: %w", createErr)
		}

		_ = placeholder.Close()
	} else if err != nil {
		return fmt.Errorf("stat loader module: %w", err)
	}

	options := goupdate.Options{
		TargetPath: path,
		TargetMode: loaderFileMode,
	}

	if err := goupdate.Apply(bytes.NewReader(content), options); err != nil {
		return fmt.Errorf("install loader module: %w", err)
	}

	return nil
}
