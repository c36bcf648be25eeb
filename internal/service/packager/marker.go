package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/datachannels-prebuild/internal/logger"
)

// markerSuffix is appended to the prebuilt directory to name the run marker.
const markerSuffix = ".lock"

// errPackagerRunning indicates that another run owns the prebuilt directory.
var errPackagerRunning = errors.New("the packager is running now")

// runMarker is a file holding the PID of the run that owns the output tree.
type runMarker struct {
	path string
}

// markerPath returns the marker location for a prebuilt directory.
func markerPath(prebuiltDir string) string {
	return filepath.Clean(prebuiltDir) + markerSuffix
}

// acquireMarker creates the run marker, clearing a stale one left by a dead process.
func acquireMarker(ctx context.Context, prebuiltDir string) (*runMarker, error) {
	path := markerPath(prebuiltDir)

	if isPackagerRunningNow(ctx, path) {
		return nil, errPackagerRunning
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create marker directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, errPackagerRunning
		}

		return nil, fmt.Errorf("create run marker: %w", err)
	}

	_, err = f.WriteString(strconv.Itoa(os.Getpid()))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write run marker: %w", err)
	}

	logger.DebugKV(ctx, "Acquired run marker", "path", path)

	return &runMarker{path: path}, nil
}

// release removes the marker.
func (m *runMarker) release(ctx context.Context) {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to remove run marker", "path", m.path, "error", err)
	}
}

// isPackagerRunningNow checks the marker and removes it when its owner is gone.
func isPackagerRunningNow(ctx context.Context, path string) bool {
	contents, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return false
	}

	if err != nil {
		logger.WarnKV(ctx, "Unable to read run marker", "path", path, "error", err)
		return true
	}

	if pid, convErr := strconv.Atoi(strings.TrimSpace(string(contents))); convErr == nil && pid > 0 {
		process, findErr := ps.FindProcess(pid)
		if findErr != nil {
			logger.WarnKV(ctx, "Unable to inspect run marker owner", "pid", pid, "error", findErr)
			return true
		}

		if process != nil {
			logger.InfoKV(ctx, "Another packaging run owns the output",
				"pid", pid,
				"executable", process.Executable())

			return true
		}
	}

	logger.InfoKV(ctx, "Removing stale run marker", "path", path)

	if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return true
	}

	return false
}
