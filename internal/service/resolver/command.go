package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/datachannels-prebuild/internal/config"
	"github.com/oshokin/datachannels-prebuild/internal/logger"
	"github.com/oshokin/datachannels-prebuild/internal/npm"
	"github.com/oshokin/datachannels-prebuild/internal/repository/manifest"
	"github.com/oshokin/datachannels-prebuild/internal/selector"
)

// DefaultNodeModules is the install tree searched when none is given.
const DefaultNodeModules = "node_modules"

// Options contains inputs for the resolve command.
type Options struct {
	// ConfigPath is an optional path to the settings file.
	ConfigPath string
	// ManifestPath overrides the manifest location inside the prebuilt directory.
	ManifestPath string
	// NodeModules is the install tree holding the platform packages.
	NodeModules string
	// Host overrides the detected machine.
	Host *Host
	// Stdout receives the resolved binary path.
	Stdout io.Writer
	// Stderr receives the diagnostic line.
	Stderr io.Writer
	// Getenv replaces the environment lookup.
	Getenv func(string) string
}

// Binary is a prebuilt binary the selector picked.
type Binary struct {
	// Specifier is the module specifier the loader tried.
	Specifier string
	// Path is the binary location on disk.
	Path string
}

// String returns the binary path.
func (b Binary) String() string {
	return b.Path
}

var (
	// errNotRegularFile is returned for a specifier that resolves to a directory or device.
	errNotRegularFile = errors.New("not a regular file")
	// errPlatformMismatch is returned when the package descriptor excludes the host.
	errPlatformMismatch = errors.New("package does not support this platform")
)

// Run resolves the binary and prints its path.
func Run(ctx context.Context, opts *Options) error {
	binary, err := Resolve(ctx, opts)
	if err != nil {
		return err
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	_, err = fmt.Fprintln(stdout, binary.Path)

	return err
}

// Resolve runs the selector of the last packaging run against the install tree.
func Resolve(ctx context.Context, opts *Options) (Binary, error) {
	ctx = logger.WithName(ctx, "resolver")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return Binary{}, err
	}

	manifestPath := opts.ManifestPath
	if manifestPath == "" {
		manifestPath = filepath.Join(cfg.PrebuiltDir, manifest.Filename)
	}

	run, err := manifest.NewFileRepository(manifestPath).Load(ctx)
	if err != nil {
		if errors.Is(err, manifest.ErrNotFound) {
			return Binary{}, fmt.Errorf("%w at %s, run the packager first", err, manifestPath)
		}

		return Binary{}, err
	}

	scope := run.Scope
	if scope == "" {
		scope = cfg.Scope
	}

	host := CurrentHost()
	if opts.Host != nil {
		host = *opts.Host
	}

	nodeModules := opts.NodeModules
	if nodeModules == "" {
		nodeModules = DefaultNodeModules
	}

	logger.DebugKV(ctx, "Resolving prebuilt binary",
		"node_modules", nodeModules,
		"os", host.OS,
		"cpu", host.CPU,
		"libc", host.Libc,
		"packages", len(run.Packages))

	selectorOpts := []selector.Option[Binary]{}

	if opts.Getenv != nil {
		selectorOpts = append(selectorOpts, selector.WithGetenv[Binary](opts.Getenv))
	}

	if opts.Stderr != nil {
		selectorOpts = append(selectorOpts, selector.WithDiagnostics[Binary](opts.Stderr))
	}

	procedure := selector.Generate(run.PackageSet(), scope)

	return selector.New(procedure, fileLoader(ctx, nodeModules, host), selectorOpts...).Select()
}

// fileLoader accepts a specifier when the binary exists below nodeModules and
// its package descriptor admits the host.
func fileLoader(ctx context.Context, nodeModules string, host Host) selector.Loader[Binary] {
	return func(specifier string) (Binary, error) {
		path := filepath.Join(nodeModules, filepath.FromSlash(specifier))

		info, err := os.Stat(path)
		if err != nil {
			logger.DebugKV(ctx, "Prebuilt binary not installed", "specifier", specifier)
			return Binary{}, err
		}

		if !info.Mode().IsRegular() {
			return Binary{}, fmt.Errorf("%s: %w", path, errNotRegularFile)
		}

		packageName := strings.TrimSuffix(specifier, "/"+selector.BinaryPath)

		desc, err := npm.ReadPackageDescriptor(filepath.Join(nodeModules, filepath.FromSlash(packageName)))
		if err != nil {
			return Binary{}, err
		}

		if !host.Accepts(desc.OS, desc.CPU, desc.Libc) {
			logger.DebugKV(ctx, "Prebuilt binary built for another platform",
				"specifier", specifier,
				"os", desc.OS,
				"cpu", desc.CPU,
				"libc", desc.Libc)

			return Binary{}, fmt.Errorf("%s: %w", packageName, errPlatformMismatch)
		}

		return Binary{Specifier: specifier, Path: path}, nil
	}
}
