package packager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/oshokin/datachannels-prebuild/internal/archive"
	"github.com/oshokin/datachannels-prebuild/internal/config"
	"github.com/oshokin/datachannels-prebuild/internal/domain/platform"
	"github.com/oshokin/datachannels-prebuild/internal/logger"
	"github.com/oshokin/datachannels-prebuild/internal/npm"
	"github.com/oshokin/datachannels-prebuild/internal/release"
	"github.com/oshokin/datachannels-prebuild/internal/repository/manifest"
	"github.com/oshokin/datachannels-prebuild/internal/selector"
	"github.com/oshokin/datachannels-prebuild/internal/version"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// ConfigPath is an optional path to the settings file (defaults to datachannels-prebuild.yaml).
	ConfigPath string
	// Version overrides the package version derived from the release name.
	Version string
	// LibcCollision overrides the configured libc collision policy.
	LibcCollision string
}

// packager runs one packaging pass.
// It is unexported; callers should use Run, which encapsulates setup and validation.
type packager struct {
	// cfg holds the validated settings.
	cfg *config.Config
	// client talks to the release feed.
	client *release.Client
	// classifier maps release assets to platform packages.
	classifier *platform.Classifier
	// manifests persists the run manifest.
	manifests manifest.Repository
}

// errReleaseHasNoPlatforms is returned when no asset names a platform.
var errReleaseHasNoPlatforms = errors.New("release has no platform assets")

// Run executes the packaging workflow.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "packager")

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	marker, err := acquireMarker(ctx, cfg.PrebuiltDir)
	if err != nil {
		return err
	}

	defer marker.release(ctx)

	pkg := newPackager(cfg)

	if err = pkg.Run(ctx); err != nil {
		return fmt.Errorf("packager failed: %w", err)
	}

	logger.Info(ctx, "Packager completed successfully")

	return nil
}

// loadConfig reads the settings file and applies command-line overrides.
func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if opts.Version != "" {
		cfg.Version = opts.Version
	}

	if opts.LibcCollision != "" {
		cfg.LibcCollision = opts.LibcCollision

		if err = config.Validate(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// newPackager wires the feed client, classifier and manifest repository for cfg.
func newPackager(cfg *config.Config) *packager {
	client := release.NewClient(
		cfg.FeedURL,
		release.WithTimeout(cfg.Timeout),
		release.WithToken(cfg.Token),
		release.WithUserAgent(version.UserAgent()),
	)

	return &packager{
		cfg:        cfg,
		client:     client,
		classifier: platform.NewClassifier(cfg.CollisionPolicy()),
		manifests:  manifest.NewFileRepository(filepath.Join(cfg.PrebuiltDir, manifest.Filename)),
	}
}

// Run fetches the release and writes every output of the run.
func (p *packager) Run(ctx context.Context) error {
	runID := newRunID()
	ctx = logger.WithKV(ctx, "run_id", runID)

	logger.InfoKV(ctx, "Fetching release", "feed", p.cfg.FeedURL)

	rel, err := p.client.Fetch(ctx)
	if err != nil {
		return err
	}

	ver, err := p.resolveVersion(rel)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Release found",
		"release", rel.Name,
		"version", ver,
		"assets", len(rel.Assets))

	classified, err := p.classifier.Classify(rel.Assets)
	if err != nil {
		return err
	}

	if len(classified) == 0 {
		return fmt.Errorf("%w: %s", errReleaseHasNoPlatforms, rel.Name)
	}

	logger.DebugKV(ctx, "Classified release assets",
		"recognized", len(classified),
		"skipped", len(rel.Assets)-len(classified),
		"policy", p.classifier.Policy())

	if err = os.RemoveAll(p.cfg.PrebuiltDir); err != nil {
		return fmt.Errorf("clean prebuilt directory: %w", err)
	}

	run := manifest.New(ver, rel.Name, p.cfg.Scope)
	run.RunID = runID

	for _, item := range classified {
		if err = p.packageAsset(ctx, ver, item, run); err != nil {
			return err
		}
	}

	// Every package is on disk before the selector is generated.
	packages := run.PackageSet()

	if err = p.writeAggregator(ctx, ver, packages); err != nil {
		return err
	}

	procedure := selector.Generate(packages, p.cfg.Scope)

	if err = p.rewriteLoader(ctx, procedure); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Saving run manifest", "path", filepath.Join(p.cfg.PrebuiltDir, manifest.Filename))

	if err = p.manifests.Save(ctx, run); err != nil {
		return err
	}

	p.printNextSteps(ctx, packages)

	return nil
}

// newRunID returns a time-ordered run identifier.
func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

// resolveVersion prefers the configured version over the release name.
func (p *packager) resolveVersion(rel *release.Release) (string, error) {
	if p.cfg.Version != "" {
		return p.cfg.Version, nil
	}

	return release.NormalizeVersion(rel.Name)
}

// packageAsset writes the descriptor of one classified asset, then downloads
// and extracts its payload into the package directory.
func (p *packager) packageAsset(
	ctx context.Context,
	ver string,
	item platform.Classified,
	run *manifest.Manifest,
) error {
	ctx = logger.WithKV(ctx, "package", item.PackageID)
	dir := filepath.Join(p.cfg.PrebuiltDir, item.PackageID)

	if item.Repeat {
		if p.classifier.Policy() == platform.CollisionMerge {
			logger.WarnKV(ctx, "Merging asset into existing package", "asset", item.Asset.Name)
		} else {
			logger.WarnKV(ctx, "Replacing existing package", "asset", item.Asset.Name)

			if err := os.RemoveAll(dir); err != nil {
				return fmt.Errorf("remove package %s: %w", item.PackageID, err)
			}
		}
	}

	desc := npm.NewPackageDescriptor(p.cfg.PackageName(item.PackageID), ver, p.cfg.License, item.Key)
	if err := npm.WritePackage(dir, item.PackageID, desc); err != nil {
		return fmt.Errorf("write package %s: %w", item.PackageID, err)
	}

	logger.DebugKV(ctx, "Downloading asset", "url", item.Asset.DownloadURL)

	body, err := p.client.Download(ctx, item.Asset.DownloadURL)
	if err != nil {
		return err
	}

	defer func() {
		// Read-only stream; close errors carry no information.
		_ = body.Close()
	}()

	hasher := manifest.ChecksumFunction.New()
	payload := io.TeeReader(body, hasher)

	stats, err := archive.ExtractTarGz(ctx, payload, dir)
	if err != nil {
		return fmt.Errorf("extract %s: %w", item.Asset.Name, err)
	}

	// Drain trailing bytes so the checksum covers the whole archive.
	if _, err = io.Copy(io.Discard, payload); err != nil {
		return fmt.Errorf("read %s: %w", item.Asset.Name, err)
	}

	run.Record(item.PackageID, item.Key.Libc, hasher.Sum(nil))

	logger.InfoKV(ctx, "Packaged prebuilt binary",
		"asset", item.Asset.Name,
		"platform", item.Key.String(),
		"files", stats.Files,
		"bytes", stats.Bytes)

	return nil
}

// writeAggregator writes the aggregator descriptor and copies the project readme.
func (p *packager) writeAggregator(ctx context.Context, ver string, packages *platform.Set) error {
	ids := packages.Values()
	names := make([]string, 0, len(ids))

	for _, id := range ids {
		names = append(names, p.cfg.PackageName(id))
	}

	desc := npm.NewAggregatorDescriptor(
		p.cfg.PackageName(p.cfg.AggregatorName),
		ver,
		p.cfg.License,
		p.cfg.Main,
		p.cfg.Types,
		names,
	)

	if err := npm.WriteDescriptor(p.cfg.AggregatorDir, desc); err != nil {
		return fmt.Errorf("write aggregator: %w", err)
	}

	copied, err := npm.CopyReadme(p.cfg.Readme, p.cfg.AggregatorDir)
	if err != nil {
		return fmt.Errorf("copy readme: %w", err)
	}

	if !copied {
		logger.WarnKV(ctx, "Project readme not found, aggregator ships without one", "path", p.cfg.Readme)
	}

	logger.InfoKV(ctx, "Wrote aggregator package",
		"name", desc.Name,
		"path", p.cfg.AggregatorDir,
		"optional_dependencies", len(names))

	return nil
}

// rewriteLoader installs the library loader with the native require replaced
// by the selector expression.
func (p *packager) rewriteLoader(ctx context.Context, procedure *selector.Procedure) error {
	if p.cfg.LoaderSource == "" {
		logger.Info(ctx, "No loader source configured, skipping loader rewrite")
		return nil
	}

	source, err := os.ReadFile(filepath.Clean(p.cfg.LoaderSource))
	if err != nil {
		return fmt.Errorf("read loader: %w", err)
	}

	rewritten, err := selector.RewriteLoader(source, procedure)
	if err != nil {
		return fmt.Errorf("%s: %w", p.cfg.LoaderSource, err)
	}

	if err = selector.InstallLoader(p.cfg.LoaderOutput, rewritten); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Installed loader",
		"source", p.cfg.LoaderSource,
		"output", p.cfg.LoaderOutput,
		"targets", len(procedure.Targets()))

	return nil
}

// printNextSteps logs human-readable guidance for publishing the generated packages.
func (p *packager) printNextSteps(ctx context.Context, packages *platform.Set) {
	var builder strings.Builder

	builder.WriteString("Publish the platform packages first:\n")

	for i, id := range packages.Values() {
		if i > 0 {
			builder.WriteString(",\n")
		}

		builder.WriteString(filepath.Join(p.cfg.PrebuiltDir, id))
	}

	builder.WriteString("\n\nThen publish the aggregator package ")
	builder.WriteString(p.cfg.PackageName(p.cfg.AggregatorName))
	builder.WriteString(" from ")
	builder.WriteString(p.cfg.AggregatorDir)

	logger.Info(ctx, builder.String())
}
