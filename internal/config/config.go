package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/datachannels-prebuild/internal/domain/platform"
)

// Config holds the settings of a packaging run.
type Config struct {
	// FeedURL is the release API endpoint returning the latest release with its assets.
	FeedURL string `yaml:"feed_url"`
	// Token authenticates feed requests. It is read from GITHUB_TOKEN and never persisted.
	Token string `yaml:"-"`
	// Scope is the npm scope of every generated package, without the "@".
	Scope string `yaml:"scope"`
	// AggregatorName is the unscoped name of the aggregator package.
	AggregatorName string `yaml:"aggregator_name"`
	// License is written to every generated package descriptor.
	License string `yaml:"license"`
	// Version overrides the version derived from the release name.
	Version string `yaml:"version,omitempty"`
	// PrebuiltDir receives one directory per platform package.
	PrebuiltDir string `yaml:"prebuilt_dir"`
	// AggregatorDir receives the aggregator package descriptor.
	AggregatorDir string `yaml:"aggregator_dir"`
	// Readme is copied into the aggregator package when it exists.
	Readme string `yaml:"readme"`
	// Main is the aggregator entry point relative to AggregatorDir.
	Main string `yaml:"main"`
	// Types is the aggregator type declaration path relative to AggregatorDir.
	Types string `yaml:"types"`
	// LoaderSource is the library module whose native require gets replaced. Empty skips the rewrite.
	LoaderSource string `yaml:"loader_source,omitempty"`
	// LoaderOutput is where the rewritten module is installed. Defaults to LoaderSource.
	LoaderOutput string `yaml:"loader_output,omitempty"`
	// LibcCollision selects how glibc and musl builds sharing a PackageID are handled.
	LibcCollision string `yaml:"libc_collision"`
	// Timeout bounds every HTTP request.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default filename for packaging settings.
	DefaultConfigFilename = "datachannels-prebuild.yaml"

	// DefaultFeedURL points at the latest node-datachannel release.
	DefaultFeedURL = "https://api.github.com/repos/murat-dogan/node-datachannel/releases/latest"

	// DefaultScope is the npm scope of the generated packages.
	DefaultScope = "datachannels"

	// DefaultAggregatorName is the unscoped name of the aggregator package.
	DefaultAggregatorName = "prebuilt"

	// DefaultLicense matches the upstream library license.
	DefaultLicense = "MPL 2.0"

	// DefaultPrebuiltDir holds the platform packages.
	DefaultPrebuiltDir = "prebuilt"

	// DefaultAggregatorDir holds the aggregator package.
	DefaultAggregatorDir = "packages/prebuilt"

	// DefaultReadme is the project readme copied into the aggregator.
	DefaultReadme = "README.md"

	// DefaultMain is the bundled CommonJS entry point of the aggregator.
	DefaultMain = "dist/datachannels.cjs"

	// DefaultTypes is the type declaration entry of the aggregator.
	DefaultTypes = "types/datachannels.d.ts"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Minute

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// TokenEnv names the environment variable holding the feed token.
	TokenEnv = "GITHUB_TOKEN"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidScope is returned when the npm scope is malformed.
	errInvalidScope = errors.New("scope must be a bare npm scope without '@' or '/'")
	// errFeedURLScheme is returned when the feed is not served over http(s).
	errFeedURLScheme = errors.New("feed url must use http or https")
)

// Default returns a configuration populated with the default values.
func Default() *Config {
	cfg := new(Config)

	// Defaults never fail validation.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
// A missing file at the default location yields the defaults.
func Load(path string) (*Config, error) {
	usingDefault := path == ""
	if usingDefault {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && (usingDefault || path == DefaultConfigFilename):
		contents = nil
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	cfg.Token = strings.TrimSpace(os.Getenv(TokenEnv))

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills unset fields with defaults and checks the remaining values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	setDefault(&cfg.FeedURL, DefaultFeedURL)
	setDefault(&cfg.Scope, DefaultScope)
	setDefault(&cfg.AggregatorName, DefaultAggregatorName)
	setDefault(&cfg.License, DefaultLicense)
	setDefault(&cfg.PrebuiltDir, DefaultPrebuiltDir)
	setDefault(&cfg.AggregatorDir, DefaultAggregatorDir)
	setDefault(&cfg.Readme, DefaultReadme)
	setDefault(&cfg.Main, DefaultMain)
	setDefault(&cfg.Types, DefaultTypes)

	if cfg.LoaderSource != "" {
		setDefault(&cfg.LoaderOutput, cfg.LoaderSource)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	feedURL, err := url.ParseRequestURI(cfg.FeedURL)
	if err != nil {
		return fmt.Errorf("invalid feed url: %w", err)
	}

	if feedURL.Scheme != "http" && feedURL.Scheme != "https" {
		return fmt.Errorf("%w: %s", errFeedURLScheme, cfg.FeedURL)
	}

	cfg.Scope = strings.TrimSpace(cfg.Scope)
	if strings.ContainsAny(cfg.Scope, "@/ ") {
		return fmt.Errorf("%w: %q", errInvalidScope, cfg.Scope)
	}

	policy, err := platform.ParseCollisionPolicy(cfg.LibcCollision)
	if err != nil {
		return err
	}

	cfg.LibcCollision = string(policy)

	return nil
}

// CollisionPolicy returns the parsed libc collision policy.
func (c *Config) CollisionPolicy() platform.CollisionPolicy {
	// Validate has already normalized the value.
	policy, _ := platform.ParseCollisionPolicy(c.LibcCollision)

	return policy
}

// PackageName returns the scoped npm name for an unscoped package name.
func (c *Config) PackageName(name string) string {
	return "@" + c.Scope + "/" + name
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}
