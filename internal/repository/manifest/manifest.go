package manifest

import (
	"context"
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/datachannels-prebuild/internal/domain/platform"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

const (
	// Filename is the manifest name inside the prebuilt directory.
	Filename = "prebuilt-manifest.yaml"

	// ChecksumFunction hashes downloaded archives.
	ChecksumFunction crypto.Hash = crypto.SHA512

	fileMode os.FileMode = 0o644

	defaultMapCapacity = 16
)

// Repository defines persistence operations for the run manifest.
type Repository interface {
	Load(ctx context.Context) (*Manifest, error)
	Save(ctx context.Context, m *Manifest) error
}

// Manifest records the outcome of one packaging run.
type Manifest struct {
	// RunID identifies the packaging run that wrote the manifest.
	RunID string `yaml:"run_id"`
	// Version is the version written to every generated package.
	Version string `yaml:"version"`
	// Release is the name of the release the assets came from.
	Release string `yaml:"release"`
	// Scope is the npm scope of the generated packages.
	Scope string `yaml:"scope"`
	// Packages lists PackageIDs in the order the selector tries them.
	Packages []string `yaml:"packages"`
	// Libc maps Linux PackageIDs to their C library.
	Libc map[string]string `yaml:"libc,omitempty"`
	// Files maps PackageIDs to the base64 checksum of the archive that won.
	Files map[string]string `yaml:"files"`
}

// New returns an empty manifest for the given release.
func New(version, release, scope string) *Manifest {
	return &Manifest{
		Version: version,
		Release: release,
		Scope:   scope,
		Libc:    make(map[string]string, defaultMapCapacity),
		Files:   make(map[string]string, defaultMapCapacity),
	}
}

// Record stores the checksum and libc of a packaged archive.
// A PackageID recorded twice keeps the latest values and its first position.
func (m *Manifest) Record(packageID, libc string, checksum []byte) {
	if !m.PackageSet().Contains(packageID) {
		m.Packages = append(m.Packages, packageID)
	}

	if libc != "" {
		m.Libc[packageID] = libc
	} else {
		delete(m.Libc, packageID)
	}

	m.Files[packageID] = base64.StdEncoding.EncodeToString(checksum)
}

// PackageSet returns the packages as an ordered set.
func (m *Manifest) PackageSet() *platform.Set {
	return platform.NewSet(m.Packages...)
}

// FileRepository persists the manifest to a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the manifest.
	path string
	// mu protects concurrent access to the manifest file.
	mu sync.Mutex
}

// ErrNotFound is returned when the manifest file does not exist yet.
var ErrNotFound = errors.New("manifest not found")

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the manifest location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the manifest from disk.
func (r *FileRepository) Load(_ context.Context) (*Manifest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err = yaml.Unmarshal(contents, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	if m.Libc == nil {
		m.Libc = make(map[string]string, defaultMapCapacity)
	}

	if m.Files == nil {
		m.Files = make(map[string]string, defaultMapCapacity)
	}

	return &m, nil
}

// Save writes the manifest to disk.
func (r *FileRepository) Save(_ context.Context, m *Manifest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}

	if err = os.WriteFile(r.path, data, fileMode); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}
