package npm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/datachannels-prebuild/internal/domain/platform"
)

const (
	// DescriptorFilename is the npm package descriptor name.
	DescriptorFilename = "package.json"
	// ReadmeFilename is the readme written next to each descriptor.
	ReadmeFilename = "README.md"
	// WorkspaceVersion links optional dependencies to the workspace copies.
	WorkspaceVersion = "workspace:*"

	dirMode  os.FileMode = 0o755
	fileMode os.FileMode = 0o644
)

// PackageDescriptor is the package.json of one platform package.
type PackageDescriptor struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	License string   `json:"license"`
	OS      []string `json:"os"`
	CPU     []string `json:"cpu"`
	Libc    []string `json:"libc,omitempty"`
}

// NewPackageDescriptor describes the platform package for key.
func NewPackageDescriptor(name, version, license string, key platform.Key) *PackageDescriptor {
	desc := &PackageDescriptor{
		Name:    name,
		Version: version,
		License: license,
		OS:      []string{key.OS},
		CPU:     []string{key.Arch},
	}

	if key.Libc != "" {
		desc.Libc = []string{key.Libc}
	}

	return desc
}

// Dependency is a single name/version pair.
type Dependency struct {
	Name    string
	Version string
}

// Dependencies marshals to a JSON object that keeps insertion order.
type Dependencies []Dependency

// MarshalJSON writes the dependencies as an object in slice order.
func (d Dependencies) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, dep := range d {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(dep.Name)
		if err != nil {
			return nil, err
		}

		value, err := json.Marshal(dep.Version)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// AggregatorDescriptor is the package.json of the package users install.
type AggregatorDescriptor struct {
	Name                 string       `json:"name"`
	Version              string       `json:"version"`
	License              string       `json:"license"`
	OptionalDependencies Dependencies `json:"optionalDependencies"`
	Main                 string       `json:"main"`
	Types                string       `json:"types"`
}

// NewAggregatorDescriptor lists every platform package name as an optional
// workspace dependency, in the given order.
func NewAggregatorDescriptor(name, version, license, main, types string, packages []string) *AggregatorDescriptor {
	deps := make(Dependencies, 0, len(packages))
	for _, pkg := range packages {
		deps = append(deps, Dependency{Name: pkg, Version: WorkspaceVersion})
	}

	return &AggregatorDescriptor{
		Name:                 name,
		Version:              version,
		License:              license,
		OptionalDependencies: deps,
		Main:                 main,
		Types:                types,
	}
}

// WritePackage writes the platform descriptor and its readme into dir.
func WritePackage(dir, packageID string, desc *PackageDescriptor) error {
	if err := WriteDescriptor(dir, desc); err != nil {
		return err
	}

	readme := "A prebuilt binary for " + packageID

	if err := os.WriteFile(filepath.Join(dir, ReadmeFilename), []byte(readme), fileMode); err != nil {
		return fmt.Errorf("write readme: %w", err)
	}

	return nil
}

// WriteDescriptor writes v as an indented package.json into dir, creating it when needed.
func WriteDescriptor(dir string, v any) error {
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("create package directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal descriptor: %w", err)
	}

	data = append(data, '\n')

	if err = os.WriteFile(filepath.Join(dir, DescriptorFilename), data, fileMode); err != nil {
		return fmt.Errorf("write descriptor: %w", err)
	}

	return nil
}

// ReadPackageDescriptor loads a platform descriptor from dir.
func ReadPackageDescriptor(dir string) (*PackageDescriptor, error) {
	data, err := os.ReadFile(filepath.Join(filepath.Clean(dir), DescriptorFilename))
	if err != nil {
		return nil, err
	}

	var desc PackageDescriptor
	if err = json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("decode descriptor: %w", err)
	}

	return &desc, nil
}

// CopyReadme copies src into dir as README.md. It reports false when src does not exist.
func CopyReadme(src, dir string) (bool, error) {
	data, err := os.ReadFile(filepath.Clean(src))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("read readme: %w", err)
	}

	if err = os.MkdirAll(dir, dirMode); err != nil {
		return false, fmt.Errorf("create package directory: %w", err)
	}

	if err = os.WriteFile(filepath.Join(dir, ReadmeFilename), data, fileMode); err != nil {
		return false, fmt.Errorf("write readme: %w", err)
	}

	return true, nil
}
