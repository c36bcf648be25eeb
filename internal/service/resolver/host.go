package resolver

import (
	"path/filepath"
	"runtime"
	"slices"

	"github.com/oshokin/datachannels-prebuild/internal/domain/platform"
)

// muslLoaderGlob matches the dynamic loader shipped by musl based distributions.
const muslLoaderGlob = "/lib/ld-musl-*.so.1"

// Host describes a machine in the terms npm uses for package filtering.
type Host struct {
	// OS is the process.platform name, e.g. "win32".
	OS string
	// CPU is the process.arch name, e.g. "x64".
	CPU string
	// Libc is "glibc" or "musl" on Linux and empty elsewhere.
	Libc string
}

var (
	// nodePlatforms maps GOOS to process.platform.
	//nolint:gochecknoglobals // Read-only lookup table.
	nodePlatforms = map[string]string{
		"aix":     "aix",
		"android": "android",
		"darwin":  "darwin",
		"freebsd": "freebsd",
		"illumos": "sunos",
		"linux":   "linux",
		"netbsd":  "netbsd",
		"openbsd": "openbsd",
		"solaris": "sunos",
		"windows": "win32",
	}

	// nodeArchs maps GOARCH to process.arch.
	//nolint:gochecknoglobals // Read-only lookup table.
	nodeArchs = map[string]string{
		"386":     "ia32",
		"amd64":   "x64",
		"arm":     "arm",
		"arm64":   "arm64",
		"loong64": "loong64",
		"mips":    "mips",
		"mipsle":  "mipsel",
		"ppc64":   "ppc64",
		"ppc64le": "ppc64",
		"riscv64": "riscv64",
		"s390x":   "s390x",
	}
)

// CurrentHost describes the running machine.
func CurrentHost() Host {
	host := Host{
		OS:  NodePlatform(runtime.GOOS),
		CPU: NodeArch(runtime.GOARCH),
	}

	if runtime.GOOS == "linux" {
		host.Libc = detectLibc(muslLoaderGlob)
	}

	return host
}

// NodePlatform maps a GOOS value to process.platform. Unknown values pass through.
func NodePlatform(goos string) string {
	if name, ok := nodePlatforms[goos]; ok {
		return name
	}

	return goos
}

// NodeArch maps a GOARCH value to process.arch. Unknown values pass through.
func NodeArch(goarch string) string {
	if name, ok := nodeArchs[goarch]; ok {
		return name
	}

	return goarch
}

// Accepts reports whether a package restricted to the given lists installs on the host.
// An empty list places no restriction.
func (h Host) Accepts(osList, cpu, libc []string) bool {
	if len(osList) > 0 && !slices.Contains(osList, h.OS) {
		return false
	}

	if len(cpu) > 0 && !slices.Contains(cpu, h.CPU) {
		return false
	}

	if len(libc) > 0 && h.Libc != "" && !slices.Contains(libc, h.Libc) {
		return false
	}

	return true
}

func detectLibc(pattern string) string {
	if matches, _ := filepath.Glob(pattern); len(matches) > 0 {
		return platform.LibcMusl
	}

	return platform.LibcGlibc
}
