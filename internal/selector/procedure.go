package selector

import (
	"encoding/json"
	"strings"
	"text/template"

	"github.com/oshokin/datachannels-prebuild/internal/domain/platform"
)

const (
	// EnvLog enables the diagnostic line when set to EnvLogEnabled.
	EnvLog = "DATACHANNELS_PREBUILT_LOG"
	// EnvLogEnabled is the only value of EnvLog that turns diagnostics on.
	EnvLogEnabled = "1"

	// BinaryPath is the location of the native module inside a platform package.
	BinaryPath = "build/Release/node_datachannel.node"

	// DiagnosticPrefix starts the diagnostic line printed on a successful pick.
	DiagnosticPrefix = "Using prebuilt binary:"
)

// Target is one platform package the selector tries.
type Target struct {
	// PackageID is the platform identifier, e.g. "linux-x64".
	PackageID string
	// Specifier is the module path handed to the loader.
	Specifier string
}

// Procedure is the ordered data a selector is built from.
type Procedure struct {
	targets []Target
}

// Specifier returns the module specifier of the native binary in a platform package.
func Specifier(scope, packageID string) string {
	return "@" + scope + "/" + packageID + "/" + BinaryPath
}

// Generate builds the procedure for the package set, keeping its insertion order.
func Generate(ids *platform.Set, scope string) *Procedure {
	values := ids.Values()

	targets := make([]Target, 0, len(values))
	for _, id := range values {
		targets = append(targets, Target{
			PackageID: id,
			Specifier: Specifier(scope, id),
		})
	}

	return &Procedure{targets: targets}
}

// Targets returns a copy of the targets in the order they are tried.
func (p *Procedure) Targets() []Target {
	return append([]Target(nil), p.targets...)
}

// Specifiers returns the module specifiers in the order they are tried.
func (p *Procedure) Specifiers() []string {
	result := make([]string, 0, len(p.targets))
	for _, target := range p.targets {
		result = append(result, target.Specifier)
	}

	return result
}

//nolint:gochecknoglobals // Parsed once, the template is immutable.
var expressionTemplate = template.Must(template.New("selector").Parse(`(() => {
  const targets = [{{range $i, $s := .Targets}}{{if $i}},{{end}}
    {{$s}}{{end}}
  ];
  for (const target of targets) {
    let binding;
    try {
      binding = require(target);
    } catch (e) {
      continue;
    }
    if (process.env[{{.Env}}] === {{.Enabled}}) {
      console.warn({{.Prefix}}, binding);
    }
    return binding;
  }
  throw new Error({{.Message}});
})()`))

// Expression renders the procedure as an immediately invoked JavaScript function.
// The target list is embedded as data and the loop builds one load attempt per
// entry when the module is evaluated.
func (p *Procedure) Expression() string {
	quoted := make([]string, 0, len(p.targets))
	for _, specifier := range p.Specifiers() {
		quoted = append(quoted, jsString(specifier))
	}

	var b strings.Builder

	// The template only references fields of the literal below.
	_ = expressionTemplate.Execute(&b, struct {
		Targets []string
		Env     string
		Enabled string
		Prefix  string
		Message string
	}{
		Targets: quoted,
		Env:     jsString(EnvLog),
		Enabled: jsString(EnvLogEnabled),
		Prefix:  jsString(DiagnosticPrefix),
		Message: jsString(NoPlatformMessage),
	})

	return b.String()
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	// Marshaling a string cannot fail.
	data, _ := json.Marshal(s)

	return string(data)
}
