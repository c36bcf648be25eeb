package selector

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// NoPlatformMessage is the error text when no platform package loads.
const NoPlatformMessage = "No prebuilt binary found for your platform. Please build from source."

// ErrNoPlatformMatch is wrapped by NoPlatformMatchError.
var ErrNoPlatformMatch = errors.New("no platform match")

// NoPlatformMatchError is returned when every target failed to load.
type NoPlatformMatchError struct {
	// Tried lists the specifiers attempted, in order.
	Tried []string
}

// Error returns the fixed build-from-source message.
func (e *NoPlatformMatchError) Error() string {
	return NoPlatformMessage
}

// Unwrap returns ErrNoPlatformMatch so callers can use errors.Is.
func (e *NoPlatformMatchError) Unwrap() error { return ErrNoPlatformMatch }

// Loader attempts to load the native module at specifier.
type Loader[T any] func(specifier string) (T, error)

// Thunk is a deferred load attempt for one target.
type Thunk[T any] func() (T, error)

// Selector tries the targets of a procedure in order.
type Selector[T any] struct {
	procedure *Procedure
	load      Loader[T]
	getenv    func(string) string
	diag      io.Writer
}

// Option configures a Selector.
type Option[T any] func(*Selector[T])

// WithGetenv replaces the environment lookup, used by tests.
func WithGetenv[T any](getenv func(string) string) Option[T] {
	return func(s *Selector[T]) {
		s.getenv = getenv
	}
}

// WithDiagnostics redirects the diagnostic line, stderr by default.
func WithDiagnostics[T any](w io.Writer) Option[T] {
	return func(s *Selector[T]) {
		s.diag = w
	}
}

// New creates a selector that loads the procedure targets with load.
func New[T any](procedure *Procedure, load Loader[T], opts ...Option[T]) *Selector[T] {
	s := &Selector[T]{
		procedure: procedure,
		load:      load,
		getenv:    os.Getenv,
		diag:      os.Stderr,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Thunks builds one load attempt per target, in procedure order.
func (s *Selector[T]) Thunks() []Thunk[T] {
	specifiers := s.procedure.Specifiers()

	thunks := make([]Thunk[T], 0, len(specifiers))
	for _, specifier := range specifiers {
		thunks = append(thunks, func() (T, error) {
			return s.load(specifier)
		})
	}

	return thunks
}

// Select runs the thunks one after another and returns the first loaded module.
// Individual failures are ignored. When every thunk fails it returns
// *NoPlatformMatchError and writes nothing.
func (s *Selector[T]) Select() (T, error) {
	for _, thunk := range s.Thunks() {
		module, err := thunk()
		if err != nil {
			continue
		}

		if s.getenv(EnvLog) == EnvLogEnabled {
			_, _ = fmt.Fprintln(s.diag, DiagnosticPrefix, module)
		}

		return module, nil
	}

	var zero T

	return zero, &NoPlatformMatchError{Tried: s.procedure.Specifiers()}
}
