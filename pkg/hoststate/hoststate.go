// Package hoststate defines the HostState contract the VM consults for
// `extern` variables, plus two reference implementations.
package hoststate

import "github.com/kristofer/weave/pkg/bytecode"

// HostState is the host application's read-only variable oracle.
// Variables resolved through it are declared `extern` in a script and
// can never be assigned to from within the script; the resolver rejects
// that at compile time.
type HostState interface {
	// Lookup returns name's current value, or ok=false if the host
	// exposes no such variable. A false return fails the running
	// program with MissingExternVariable.
	Lookup(name string) (bytecode.Value, bool)
}

// EmptyHostState exposes no variables at all. It is the default used by
// Runtime constructors that don't need host-provided state, and by
// tests that don't exercise extern declarations.
type EmptyHostState struct{}

func (EmptyHostState) Lookup(name string) (bytecode.Value, bool) {
	return bytecode.Value{}, false
}

// StaticHostState is a fixed, pre-populated HostState reference
// implementation — useful for tests and demos that want to expose a
// known set of variables without writing a bespoke type.
type StaticHostState struct {
	values map[string]bytecode.Value
}

// NewStaticHostState wraps a map of host variables directly.
func NewStaticHostState(values map[string]bytecode.Value) *StaticHostState {
	if values == nil {
		values = make(map[string]bytecode.Value)
	}
	return &StaticHostState{values: values}
}

func (s *StaticHostState) Lookup(name string) (bytecode.Value, bool) {
	v, ok := s.values[name]
	return v, ok
}
