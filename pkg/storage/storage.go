// Package storage defines the VariableStorage contract the VM consults
// for `save` variables, plus two reference implementations: an in-memory
// map for tests and short-lived runs, and a YAML-backed file store for
// the CLI demo.
package storage

import "github.com/kristofer/weave/pkg/bytecode"

// VariableStorage is the host-provided persistence layer for `save`
// variables. The VM never touches a file or database directly — it
// only ever calls through this interface, so a game can back it with
// whatever save system it already has.
type VariableStorage interface {
	// Get returns the current value of name, or ok=false if it has
	// never been set or initialized.
	Get(name string) (bytecode.Value, bool)

	// Set overwrites name's value unconditionally.
	Set(name string, value bytecode.Value)

	// InitializeIfAbsent sets name to def only if it does not already
	// hold a value. This implements a `save` declaration's semantics:
	// the default only applies the first time a script runs against a
	// given storage instance.
	InitializeIfAbsent(name string, def bytecode.Value)

	// Contains reports whether name currently holds a value.
	Contains(name string) bool
}

// MemoryStorage is an in-memory VariableStorage backed by a map. It is
// the default storage for tests and for short demo runs that don't need
// save files to survive process exit.
type MemoryStorage struct {
	values map[string]bytecode.Value
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]bytecode.Value)}
}

func (m *MemoryStorage) Get(name string) (bytecode.Value, bool) {
	v, ok := m.values[name]
	return v, ok
}

func (m *MemoryStorage) Set(name string, value bytecode.Value) {
	m.values[name] = value
}

func (m *MemoryStorage) InitializeIfAbsent(name string, def bytecode.Value) {
	if _, ok := m.values[name]; !ok {
		m.values[name] = def
	}
}

func (m *MemoryStorage) Contains(name string) bool {
	_, ok := m.values[name]
	return ok
}
