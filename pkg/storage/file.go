package storage

import (
	"os"

	"github.com/gofrs/uuid"
	"gopkg.in/yaml.v3"

	"github.com/kristofer/weave/pkg/bytecode"
)

// fileValue is the on-disk representation of a bytecode.Value. The YAML
// format is an example host-side save format, not part of the core: the
// core defines no persisted layout of its own.
type fileValue struct {
	Kind   string  `yaml:"kind"`
	Str    string  `yaml:"str,omitempty"`
	Number float64 `yaml:"number,omitempty"`
	Bool   bool    `yaml:"bool,omitempty"`
}

type fileDocument struct {
	Session   string               `yaml:"session"`
	Variables map[string]fileValue `yaml:"variables"`
}

// FileStorage is a YAML-backed VariableStorage. A store opened on a new
// path is stamped with a fresh session id, and a store opened on an
// existing file keeps the session id recorded in it, so that save files
// written by concurrent playthroughs in the same directory are
// distinguishable, even though a single FileStorage only ever writes to
// the one path it was opened with.
type FileStorage struct {
	path    string
	session string
	values  map[string]bytecode.Value
}

// OpenFileStorage loads path if it exists, or starts an empty store
// stamped with a new session id if it does not.
func OpenFileStorage(path string) (*FileStorage, error) {
	fs := &FileStorage{path: path, values: make(map[string]bytecode.Value)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		id, err := uuid.NewV4()
		if err != nil {
			return nil, err
		}
		fs.session = id.String()
		return fs, nil
	}
	if err != nil {
		return nil, err
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	fs.session = doc.Session
	for name, fv := range doc.Variables {
		fs.values[name] = fromFileValue(fv)
	}
	return fs, nil
}

func (f *FileStorage) Get(name string) (bytecode.Value, bool) {
	v, ok := f.values[name]
	return v, ok
}

func (f *FileStorage) Set(name string, value bytecode.Value) {
	f.values[name] = value
}

func (f *FileStorage) InitializeIfAbsent(name string, def bytecode.Value) {
	if _, ok := f.values[name]; !ok {
		f.values[name] = def
	}
}

func (f *FileStorage) Contains(name string) bool {
	_, ok := f.values[name]
	return ok
}

// Session returns the session id stamped into this store, stable across
// Flush calls for the lifetime of the FileStorage.
func (f *FileStorage) Session() string { return f.session }

// Flush writes the current contents to path, overwriting it.
func (f *FileStorage) Flush() error {
	doc := fileDocument{Session: f.session, Variables: make(map[string]fileValue, len(f.values))}
	for name, v := range f.values {
		doc.Variables[name] = toFileValue(v)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o644)
}

func toFileValue(v bytecode.Value) fileValue {
	switch v.Kind {
	case bytecode.KindString:
		return fileValue{Kind: "string", Str: v.Str}
	case bytecode.KindNumber:
		return fileValue{Kind: "number", Number: v.Number}
	case bytecode.KindBool:
		return fileValue{Kind: "bool", Bool: v.Bool}
	default:
		return fileValue{Kind: "string"}
	}
}

func fromFileValue(fv fileValue) bytecode.Value {
	switch fv.Kind {
	case "number":
		return bytecode.NumberValue(fv.Number)
	case "bool":
		return bytecode.BoolValue(fv.Bool)
	default:
		return bytecode.StringValue(fv.Str)
	}
}
