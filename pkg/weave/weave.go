// Package weave is the runtime facade: compile a script once and drive
// it one pause point at a time. Ported from the original runtime's lib
// module, which plays the same role under the name Runtime/BobbinError.
package weave

import (
	"fmt"
	"strings"

	"github.com/kristofer/weave/pkg/ast"
	"github.com/kristofer/weave/pkg/compiler"
	"github.com/kristofer/weave/pkg/hoststate"
	"github.com/kristofer/weave/pkg/parser"
	"github.com/kristofer/weave/pkg/resolver"
	"github.com/kristofer/weave/pkg/storage"
	"github.com/kristofer/weave/pkg/vm"
)

// ErrorKind discriminates which pipeline stage an Error came from.
type ErrorKind int

const (
	ErrorParse ErrorKind = iota
	ErrorSemantic
	ErrorCompile
	ErrorRuntime
)

// Error wraps a failure from any stage of the pipeline — parsing,
// resolution, compilation, or execution — behind one type so callers
// that don't care which stage failed can handle a single error value.
type Error struct {
	Kind     ErrorKind
	Parse    []*parser.ParseError
	Semantic []*resolver.SemanticError
	Compile  error
	Runtime  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrorParse:
		return fmt.Sprintf("%d parse error(s)", len(e.Parse))
	case ErrorSemantic:
		return fmt.Sprintf("%d semantic error(s)", len(e.Semantic))
	case ErrorCompile:
		return fmt.Sprintf("compile error: %v", e.Compile)
	case ErrorRuntime:
		return fmt.Sprintf("runtime error: %v", e.Runtime)
	default:
		return "weave error"
	}
}

// FormatWithSource renders every underlying diagnostic against source,
// one per line.
func (e *Error) FormatWithSource(source string) string {
	switch e.Kind {
	case ErrorParse:
		lines := make([]string, len(e.Parse))
		for i, pe := range e.Parse {
			lines[i] = pe.FormatWithSource(source)
		}
		return strings.Join(lines, "\n")
	case ErrorSemantic:
		lines := make([]string, len(e.Semantic))
		for i, se := range e.Semantic {
			lines[i] = se.FormatWithSource(source)
		}
		return strings.Join(lines, "\n")
	case ErrorCompile:
		return fmt.Sprintf("compile error: %v", e.Compile)
	case ErrorRuntime:
		return fmt.Sprintf("runtime error: %v", e.Runtime)
	default:
		return e.Error()
	}
}

// Runtime drives a compiled script one pause point at a time: a
// rendered line, an offered set of choices, or completion.
type Runtime struct {
	vm             *vm.VM
	currentLine    string
	currentChoices []string
	done           bool
}

// New parses, resolves, and compiles source, then runs it up to its
// first pause point. storage and host are consulted for `save` and
// `extern` variables respectively for the lifetime of the Runtime; the
// caller retains ownership of both and may read or write storage
// directly between Advance calls.
func New(source string, store storage.VariableStorage, host hoststate.HostState) (*Runtime, error) {
	p := parser.New(source)
	script, parseErrors := p.Parse()
	if len(parseErrors) > 0 {
		return nil, &Error{Kind: ErrorParse, Parse: parseErrors}
	}

	symbols, semErrors := resolveScript(script)
	if len(semErrors) > 0 {
		return nil, &Error{Kind: ErrorSemantic, Semantic: semErrors}
	}

	chunk, err := compiler.New(symbols).Compile(script)
	if err != nil {
		return nil, &Error{Kind: ErrorCompile, Compile: err}
	}

	r := &Runtime{vm: vm.New(chunk, store, host)}
	if err := r.stepVM(); err != nil {
		return nil, &Error{Kind: ErrorRuntime, Runtime: err}
	}
	return r, nil
}

func resolveScript(script *ast.Script) (*resolver.SymbolTable, []*resolver.SemanticError) {
	return resolver.New(script).Analyze()
}

// CurrentLine returns the line ready to display, or "" if the runtime
// is waiting on a choice or has finished.
func (r *Runtime) CurrentLine() string { return r.currentLine }

// CurrentChoices returns the choices currently on offer, or nil if none.
func (r *Runtime) CurrentChoices() []string { return r.currentChoices }

// HasMore reports whether there is anything left to advance through.
func (r *Runtime) HasMore() bool { return !r.done }

// IsWaitingForChoice reports whether Advance cannot proceed until
// SelectChoice is called.
func (r *Runtime) IsWaitingForChoice() bool { return r.currentChoices != nil }

// Advance moves to the next line, if the runtime is not already waiting
// on a choice selection and has more content.
func (r *Runtime) Advance() error {
	if r.done || r.IsWaitingForChoice() {
		return nil
	}
	if err := r.stepVM(); err != nil {
		return &Error{Kind: ErrorRuntime, Runtime: err}
	}
	return nil
}

// SelectChoice picks branch index of the currently offered choice set
// and runs to the next pause point.
func (r *Runtime) SelectChoice(index int) error {
	if r.currentChoices == nil {
		return nil
	}
	r.currentChoices = nil
	result, err := r.vm.SelectAndContinue(index)
	if err != nil {
		return &Error{Kind: ErrorRuntime, Runtime: err}
	}
	r.handleStep(result)
	return nil
}

func (r *Runtime) stepVM() error {
	result, err := r.vm.Step()
	if err != nil {
		return err
	}
	r.handleStep(result)
	return nil
}

func (r *Runtime) handleStep(result vm.StepResult) {
	switch result.Kind {
	case vm.StepLine:
		r.currentLine = result.Line
		r.currentChoices = nil
		r.done = r.vm.IsAtEnd()
	case vm.StepChoice:
		r.currentLine = ""
		r.currentChoices = result.Choices
	case vm.StepDone:
		r.currentLine = ""
		r.currentChoices = nil
		r.done = true
	}
}
