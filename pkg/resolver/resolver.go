// Package resolver performs scope analysis over the AST, binding every
// variable reference to a storage location — a stack slot (temp), a name
// in persistent storage (save), or a name in the host oracle (extern) —
// before compilation begins.
package resolver

import (
	"fmt"

	"github.com/kristofer/weave/pkg/ast"
	"github.com/kristofer/weave/pkg/token"
)

// Class identifies which of the three storage classes a binding belongs
// to.
type Class int

const (
	ClassTemp Class = iota
	ClassSave
	ClassExtern
)

// Binding is where a resolved NodeId lives.
type Binding struct {
	Class Class
	Slot  int    // valid when Class == ClassTemp
	Name  string // valid when Class == ClassSave or ClassExtern
}

// SymbolTable maps every declaration and reference NodeId to its
// resolved Binding.
type SymbolTable struct {
	bindings map[ast.NodeId]Binding
}

// Lookup returns the Binding for id and whether one was recorded. Every
// VarRef and Assignment has exactly one entry after a successful
// Analyze.
func (t *SymbolTable) Lookup(id ast.NodeId) (Binding, bool) {
	b, ok := t.bindings[id]
	return b, ok
}

// SemanticError is a structured resolution failure.
type SemanticError struct {
	Kind     SemanticErrorKind
	Name     string
	Span     token.Span
	Original token.Span // set for Shadowing
}

type SemanticErrorKind int

const (
	UndefinedVariable SemanticErrorKind = iota
	Shadowing
	AssignmentToExtern
)

func (e *SemanticError) Error() string {
	switch e.Kind {
	case UndefinedVariable:
		return fmt.Sprintf("undefined variable: %s", e.Name)
	case Shadowing:
		return fmt.Sprintf("variable '%s' shadows an existing declaration", e.Name)
	case AssignmentToExtern:
		return fmt.Sprintf("cannot assign to extern variable '%s'", e.Name)
	default:
		return "semantic error"
	}
}

// FormatWithSource renders "[line:col] kind: message" against source.
func (e *SemanticError) FormatWithSource(source string) string {
	pos := token.OffsetToPosition(source, e.Span.Start)
	switch e.Kind {
	case Shadowing:
		orig := token.OffsetToPosition(source, e.Original.Start)
		return fmt.Sprintf("[%d:%d] variable '%s' shadows declaration at [%d:%d]",
			pos.Line, pos.Column, e.Name, orig.Line, orig.Column)
	default:
		return fmt.Sprintf("[%d:%d] %s", pos.Line, pos.Column, e.Error())
	}
}

type varInfo struct {
	slot int
	span token.Span
}

// scope is one lexical level of temp declarations.
type scope struct {
	variables map[string]varInfo
	startSlot int
}

// Resolver walks a Script and produces a SymbolTable, or a list of
// SemanticErrors if any binding failed.
type Resolver struct {
	script *ast.Script

	scopes   []*scope
	nextSlot int

	saves   map[string]token.Span
	externs map[string]token.Span

	bindings map[ast.NodeId]Binding
	errors   []*SemanticError
}

// New creates a Resolver over script.
func New(script *ast.Script) *Resolver {
	return &Resolver{
		script:   script,
		scopes:   []*scope{{variables: map[string]varInfo{}, startSlot: 0}},
		saves:    map[string]token.Span{},
		externs:  map[string]token.Span{},
		bindings: map[ast.NodeId]Binding{},
	}
}

// Analyze runs resolution to completion.
func (r *Resolver) Analyze() (*SymbolTable, []*SemanticError) {
	for _, stmt := range r.script.Statements {
		r.resolveStmt(stmt)
	}
	if len(r.errors) > 0 {
		return nil, r.errors
	}
	return &SymbolTable{bindings: r.bindings}, nil
}

func (r *Resolver) resolveStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.TempDecl:
		r.resolveTextlessValue(s.Value)
		r.declareTemp(s.Id, s.Name, s.Span)
	case *ast.SaveDecl:
		r.declareSave(s.Id, s.Name, s.Span)
	case *ast.ExternDecl:
		r.declareExtern(s.Id, s.Name, s.Span)
	case *ast.Assignment:
		r.resolveAssignment(s)
	case *ast.Line:
		r.resolveTextParts(s.Parts)
	case *ast.ChoiceSet:
		for _, choice := range s.Choices {
			r.resolveTextParts(choice.Parts)
		}
		for _, choice := range s.Choices {
			r.pushScope()
			for _, nested := range choice.Nested {
				r.resolveStmt(nested)
			}
			r.popScope()
		}
	}
}

// resolveTextlessValue exists purely as a hook symmetric with the other
// resolve* methods; literal values carry no references to resolve.
func (r *Resolver) resolveTextlessValue(ast.Literal) {}

func (r *Resolver) resolveTextParts(parts []ast.TextPart) {
	for _, part := range parts {
		if ref, ok := part.(*ast.VarRef); ok {
			r.resolveReference(ref.Id, ref.Name, ref.Span)
		}
	}
}

func (r *Resolver) pushScope() {
	r.scopes = append(r.scopes, &scope{variables: map[string]varInfo{}, startSlot: r.nextSlot})
}

func (r *Resolver) popScope() {
	n := len(r.scopes)
	top := r.scopes[n-1]
	r.scopes = r.scopes[:n-1]
	r.nextSlot = top.startSlot
}

// declareTemp introduces a name into the innermost scope, after checking
// for a conflict with any temp/save/extern binding currently visible.
func (r *Resolver) declareTemp(id ast.NodeId, name string, span token.Span) {
	if orig, ok := r.findConflict(name); ok {
		r.errors = append(r.errors, &SemanticError{Kind: Shadowing, Name: name, Span: span, Original: orig})
		return
	}

	slot := r.nextSlot
	r.nextSlot++

	cur := r.scopes[len(r.scopes)-1]
	cur.variables[name] = varInfo{slot: slot, span: span}
	r.bindings[id] = Binding{Class: ClassTemp, Slot: slot}
}

// declareSave and declareExtern register a file-global name, subject to
// the same shadowing check as temps.
func (r *Resolver) declareSave(id ast.NodeId, name string, span token.Span) {
	if orig, ok := r.findConflict(name); ok {
		r.errors = append(r.errors, &SemanticError{Kind: Shadowing, Name: name, Span: span, Original: orig})
		return
	}
	r.saves[name] = span
	r.bindings[id] = Binding{Class: ClassSave, Name: name}
}

func (r *Resolver) declareExtern(id ast.NodeId, name string, span token.Span) {
	if orig, ok := r.findConflict(name); ok {
		r.errors = append(r.errors, &SemanticError{Kind: Shadowing, Name: name, Span: span, Original: orig})
		return
	}
	r.externs[name] = span
	r.bindings[id] = Binding{Class: ClassExtern, Name: name}
}

// findConflict looks for an existing binding of name in any visible temp
// scope or the file-global save/extern maps.
func (r *Resolver) findConflict(name string) (token.Span, bool) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if info, ok := r.scopes[i].variables[name]; ok {
			return info.span, true
		}
	}
	if span, ok := r.saves[name]; ok {
		return span, true
	}
	if span, ok := r.externs[name]; ok {
		return span, true
	}
	return token.Span{}, false
}

// resolveReference resolves a VarRef, searching temps innermost to
// outermost, then saves, then externs.
func (r *Resolver) resolveReference(id ast.NodeId, name string, span token.Span) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if info, ok := r.scopes[i].variables[name]; ok {
			r.bindings[id] = Binding{Class: ClassTemp, Slot: info.slot}
			return
		}
	}
	if _, ok := r.saves[name]; ok {
		r.bindings[id] = Binding{Class: ClassSave, Name: name}
		return
	}
	if _, ok := r.externs[name]; ok {
		r.bindings[id] = Binding{Class: ClassExtern, Name: name}
		return
	}
	r.errors = append(r.errors, &SemanticError{Kind: UndefinedVariable, Name: name, Span: span})
}

// resolveAssignment resolves a "set NAME = literal" target: a temp or
// save is fine, an extern is a compile-time error, and an unknown name is
// UndefinedVariable.
func (r *Resolver) resolveAssignment(a *ast.Assignment) {
	name := a.Name
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if info, ok := r.scopes[i].variables[name]; ok {
			r.bindings[a.Id] = Binding{Class: ClassTemp, Slot: info.slot}
			return
		}
	}
	if _, ok := r.saves[name]; ok {
		r.bindings[a.Id] = Binding{Class: ClassSave, Name: name}
		return
	}
	if _, ok := r.externs[name]; ok {
		r.errors = append(r.errors, &SemanticError{Kind: AssignmentToExtern, Name: name, Span: a.Span})
		return
	}
	r.errors = append(r.errors, &SemanticError{Kind: UndefinedVariable, Name: name, Span: a.Span})
}
