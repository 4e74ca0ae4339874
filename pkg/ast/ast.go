// Package ast defines the abstract syntax tree produced by the parser.
//
// Every construct that the resolver will later need to bind — a
// declaration, an assignment, a variable reference inside interpolated
// text — carries a NodeId, a dense integer stamped by the parser. Two
// distinct occurrences of the same name get distinct NodeIds, so the
// resolver never needs to mutate the tree: it builds a flat map keyed by
// NodeId and the compiler consults that map as an oracle.
package ast

import "github.com/kristofer/weave/pkg/token"

// NodeId uniquely identifies a parser-stamped AST node.
type NodeId int

// Script is the root of the AST: an ordered sequence of top-level
// statements.
type Script struct {
	Statements []Stmt
}

// Stmt is implemented by every statement node.
type Stmt interface {
	stmtNode()
}

// Line is a single rendered dialogue line.
type Line struct {
	Parts []TextPart
	Span  token.Span
}

func (*Line) stmtNode() {}

// ChoiceSet is one presentation point with one or more Choice branches.
type ChoiceSet struct {
	Choices []*Choice
}

func (*ChoiceSet) stmtNode() {}

// Choice is a single branch of a ChoiceSet: text the player sees, plus the
// statements to run if they pick it.
type Choice struct {
	Parts  []TextPart
	Span   token.Span
	Nested []Stmt
}

// LiteralKind discriminates the payload carried by a Literal.
type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralNumber
	LiteralBool
)

// Literal is a compile-time constant value appearing in a declaration or
// assignment.
type Literal struct {
	Kind LiteralKind
	Str  string
	Num  float64
	Bool bool
}

// VarBindingData is the shared shape of every construct that binds a name
// to a literal value: temp/save declarations and assignments.
type VarBindingData struct {
	Id    NodeId
	Name  string
	Value Literal
	Span  token.Span
}

// TempDecl declares a lexically-scoped, stack-allocated variable.
type TempDecl struct{ VarBindingData }

func (*TempDecl) stmtNode() {}

// SaveDecl declares a file-global variable persisted through the injected
// VariableStorage, initialized only if absent.
type SaveDecl struct{ VarBindingData }

func (*SaveDecl) stmtNode() {}

// Assignment rebinds an existing temp or save variable.
type Assignment struct{ VarBindingData }

func (*Assignment) stmtNode() {}

// ExternDecl declares a file-global, read-only variable resolved against
// the injected HostState at run time. It carries no value: ExternDecl
// emits no bytecode, it only exists for the resolver to register the name.
type ExternDecl struct {
	Id   NodeId
	Name string
	Span token.Span
}

func (*ExternDecl) stmtNode() {}

// TextPart is implemented by every constituent of a line or choice's
// rendered text: literal prose, or an interpolated variable reference.
type TextPart interface {
	textPartNode()
}

// TextLiteral is a run of literal text between interpolations (or the
// escaped single-brace produced by "{{" / "}}").
type TextLiteral struct {
	Text string
	Span token.Span
}

func (*TextLiteral) textPartNode() {}

// VarRef is a "{name}" interpolation inside text. It carries its own
// NodeId distinct from any declaration's, since a reference resolves to
// one of the three storage classes independently of where it is declared.
type VarRef struct {
	Id   NodeId
	Name string
	Span token.Span
}

func (*VarRef) textPartNode() {}
