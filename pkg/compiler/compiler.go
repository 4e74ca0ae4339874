// Package compiler lowers a resolved AST into a bytecode.Chunk.
//
// The central non-trivial algorithm is choice-set lowering: a ChoiceSet's
// choices are compiled, each branch, gather point recorded and
// jump offsets patched in a two-phase pass (placeholders emitted first,
// then patched once every target is known — the same forward-reference
// trick an assembler uses for labels, see spec.md §4.4/§9). Everything
// else is a direct, line-by-line emission following the resolved symbol
// table as an oracle for which storage-class instruction to emit per
// variable reference.
package compiler

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kristofer/weave/pkg/ast"
	"github.com/kristofer/weave/pkg/bytecode"
	"github.com/kristofer/weave/pkg/resolver"
)

// CompileError is returned for compiler-internal invariant violations.
// A resolved, well-formed AST never triggers one; it exists so the
// compiler's public API has an error return like every other pipeline
// stage, matching kristofer/smog's per-stage `error` returns.
type CompileError struct {
	Message string
}

func (e *CompileError) Error() string { return e.Message }

// Compiler emits a single Chunk from an ast.Script and its SymbolTable.
type Compiler struct {
	symbols *resolver.SymbolTable
	chunk   *bytecode.Chunk
}

// New creates a Compiler bound to a resolved symbol table.
func New(symbols *resolver.SymbolTable) *Compiler {
	return &Compiler{symbols: symbols, chunk: bytecode.New()}
}

// Compile lowers script into a Chunk, appending a trailing Return.
func (c *Compiler) Compile(script *ast.Script) (*bytecode.Chunk, error) {
	if len(script.Statements) == 0 {
		logrus.WithField("component", "compiler").Warn("compiling a script with zero statements")
	}
	for _, stmt := range script.Statements {
		if err := c.compileStmt(stmt); err != nil {
			return nil, err
		}
	}
	c.emit(bytecode.Instruction{Op: bytecode.OpReturn}, 0)
	return c.chunk, nil
}

func (c *Compiler) compileStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.Line:
		return c.compileLine(s)
	case *ast.ChoiceSet:
		return c.compileChoiceSet(s)
	case *ast.TempDecl:
		// The pushed value's stack position IS the slot the resolver
		// assigned it, since slots are allocated in declaration order
		// matching execution order.
		c.compileLiteral(s.Value, s.Span.Start)
		return nil
	case *ast.SaveDecl:
		return c.compileSaveDecl(s)
	case *ast.Assignment:
		return c.compileAssignment(s)
	case *ast.ExternDecl:
		// Compile-time only: no bytecode.
		return nil
	default:
		return &CompileError{Message: fmt.Sprintf("unknown statement type %T", stmt)}
	}
}

func (c *Compiler) compileLine(s *ast.Line) error {
	if err := c.compileTextParts(s.Parts, s.Span.Start); err != nil {
		return err
	}
	c.emit(bytecode.Instruction{Op: bytecode.OpLine}, s.Span.Start)
	return nil
}

// compileTextParts pushes the text of parts as a single string value:
// an empty part list pushes an empty-string constant, a single literal
// pushes its constant directly, and anything else pushes each part in
// order and concatenates.
func (c *Compiler) compileTextParts(parts []ast.TextPart, line int) error {
	if len(parts) == 0 {
		idx := c.chunk.AddConstant(bytecode.StringValue(""))
		c.emit(bytecode.Instruction{Op: bytecode.OpConstant, Operand: idx}, line)
		return nil
	}
	if len(parts) == 1 {
		if lit, ok := parts[0].(*ast.TextLiteral); ok {
			idx := c.chunk.AddConstant(bytecode.StringValue(lit.Text))
			c.emit(bytecode.Instruction{Op: bytecode.OpConstant, Operand: idx}, line)
			return nil
		}
	}

	for _, part := range parts {
		switch p := part.(type) {
		case *ast.TextLiteral:
			idx := c.chunk.AddConstant(bytecode.StringValue(p.Text))
			c.emit(bytecode.Instruction{Op: bytecode.OpConstant, Operand: idx}, line)
		case *ast.VarRef:
			if err := c.compileReference(p.Id, p.Name, line); err != nil {
				return err
			}
		}
	}
	c.emit(bytecode.Instruction{Op: bytecode.OpConcat, Operand: len(parts)}, line)
	return nil
}

// compileReference emits the storage-class-specific Get instruction for
// a resolved NodeId.
func (c *Compiler) compileReference(id ast.NodeId, name string, line int) error {
	binding, ok := c.symbols.Lookup(id)
	if !ok {
		return &CompileError{Message: fmt.Sprintf("internal error: unresolved reference to %q", name)}
	}
	switch binding.Class {
	case resolver.ClassTemp:
		c.emit(bytecode.Instruction{Op: bytecode.OpGetLocal, Operand: binding.Slot}, line)
	case resolver.ClassSave:
		idx := c.chunk.AddConstant(bytecode.StringValue(binding.Name))
		c.emit(bytecode.Instruction{Op: bytecode.OpGetStorage, Operand: idx}, line)
	case resolver.ClassExtern:
		idx := c.chunk.AddConstant(bytecode.StringValue(binding.Name))
		c.emit(bytecode.Instruction{Op: bytecode.OpGetHost, Operand: idx}, line)
	}
	return nil
}

func (c *Compiler) compileSaveDecl(s *ast.SaveDecl) error {
	c.compileLiteral(s.Value, s.Span.Start)
	binding, ok := c.symbols.Lookup(s.Id)
	if !ok {
		return &CompileError{Message: fmt.Sprintf("internal error: unresolved save declaration %q", s.Name)}
	}
	idx := c.chunk.AddConstant(bytecode.StringValue(binding.Name))
	c.emit(bytecode.Instruction{Op: bytecode.OpInitStorage, Operand: idx}, s.Span.Start)
	return nil
}

func (c *Compiler) compileAssignment(s *ast.Assignment) error {
	c.compileLiteral(s.Value, s.Span.Start)
	binding, ok := c.symbols.Lookup(s.Id)
	if !ok {
		return &CompileError{Message: fmt.Sprintf("internal error: unresolved assignment to %q", s.Name)}
	}
	switch binding.Class {
	case resolver.ClassTemp:
		c.emit(bytecode.Instruction{Op: bytecode.OpSetLocal, Operand: binding.Slot}, s.Span.Start)
	case resolver.ClassSave:
		idx := c.chunk.AddConstant(bytecode.StringValue(binding.Name))
		c.emit(bytecode.Instruction{Op: bytecode.OpSetStorage, Operand: idx}, s.Span.Start)
	case resolver.ClassExtern:
		return &CompileError{Message: fmt.Sprintf("internal error: assignment to extern %q reached compiler", s.Name)}
	}
	return nil
}

func (c *Compiler) compileLiteral(lit ast.Literal, line int) {
	var v bytecode.Value
	switch lit.Kind {
	case ast.LiteralString:
		v = bytecode.StringValue(lit.Str)
	case ast.LiteralNumber:
		v = bytecode.NumberValue(lit.Num)
	case ast.LiteralBool:
		v = bytecode.BoolValue(lit.Bool)
	}
	idx := c.chunk.AddConstant(v)
	c.emit(bytecode.Instruction{Op: bytecode.OpConstant, Operand: idx}, line)
}

// compileChoiceSet implements the choice/gather lowering described in
// spec.md §4.4:
//
//  1. Compile each choice's text (leaving count values on the stack).
//  2. Emit a placeholder OpChoiceSet at offset C.
//  3. For each choice in order: record its target, compile its nested
//     body in a fresh scope, then emit a placeholder Jump and remember
//     its offset.
//  4. Record the gather point (the current offset).
//  5. Patch every remembered Jump to the gather point.
//  6. Patch the OpChoiceSet's Targets to the recorded per-choice offsets.
func (c *Compiler) compileChoiceSet(s *ast.ChoiceSet) error {
	line := 0
	if len(s.Choices) > 0 {
		line = s.Choices[0].Span.Start
	}

	for _, choice := range s.Choices {
		if err := c.compileTextParts(choice.Parts, choice.Span.Start); err != nil {
			return err
		}
	}

	choiceSetOffset := c.emit(bytecode.Instruction{Op: bytecode.OpChoiceSet, Operand: len(s.Choices)}, line)

	targets := make([]int, len(s.Choices))
	var jumpOffsets []int

	for i, choice := range s.Choices {
		targets[i] = c.chunk.Len()
		for _, nested := range choice.Nested {
			if err := c.compileStmt(nested); err != nil {
				return err
			}
		}
		jumpOffsets = append(jumpOffsets, c.emit(bytecode.Instruction{Op: bytecode.OpJump}, choice.Span.Start))
	}

	gather := c.chunk.Len()
	for _, off := range jumpOffsets {
		c.chunk.Code[off].Operand = gather
	}
	c.chunk.Code[choiceSetOffset].Targets = targets

	return nil
}

func (c *Compiler) emit(instr bytecode.Instruction, line int) int {
	return c.chunk.Emit(instr, line)
}
