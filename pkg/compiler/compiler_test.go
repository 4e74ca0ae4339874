package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/weave/pkg/bytecode"
	"github.com/kristofer/weave/pkg/parser"
	"github.com/kristofer/weave/pkg/resolver"
)

func compileSource(t *testing.T, source string) *bytecode.Chunk {
	t.Helper()
	p := parser.New(source)
	script, parseErrs := p.Parse()
	require.Empty(t, parseErrs)
	symbols, semErrs := resolver.New(script).Analyze()
	require.Empty(t, semErrs)
	chunk, err := New(symbols).Compile(script)
	require.NoError(t, err)
	return chunk
}

func opcodes(chunk *bytecode.Chunk) []bytecode.Opcode {
	out := make([]bytecode.Opcode, len(chunk.Code))
	for i, instr := range chunk.Code {
		out[i] = instr.Op
	}
	return out
}

func TestCompiler_SingleLiteralLine(t *testing.T) {
	chunk := compileSource(t, "Hello, world!\n")
	assert.Equal(t, []bytecode.Opcode{bytecode.OpConstant, bytecode.OpLine, bytecode.OpReturn}, opcodes(chunk))
	assert.Equal(t, "Hello, world!", chunk.Constants[0].Str)
}

func TestCompiler_InterpolatedLineConcats(t *testing.T) {
	chunk := compileSource(t, "temp name = \"Bob\"\nHi, {name}!\n")
	// temp decl pushes its literal, then the line pushes three parts and concats
	assert.Equal(t, []bytecode.Opcode{
		bytecode.OpConstant, // temp name = "Bob"
		bytecode.OpConstant, // "Hi, "
		bytecode.OpGetLocal, // {name}
		bytecode.OpConstant, // "!"
		bytecode.OpConcat,
		bytecode.OpLine,
		bytecode.OpReturn,
	}, opcodes(chunk))
}

func TestCompiler_SaveDeclEmitsInitStorage(t *testing.T) {
	chunk := compileSource(t, "save rep = 0\n")
	assert.Equal(t, []bytecode.Opcode{bytecode.OpConstant, bytecode.OpInitStorage, bytecode.OpReturn}, opcodes(chunk))
}

func TestCompiler_ExternDeclEmitsNothing(t *testing.T) {
	chunk := compileSource(t, "extern gold\n")
	assert.Equal(t, []bytecode.Opcode{bytecode.OpReturn}, opcodes(chunk))
}

func TestCompiler_AssignmentToTemp(t *testing.T) {
	chunk := compileSource(t, "temp x = 1\nset x = 2\n")
	assert.Equal(t, []bytecode.Opcode{
		bytecode.OpConstant, bytecode.OpConstant, bytecode.OpSetLocal, bytecode.OpReturn,
	}, opcodes(chunk))
}

func TestCompiler_ChoiceSetPatchesJumpsToGather(t *testing.T) {
	source := "- North\n    temp x = 1\n- South\n    temp y = 2\nAfter\n"
	chunk := compileSource(t, source)

	var choiceSetIdx = -1
	for i, instr := range chunk.Code {
		if instr.Op == bytecode.OpChoiceSet {
			choiceSetIdx = i
			break
		}
	}
	require.NotEqual(t, -1, choiceSetIdx)

	choiceSet := chunk.Code[choiceSetIdx]
	require.Len(t, choiceSet.Targets, 2)

	var jumps []int
	for i, instr := range chunk.Code {
		if instr.Op == bytecode.OpJump {
			jumps = append(jumps, i)
		}
	}
	require.Len(t, jumps, 2)

	gather := chunk.Code[jumps[0]].Operand
	assert.Equal(t, gather, chunk.Code[jumps[1]].Operand, "both branches should jump to the same gather point")

	// the gather point is the instruction right after the jumps
	assert.Equal(t, jumps[1]+1, gather)

	// each target lands on the start of its own branch body, strictly
	// after the ChoiceSet instruction and before the next branch's jump
	assert.Greater(t, choiceSet.Targets[0], choiceSetIdx)
	assert.Less(t, choiceSet.Targets[0], jumps[0])
	assert.Greater(t, choiceSet.Targets[1], jumps[0])
	assert.Less(t, choiceSet.Targets[1], jumps[1])
}

func TestCompiler_EmptyTextPartsPushEmptyString(t *testing.T) {
	chunk := compileSource(t, "- \n")
	// the choice has no text parts; compileTextParts should push ""
	require.NotEmpty(t, chunk.Constants)
	assert.Equal(t, "", chunk.Constants[0].Str)
}
