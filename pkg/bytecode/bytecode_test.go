package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue_StringRendersIntegersWithoutDecimal(t *testing.T) {
	assert.Equal(t, "5", NumberValue(5).String())
	assert.Equal(t, "5.5", NumberValue(5.5).String())
	assert.Equal(t, "true", BoolValue(true).String())
	assert.Equal(t, "false", BoolValue(false).String())
	assert.Equal(t, "hi", StringValue("hi").String())
}

func TestChunk_EmitAndAddConstant(t *testing.T) {
	c := New()
	idx := c.AddConstant(StringValue("hello"))
	offset := c.Emit(Instruction{Op: OpConstant, Operand: idx}, 1)

	assert.Equal(t, 0, offset)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, "hello", c.Constants[idx].Str)
	assert.Equal(t, 1, c.Lines[0])
}

func TestChunk_Disassemble(t *testing.T) {
	c := New()
	idx := c.AddConstant(StringValue("hi"))
	c.Emit(Instruction{Op: OpConstant, Operand: idx}, 1)
	c.Emit(Instruction{Op: OpLine}, 1)
	c.Emit(Instruction{Op: OpReturn}, 1)

	out := c.Disassemble("test")
	assert.Contains(t, out, "CONSTANT")
	assert.Contains(t, out, "LINE")
	assert.Contains(t, out, "RETURN")
}
