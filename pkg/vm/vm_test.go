package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/weave/pkg/bytecode"
	"github.com/kristofer/weave/pkg/hoststate"
	"github.com/kristofer/weave/pkg/storage"
)

func TestVM_SingleLineThenDone(t *testing.T) {
	chunk := bytecode.New()
	idx := chunk.AddConstant(bytecode.StringValue("hello"))
	chunk.Emit(bytecode.Instruction{Op: bytecode.OpConstant, Operand: idx}, 1)
	chunk.Emit(bytecode.Instruction{Op: bytecode.OpLine}, 1)
	chunk.Emit(bytecode.Instruction{Op: bytecode.OpReturn}, 1)

	v := New(chunk, storage.NewMemoryStorage(), hoststate.EmptyHostState{})

	result, err := v.Step()
	require.NoError(t, err)
	assert.Equal(t, StepLine, result.Kind)
	assert.Equal(t, "hello", result.Line)
	assert.True(t, v.IsAtEnd())

	result, err = v.Step()
	require.NoError(t, err)
	assert.Equal(t, StepDone, result.Kind)
}

func TestVM_ChoiceSetAndSelectAndContinue(t *testing.T) {
	chunk := bytecode.New()
	northIdx := chunk.AddConstant(bytecode.StringValue("Go north"))
	southIdx := chunk.AddConstant(bytecode.StringValue("Go south"))
	chunk.Emit(bytecode.Instruction{Op: bytecode.OpConstant, Operand: northIdx}, 1)
	chunk.Emit(bytecode.Instruction{Op: bytecode.OpConstant, Operand: southIdx}, 1)
	choiceSetOffset := chunk.Emit(bytecode.Instruction{Op: bytecode.OpChoiceSet, Operand: 2}, 1)

	northBodyIdx := chunk.AddConstant(bytecode.StringValue("You went north"))
	northTarget := chunk.Emit(bytecode.Instruction{Op: bytecode.OpConstant, Operand: northBodyIdx}, 2)
	chunk.Emit(bytecode.Instruction{Op: bytecode.OpLine}, 2)
	northJump := chunk.Emit(bytecode.Instruction{Op: bytecode.OpJump}, 2)

	southBodyIdx := chunk.AddConstant(bytecode.StringValue("You went south"))
	southTarget := chunk.Emit(bytecode.Instruction{Op: bytecode.OpConstant, Operand: southBodyIdx}, 3)
	chunk.Emit(bytecode.Instruction{Op: bytecode.OpLine}, 3)
	southJump := chunk.Emit(bytecode.Instruction{Op: bytecode.OpJump}, 3)

	gather := chunk.Emit(bytecode.Instruction{Op: bytecode.OpReturn}, 4)

	chunk.Code[northJump].Operand = gather
	chunk.Code[southJump].Operand = gather
	chunk.Code[choiceSetOffset].Targets = []int{northTarget, southTarget}

	v := New(chunk, storage.NewMemoryStorage(), hoststate.EmptyHostState{})

	result, err := v.Step()
	require.NoError(t, err)
	require.Equal(t, StepChoice, result.Kind)
	assert.Equal(t, []string{"Go north", "Go south"}, result.Choices)

	result, err = v.SelectAndContinue(1)
	require.NoError(t, err)
	assert.Equal(t, StepLine, result.Kind)
	assert.Equal(t, "You went south", result.Line)
}

func TestVM_SelectAndContinue_NotAtChoice(t *testing.T) {
	chunk := bytecode.New()
	chunk.Emit(bytecode.Instruction{Op: bytecode.OpReturn}, 1)
	v := New(chunk, storage.NewMemoryStorage(), hoststate.EmptyHostState{})

	_, err := v.SelectAndContinue(0)
	require.Error(t, err)
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, NotAtChoice, rerr.Kind)
}

func TestVM_SaveVariableRoundTrip(t *testing.T) {
	chunk := bytecode.New()
	nameIdx := chunk.AddConstant(bytecode.StringValue("rep"))
	defaultIdx := chunk.AddConstant(bytecode.NumberValue(0))
	chunk.Emit(bytecode.Instruction{Op: bytecode.OpConstant, Operand: defaultIdx}, 1)
	chunk.Emit(bytecode.Instruction{Op: bytecode.OpInitStorage, Operand: nameIdx}, 1)
	chunk.Emit(bytecode.Instruction{Op: bytecode.OpGetStorage, Operand: nameIdx}, 2)
	chunk.Emit(bytecode.Instruction{Op: bytecode.OpLine}, 2)
	chunk.Emit(bytecode.Instruction{Op: bytecode.OpReturn}, 2)

	store := storage.NewMemoryStorage()
	store.Set("rep", bytecode.NumberValue(7))

	v := New(chunk, store, hoststate.EmptyHostState{})
	result, err := v.Step()
	require.NoError(t, err)
	assert.Equal(t, "7", result.Line, "InitStorage must not overwrite an existing save value")
}

func TestVM_MissingExternVariable(t *testing.T) {
	chunk := bytecode.New()
	nameIdx := chunk.AddConstant(bytecode.StringValue("gold"))
	chunk.Emit(bytecode.Instruction{Op: bytecode.OpGetHost, Operand: nameIdx}, 1)
	chunk.Emit(bytecode.Instruction{Op: bytecode.OpLine}, 1)
	chunk.Emit(bytecode.Instruction{Op: bytecode.OpReturn}, 1)

	v := New(chunk, storage.NewMemoryStorage(), hoststate.EmptyHostState{})
	_, err := v.Step()
	require.Error(t, err)
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, MissingExternVariable, rerr.Kind)
	assert.Equal(t, "gold", rerr.Name)
}

func TestVM_ExternVariableFromHostState(t *testing.T) {
	chunk := bytecode.New()
	nameIdx := chunk.AddConstant(bytecode.StringValue("gold"))
	chunk.Emit(bytecode.Instruction{Op: bytecode.OpGetHost, Operand: nameIdx}, 1)
	chunk.Emit(bytecode.Instruction{Op: bytecode.OpLine}, 1)
	chunk.Emit(bytecode.Instruction{Op: bytecode.OpReturn}, 1)

	host := hoststate.NewStaticHostState(map[string]bytecode.Value{"gold": bytecode.NumberValue(42)})
	v := New(chunk, storage.NewMemoryStorage(), host)
	result, err := v.Step()
	require.NoError(t, err)
	assert.Equal(t, "42", result.Line)
}
