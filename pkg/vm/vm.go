// Package vm executes a compiled bytecode.Chunk. It is resumable: Step
// runs until the program yields a line, offers a choice, or finishes,
// and returns control to the caller rather than blocking on input
// itself. Ported closely from the runtime's original vm module, carried
// over opcode-for-opcode (see StepResult, is_at_end, select_and_continue
// in DESIGN.md).
package vm

import (
	"github.com/sirupsen/logrus"

	"github.com/kristofer/weave/pkg/bytecode"
	"github.com/kristofer/weave/pkg/hoststate"
	"github.com/kristofer/weave/pkg/storage"
)

// StepKind discriminates a StepResult.
type StepKind int

const (
	// StepLine: a dialogue line was rendered and is ready to display.
	StepLine StepKind = iota
	// StepChoice: the program is paused at a ChoiceSet, waiting for
	// SelectAndContinue.
	StepChoice
	// StepDone: the program reached Return; there is nothing more to
	// run.
	StepDone
)

// StepResult is what Step or SelectAndContinue returns each time
// execution pauses.
type StepResult struct {
	Kind    StepKind
	Line    string
	Choices []string
}

// VM is a single running instance of a compiled chunk. It is not safe
// for concurrent use.
type VM struct {
	chunk   *bytecode.Chunk
	ip      int
	stack   []bytecode.Value
	storage storage.VariableStorage
	host    hoststate.HostState
	log     *logrus.Entry
}

// New creates a VM positioned at the start of chunk.
func New(chunk *bytecode.Chunk, store storage.VariableStorage, host hoststate.HostState) *VM {
	return &VM{
		chunk:   chunk,
		storage: store,
		host:    host,
		log:     logrus.WithField("component", "vm"),
	}
}

// IsAtEnd reports whether the instruction the VM is currently parked at
// — following any chain of unconditional jumps — is Return, without
// executing anything. A ChoiceSet short-circuits to false: there is
// always more content after a choice is made.
func (v *VM) IsAtEnd() bool {
	ip := v.ip
	for {
		if ip < 0 || ip >= v.chunk.Len() {
			return true
		}
		instr := v.chunk.Code[ip]
		switch instr.Op {
		case bytecode.OpReturn:
			return true
		case bytecode.OpJump:
			ip = instr.Operand
		case bytecode.OpChoiceSet:
			return false
		default:
			return false
		}
	}
}

// Step executes until the next pause point (a rendered line or an
// offered choice) or the program finishes.
func (v *VM) Step() (StepResult, error) {
	return v.run()
}

// SelectAndContinue resumes execution after a StepChoice result, taking
// the branch at index. The VM must currently be parked at the
// ChoiceSet's instruction (exactly where Step left it) or this returns
// NotAtChoice.
func (v *VM) SelectAndContinue(index int) (StepResult, error) {
	if v.ip < 0 || v.ip >= v.chunk.Len() {
		return StepResult{}, &RuntimeError{Kind: NotAtChoice}
	}
	instr := v.chunk.Code[v.ip]
	if instr.Op != bytecode.OpChoiceSet {
		return StepResult{}, &RuntimeError{Kind: NotAtChoice}
	}
	count := instr.Operand
	if index < 0 || index >= count {
		return StepResult{}, &RuntimeError{Kind: InvalidChoiceIndex, Index: index, Count: count}
	}
	v.ip = instr.Targets[index]
	return v.run()
}

func (v *VM) run() (StepResult, error) {
	for {
		instr := v.chunk.Code[v.ip]
		v.log.WithFields(logrus.Fields{"ip": v.ip, "op": instr.Op}).Debug("dispatch")
		v.ip++

		switch instr.Op {
		case bytecode.OpConstant:
			v.push(v.chunk.Constants[instr.Operand])

		case bytecode.OpGetLocal:
			v.push(v.stack[instr.Operand])

		case bytecode.OpSetLocal:
			v.stack[instr.Operand] = v.pop()

		case bytecode.OpConcat:
			count := instr.Operand
			start := len(v.stack) - count
			result := ""
			for i := start; i < len(v.stack); i++ {
				result += v.stack[i].String()
			}
			v.stack = v.stack[:start]
			v.push(bytecode.StringValue(result))

		case bytecode.OpLine:
			text := v.pop().String()
			return StepResult{Kind: StepLine, Line: text}, nil

		case bytecode.OpChoiceSet:
			count := instr.Operand
			choices := make([]string, count)
			for i := count - 1; i >= 0; i-- {
				choices[i] = v.pop().String()
			}
			v.ip--
			return StepResult{Kind: StepChoice, Choices: choices}, nil

		case bytecode.OpJump:
			v.ip = instr.Operand

		case bytecode.OpInitStorage:
			name := v.chunk.Constants[instr.Operand].Str
			v.storage.InitializeIfAbsent(name, v.pop())

		case bytecode.OpGetStorage:
			name := v.chunk.Constants[instr.Operand].Str
			value, ok := v.storage.Get(name)
			if !ok {
				return StepResult{}, &RuntimeError{Kind: MissingSaveVariable, Name: name}
			}
			v.push(value)

		case bytecode.OpSetStorage:
			name := v.chunk.Constants[instr.Operand].Str
			v.storage.Set(name, v.pop())

		case bytecode.OpGetHost:
			name := v.chunk.Constants[instr.Operand].Str
			value, ok := v.host.Lookup(name)
			if !ok {
				return StepResult{}, &RuntimeError{Kind: MissingExternVariable, Name: name}
			}
			v.push(value)

		case bytecode.OpReturn:
			return StepResult{Kind: StepDone}, nil
		}
	}
}

func (v *VM) push(value bytecode.Value) {
	v.stack = append(v.stack, value)
}

func (v *VM) pop() bytecode.Value {
	n := len(v.stack) - 1
	value := v.stack[n]
	v.stack = v.stack[:n]
	return value
}
