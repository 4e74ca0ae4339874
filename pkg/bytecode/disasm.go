package bytecode

import (
	"fmt"
	"strings"

	"github.com/alecthomas/repr"
)

// Disassemble renders a human-readable dump of the chunk: its constant
// pool followed by its instruction stream. This is debugging output only
// — the core defines no persisted bytecode format, so there is no
// matching Assemble/decode.
//
// Grounded on kristofer/smog's cmd/smog disassembleFile, but prints the
// constant pool via alecthomas/repr instead of a hand-written type
// switch.
func (c *Chunk) Disassemble(name string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== %s ===\n", name)
	fmt.Fprintln(&b, "constants:")
	if len(c.Constants) == 0 {
		fmt.Fprintln(&b, "  (empty)")
	} else {
		for i, v := range c.Constants {
			fmt.Fprintf(&b, "  [%d] %s\n", i, repr.String(v, repr.Indent("  ")))
		}
	}

	fmt.Fprintln(&b, "instructions:")
	for i, instr := range c.Code {
		fmt.Fprintf(&b, "  %4d: %-14s", i, instr.Op)
		switch instr.Op {
		case OpChoiceSet:
			fmt.Fprintf(&b, " count=%d targets=%v", instr.Operand, instr.Targets)
		case OpInitStorage, OpGetStorage, OpSetStorage, OpGetHost:
			name := ""
			if instr.Operand < len(c.Constants) {
				name = c.Constants[instr.Operand].String()
			}
			fmt.Fprintf(&b, " name=%q", name)
		case OpJump:
			fmt.Fprintf(&b, " target=%d", instr.Operand)
		case OpConstant:
			val := ""
			if instr.Operand < len(c.Constants) {
				val = c.Constants[instr.Operand].String()
			}
			fmt.Fprintf(&b, " %d (%s)", instr.Operand, val)
		default:
			if instr.Operand != 0 {
				fmt.Fprintf(&b, " %d", instr.Operand)
			}
		}
		fmt.Fprintln(&b)
	}

	return b.String()
}
