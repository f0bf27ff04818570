package compiler

import (
	"fmt"
	"strings"
)

// Disassemble renders proto and every nested Proto as human-readable
// listing text, one line per instruction, in the same spirit as Lua's
// luaU_print (the `luac -l` disassembly): pc, source line, opcode mnemonic
// and operands. It exists for debugging and the `dis` CLI command; the
// compiler's tests check that its listing carries the function header and
// opcode mnemonics.
func Disassemble(proto *Proto) string {
	var sb strings.Builder
	disassemble(&sb, proto, 0)
	return sb.String()
}

func disassemble(sb *strings.Builder, p *Proto, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(sb, "%sfunction <%s:%d,%d> (%d instructions, %d params, %s)\n",
		indent, p.Source, p.LineDefined, p.LastLineDefined, len(p.Code), p.NumParams, varargLabel(p.IsVararg))

	for pc, instr := range p.Code {
		line := 0
		if pc < len(p.LineInfo) {
			line = p.LineInfo[pc]
		}
		fmt.Fprintf(sb, "%s\t%d\t[%d]\t%s\n", indent, pc, line, formatInstr(instr))
	}
	for _, child := range p.Protos {
		disassemble(sb, child, depth+1)
	}
}

func varargLabel(isVararg bool) string {
	if isVararg {
		return "vararg"
	}
	return "fixed"
}

func formatInstr(i Instruction) string {
	op := i.opcode()
	switch op.mode() {
	case modeABx:
		return fmt.Sprintf("%-10s %d %d", op, i.argA(), i.argBx())
	case modeAsBx:
		return fmt.Sprintf("%-10s %d %d", op, i.argA(), i.argSBx())
	default:
		return fmt.Sprintf("%-10s %d %d %d", op, i.argA(), i.argB(), i.argC())
	}
}
