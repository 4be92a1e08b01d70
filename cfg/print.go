package cfg

import (
	"fmt"
	"strings"
)

// Repr converts the namespace into a displayable string.  The output is the
// same textual form accepted by the irtext reader.
func (ns *Namespace) Repr() string {
	sb := strings.Builder{}

	for i, fn := range ns.Funcs {
		if i > 0 {
			sb.WriteRune('\n')
		}

		sb.WriteString(fn.Repr())
	}

	return sb.String()
}

// Repr converts the function into a displayable string.
func (fn *Function) Repr() string {
	sb := strings.Builder{}

	sb.WriteString(fmt.Sprintf("fn %s(%s) {\n", fn.Name, strings.Join(fn.Params, ", ")))

	if extras := fn.Locals[len(fn.Params):]; len(extras) > 0 {
		sb.WriteString("  locals " + strings.Join(extras, ", ") + "\n")
	}

	for _, blk := range fn.Blocks {
		sb.WriteString(blk.Label + ":\n")

		for _, instr := range blk.Instrs {
			sb.WriteString("  " + instr.Repr() + "\n")
		}

		sb.WriteString("  " + blk.Term.Repr() + "\n")
	}

	sb.WriteString("}\n")
	return sb.String()
}

// Repr converts the instruction into a displayable string.
func (instr *Instr) Repr() string {
	sb := strings.Builder{}

	if !instr.Dst.IsNone() {
		sb.WriteString(instr.Dst.Repr())
		sb.WriteString(" = ")
	}

	sb.WriteString(OpName(instr.OpCode))

	for i, op := range instr.Operands {
		if i == 0 {
			sb.WriteRune(' ')
		} else {
			sb.WriteString(", ")
		}

		sb.WriteString(op.Repr())
	}

	return sb.String()
}

// Repr converts the terminator into a displayable string.
func (t *Terminator) Repr() string {
	switch t.Kind {
	case TermJump:
		return "jmp " + t.To
	case TermBranch:
		return fmt.Sprintf("br %s, %s, %s", t.Cond.Repr(), t.To, t.Else)
	case TermRet:
		if t.Val.IsNone() {
			return "ret"
		}
		return "ret " + t.Val.Repr()
	default:
		return "<no terminator>"
	}
}

// Repr converts the value into a displayable string.
func (v Value) Repr() string {
	switch v.Kind {
	case KindReg:
		return fmt.Sprintf("r%d", v.Reg)
	case KindImm:
		return fmt.Sprintf("%d", v.Imm)
	case KindLocal:
		return v.Name
	case KindFunc:
		return "@" + v.Name
	default:
		return "<none>"
	}
}
