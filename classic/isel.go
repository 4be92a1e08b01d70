package classic

import (
	"fmt"

	"dcc/cfg"
	"dcc/lower"
)

// argRegs are the x86_64 System V integer argument registers in order.
var argRegs = []string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"}

// Scratch registers used to mediate memory operands.  x86 does not allow
// memory-to-memory operations, so values homed in stack slots pass through
// r10 and r11.
const (
	scratchA = "%r10"
	scratchB = "%r11"
)

// emitter lowers one function into a machine body.  It performs instruction
// selection per basic block, mapping IR operations to one or more x86_64
// instructions in AT&T syntax.
type emitter struct {
	fn    *cfg.Function
	frame *frame
	body  *lower.Body

	// The machine block instructions are currently appended to.
	blk *lower.MachBlock
}

// emitFunction lowers fn and returns its machine body.
func emitFunction(fn *cfg.Function) (*lower.Body, error) {
	if len(fn.Params) > len(argRegs) {
		return nil, &lower.LoweringError{
			Function:  fn.Name,
			Construct: fmt.Sprintf("function with %d parameters (max %d)", len(fn.Params), len(argRegs)),
			Triple:    tripleName,
		}
	}

	e := &emitter{
		fn:    fn,
		frame: newFrame(fn),
		body:  &lower.Body{Name: fn.Name},
	}
	e.body.FrameSize = e.frame.size

	for i, blk := range fn.Blocks {
		e.blk = &lower.MachBlock{Label: blk.Label}
		e.body.Blocks = append(e.body.Blocks, e.blk)

		// The prologue belongs to the entry block.
		if i == 0 {
			e.emitPrologue()
		}

		for j := range blk.Instrs {
			if err := e.emitInstr(&blk.Instrs[j]); err != nil {
				return nil, err
			}
		}

		if err := e.emitTerminator(&blk.Term); err != nil {
			return nil, err
		}
	}

	return e.body, nil
}

// -----------------------------------------------------------------------------

// emitPrologue establishes the frame, saves the callee-saved registers used
// as virtual register homes, and stores incoming parameters into their local
// slots.
func (e *emitter) emitPrologue() {
	e.blk.Append("pushq", "%rbp")
	e.blk.Append("movq", "%rsp", "%rbp")

	for _, reg := range e.frame.saved {
		e.blk.Append("pushq", reg)
	}

	if e.frame.size > 0 {
		e.blk.Append("subq", fmt.Sprintf("$%d", e.frame.size), "%rsp")
	}

	for i, param := range e.fn.Params {
		e.blk.Append("movq", argRegs[i], e.frame.localAddr(param))
	}
}

// emitEpilogue tears the frame down.  It is emitted in front of every ret.
func (e *emitter) emitEpilogue() {
	if e.frame.size > 0 {
		e.blk.Append("addq", fmt.Sprintf("$%d", e.frame.size), "%rsp")
	}

	for i := len(e.frame.saved) - 1; i >= 0; i-- {
		e.blk.Append("popq", e.frame.saved[i])
	}

	e.blk.Append("popq", "%rbp")
}

// -----------------------------------------------------------------------------

// operandToReg materializes an IR operand into the given scratch register and
// returns the register text.  Operands already homed in a physical register
// are returned directly without a move.
func (e *emitter) operandToReg(v cfg.Value, scratch string) string {
	switch v.Kind {
	case cfg.KindImm:
		e.blk.Append("movq", fmt.Sprintf("$%d", v.Imm), scratch)
		return scratch
	case cfg.KindReg:
		if e.frame.inRegister(v.Reg) {
			return e.frame.homeOf(v.Reg)
		}

		e.blk.Append("movq", e.frame.homeOf(v.Reg), scratch)
		return scratch
	default:
		// Guarded by cfg.Verify; local operands never reach arithmetic.
		e.blk.Append("movq", e.frame.localAddr(v.Name), scratch)
		return scratch
	}
}

// storeResult moves a physical register into the destination virtual
// register's home.
func (e *emitter) storeResult(dst cfg.Value, src string) {
	if dst.IsNone() {
		return
	}

	e.blk.Append("movq", src, e.frame.homeOf(dst.Reg))
}

// -----------------------------------------------------------------------------

// binaryMnemonics maps two-operand IR arithmetic ops to their x86_64
// mnemonics.
var binaryMnemonics = map[int]string{
	cfg.OpAdd: "addq",
	cfg.OpSub: "subq",
	cfg.OpMul: "imulq",
}

// comparisonSetcc maps IR comparison ops to their setcc mnemonics under a
// `cmpq y, x` (AT&T: x - y) flags computation.
var comparisonSetcc = map[int]string{
	cfg.OpCmpEQ: "sete",
	cfg.OpCmpNE: "setne",
	cfg.OpCmpLT: "setl",
	cfg.OpCmpLE: "setle",
	cfg.OpCmpGT: "setg",
	cfg.OpCmpGE: "setge",
}

// emitInstr selects machine instructions for one IR instruction.
func (e *emitter) emitInstr(instr *cfg.Instr) error {
	switch instr.OpCode {
	case cfg.OpConst:
		e.blk.Append("movq", fmt.Sprintf("$%d", instr.Operands[0].Imm), scratchA)
		e.storeResult(instr.Dst, scratchA)

	case cfg.OpAdd, cfg.OpSub, cfg.OpMul:
		// The left operand is copied into scratch so that register homes are
		// never clobbered in place.
		e.blk.Append("movq", e.operandText(instr.Operands[0]), scratchA)
		e.blk.Append(binaryMnemonics[instr.OpCode], e.operandText(instr.Operands[1]), scratchA)
		e.storeResult(instr.Dst, scratchA)

	case cfg.OpDiv, cfg.OpRem:
		e.blk.Append("movq", e.operandText(instr.Operands[0]), "%rax")
		e.blk.Append("cqto")
		divisor := e.operandToReg(instr.Operands[1], scratchB)
		e.blk.Append("idivq", divisor)
		if instr.OpCode == cfg.OpDiv {
			e.storeResult(instr.Dst, "%rax")
		} else {
			e.storeResult(instr.Dst, "%rdx")
		}

	case cfg.OpNeg:
		e.blk.Append("movq", e.operandText(instr.Operands[0]), scratchA)
		e.blk.Append("negq", scratchA)
		e.storeResult(instr.Dst, scratchA)

	case cfg.OpNot:
		x := e.operandToReg(instr.Operands[0], scratchA)
		e.blk.Append("cmpq", "$0", x)
		e.blk.Append("sete", "%r10b")
		e.blk.Append("movzbq", "%r10b", scratchA)
		e.storeResult(instr.Dst, scratchA)

	case cfg.OpCmpEQ, cfg.OpCmpNE, cfg.OpCmpLT, cfg.OpCmpLE, cfg.OpCmpGT, cfg.OpCmpGE:
		e.blk.Append("movq", e.operandText(instr.Operands[0]), scratchA)
		e.blk.Append("cmpq", e.operandText(instr.Operands[1]), scratchA)
		e.blk.Append(comparisonSetcc[instr.OpCode], "%r10b")
		e.blk.Append("movzbq", "%r10b", scratchA)
		e.storeResult(instr.Dst, scratchA)

	case cfg.OpLoad:
		e.blk.Append("movq", e.frame.localAddr(instr.Operands[0].Name), scratchA)
		e.storeResult(instr.Dst, scratchA)

	case cfg.OpStore:
		val := e.operandToReg(instr.Operands[1], scratchA)
		e.blk.Append("movq", val, e.frame.localAddr(instr.Operands[0].Name))

	case cfg.OpCall:
		return e.emitCall(instr)

	default:
		return &lower.LoweringError{
			Function:  e.fn.Name,
			Construct: cfg.OpName(instr.OpCode),
			Triple:    tripleName,
		}
	}

	return nil
}

// operandText returns the operand in x86_64 syntax without forcing it into a
// scratch register: immediates stay immediate and register homes stay
// registers.  Spilled homes and locals come back as memory operands, so at
// most one operand of a two-operand instruction may go through this path.
func (e *emitter) operandText(v cfg.Value) string {
	switch v.Kind {
	case cfg.KindImm:
		return fmt.Sprintf("$%d", v.Imm)
	case cfg.KindReg:
		return e.frame.homeOf(v.Reg)
	default:
		return e.frame.localAddr(v.Name)
	}
}

// emitCall lowers a call under the System V calling convention.  Argument
// homes are callee-saved registers, stack slots, or immediates, so moving
// them into the argument registers in order never clobbers a pending source.
func (e *emitter) emitCall(instr *cfg.Instr) error {
	callee := instr.Operands[0].Name
	args := instr.Operands[1:]

	if len(args) > len(argRegs) {
		return &lower.LoweringError{
			Function:  e.fn.Name,
			Construct: fmt.Sprintf("call to `%s` with %d arguments (max %d)", callee, len(args), len(argRegs)),
			Triple:    tripleName,
		}
	}

	for i, arg := range args {
		e.blk.Append("movq", e.operandText(arg), argRegs[i])
	}

	e.blk.Append("callq", callee)
	e.storeResult(instr.Dst, "%rax")
	return nil
}

// emitTerminator lowers a block terminator, preserving the source edge
// structure: every CFG edge becomes exactly one control transfer with the
// same taken/not-taken semantics.
func (e *emitter) emitTerminator(term *cfg.Terminator) error {
	switch term.Kind {
	case cfg.TermJump:
		e.blk.AppendBranch("jmp", term.To)

	case cfg.TermBranch:
		cond := e.operandToReg(term.Cond, scratchA)
		e.blk.Append("testq", cond, cond)
		e.blk.AppendBranch("jnz", term.To)
		e.blk.AppendBranch("jmp", term.Else)

	case cfg.TermRet:
		if !term.Val.IsNone() {
			e.blk.Append("movq", e.operandText(term.Val), "%rax")
		}
		e.emitEpilogue()
		e.blk.Append("retq")

	default:
		return &lower.LoweringError{
			Function:  e.fn.Name,
			Construct: "block without terminator",
			Triple:    tripleName,
		}
	}

	return nil
}
