package a64

import (
	"fmt"

	"dcc/cfg"
	"dcc/lower"
)

// argRegs are the AAPCS64 integer argument registers in order.
var argRegs = []string{"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7"}

// Scratch registers.  x9-x12 are caller-saved temporaries never used to hold
// values across instructions; x12 is reserved for mediating frame addresses
// outside the ldr/str immediate range.
const (
	scratchA    = "x9"
	scratchB    = "x10"
	scratchC    = "x11"
	scratchAddr = "x12"
)

// maxImmOffset is the largest negative frame offset ldr/str can encode
// directly; maxFrameOffset is the largest offset a single sub immediate can
// materialize into scratchAddr.
const (
	maxImmOffset   = 256
	maxFrameOffset = 4095
)

// emitter lowers one function into a machine body.  Every virtual register
// is homed in a stack slot addressed off the frame pointer; stack homes
// survive calls without any save/restore bookkeeping.
type emitter struct {
	fn   *cfg.Function
	body *lower.Body
	blk  *lower.MachBlock

	// regCount is the number of virtual registers in the function, computed
	// up front for frame layout.
	regCount int

	// frameSize is the frame adjustment below the frame record, 16-byte
	// aligned per the AAPCS64 stack constraint.
	frameSize int
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
		fn:   fn,
		body: &lower.Body{Name: fn.Name},
	}

	e.regCount = countRegs(fn)
	if 8*(len(fn.Locals)+e.regCount) > maxFrameOffset {
		return nil, &lower.LoweringError{
			Function:  fn.Name,
			Construct: fmt.Sprintf("frame with %d slots exceeds the addressable range", len(fn.Locals)+e.regCount),
			Triple:    tripleName,
		}
	}

	e.frameSize = 8 * (len(fn.Locals) + e.regCount)
	if e.frameSize%16 != 0 {
		e.frameSize += 8
	}
	e.body.FrameSize = e.frameSize

	for i, blk := range fn.Blocks {
		e.blk = &lower.MachBlock{Label: blk.Label}
		e.body.Blocks = append(e.body.Blocks, e.blk)

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

// countRegs returns one past the highest virtual register number used in the
// function.
func countRegs(fn *cfg.Function) int {
	max := 0
	note := func(v cfg.Value) {
		if v.Kind == cfg.KindReg && v.Reg+1 > max {
			max = v.Reg + 1
		}
	}

	for _, blk := range fn.Blocks {
		for i := range blk.Instrs {
			note(blk.Instrs[i].Dst)
			for _, op := range blk.Instrs[i].Operands {
				note(op)
			}
		}
		note(blk.Term.Cond)
		note(blk.Term.Val)
	}

	return max
}

// -----------------------------------------------------------------------------

// localOff returns the frame offset of a named local slot.
func (e *emitter) localOff(name string) int {
	return 8 * (e.fn.SlotIndex(name) + 1)
}

// regOff returns the frame offset of a virtual register's home slot.  Virtual
// register slots sit below the named locals.
func (e *emitter) regOff(reg int) int {
	return 8 * (len(e.fn.Locals) + reg + 1)
}

// frameLoad loads the slot at the given frame offset into dst.  Offsets past
// the ldr immediate range are materialized through scratchAddr.
func (e *emitter) frameLoad(dst string, off int) {
	if off <= maxImmOffset {
		e.blk.Append("ldr", dst, fmt.Sprintf("[x29, #%d]", -off))
		return
	}

	e.blk.Append("sub", scratchAddr, "x29", fmt.Sprintf("#%d", off))
	e.blk.Append("ldr", dst, "["+scratchAddr+"]")
}

// frameStore writes src into the slot at the given frame offset.
func (e *emitter) frameStore(src string, off int) {
	if off <= maxImmOffset {
		e.blk.Append("str", src, fmt.Sprintf("[x29, #%d]", -off))
		return
	}

	e.blk.Append("sub", scratchAddr, "x29", fmt.Sprintf("#%d", off))
	e.blk.Append("str", src, "["+scratchAddr+"]")
}

// loadOperand materializes an IR operand into the given scratch register.
func (e *emitter) loadOperand(v cfg.Value, scratch string) {
	switch v.Kind {
	case cfg.KindImm:
		e.blk.Append("mov", scratch, fmt.Sprintf("#%d", v.Imm))
	case cfg.KindReg:
		e.frameLoad(scratch, e.regOff(v.Reg))
	default:
		e.frameLoad(scratch, e.localOff(v.Name))
	}
}

// storeResult writes a physical register into the destination virtual
// register's home slot.
func (e *emitter) storeResult(dst cfg.Value, src string) {
	if dst.IsNone() {
		return
	}

	e.frameStore(src, e.regOff(dst.Reg))
}

// -----------------------------------------------------------------------------

// emitPrologue establishes the frame record and stores incoming parameters
// into their local slots.
func (e *emitter) emitPrologue() {
	e.blk.Append("stp", "x29", "x30", "[sp, #-16]!")
	e.blk.Append("mov", "x29", "sp")
	if e.frameSize > 0 {
		e.blk.Append("sub", "sp", "sp", fmt.Sprintf("#%d", e.frameSize))
	}

	for i, param := range e.fn.Params {
		e.frameStore(argRegs[i], e.localOff(param))
	}
}

// emitEpilogue tears the frame record down.  It is emitted in front of every
// ret.
func (e *emitter) emitEpilogue() {
	e.blk.Append("mov", "sp", "x29")
	e.blk.Append("ldp", "x29", "x30", "[sp]", "#16")
}

// binaryMnemonics maps two-operand IR arithmetic ops to their aarch64
// mnemonics.
var binaryMnemonics = map[int]string{
	cfg.OpAdd: "add",
	cfg.OpSub: "sub",
	cfg.OpMul: "mul",
	cfg.OpDiv: "sdiv",
}

// comparisonConds maps IR comparison ops to cset condition codes under a
// `cmp x, y` flags computation.
var comparisonConds = map[int]string{
	cfg.OpCmpEQ: "eq",
	cfg.OpCmpNE: "ne",
	cfg.OpCmpLT: "lt",
	cfg.OpCmpLE: "le",
	cfg.OpCmpGT: "gt",
	cfg.OpCmpGE: "ge",
}

// emitInstr selects machine instructions for one IR instruction.
func (e *emitter) emitInstr(instr *cfg.Instr) error {
	switch instr.OpCode {
	case cfg.OpConst:
		e.blk.Append("mov", scratchA, fmt.Sprintf("#%d", instr.Operands[0].Imm))
		e.storeResult(instr.Dst, scratchA)

	case cfg.OpAdd, cfg.OpSub, cfg.OpMul, cfg.OpDiv:
		e.loadOperand(instr.Operands[0], scratchA)
		e.loadOperand(instr.Operands[1], scratchB)
		e.blk.Append(binaryMnemonics[instr.OpCode], scratchA, scratchA, scratchB)
		e.storeResult(instr.Dst, scratchA)

	case cfg.OpRem:
		// rem = x - (x / y) * y, computed with sdiv + msub.
		e.loadOperand(instr.Operands[0], scratchA)
		e.loadOperand(instr.Operands[1], scratchB)
		e.blk.Append("sdiv", scratchC, scratchA, scratchB)
		e.blk.Append("msub", scratchA, scratchC, scratchB, scratchA)
		e.storeResult(instr.Dst, scratchA)

	case cfg.OpNeg:
		e.loadOperand(instr.Operands[0], scratchA)
		e.blk.Append("neg", scratchA, scratchA)
		e.storeResult(instr.Dst, scratchA)

	case cfg.OpNot:
		e.loadOperand(instr.Operands[0], scratchA)
		e.blk.Append("cmp", scratchA, "#0")
		e.blk.Append("cset", scratchA, "eq")
		e.storeResult(instr.Dst, scratchA)

	case cfg.OpCmpEQ, cfg.OpCmpNE, cfg.OpCmpLT, cfg.OpCmpLE, cfg.OpCmpGT, cfg.OpCmpGE:
		e.loadOperand(instr.Operands[0], scratchA)
		e.loadOperand(instr.Operands[1], scratchB)
		e.blk.Append("cmp", scratchA, scratchB)
		e.blk.Append("cset", scratchA, comparisonConds[instr.OpCode])
		e.storeResult(instr.Dst, scratchA)

	case cfg.OpLoad:
		e.frameLoad(scratchA, e.localOff(instr.Operands[0].Name))
		e.storeResult(instr.Dst, scratchA)

	case cfg.OpStore:
		e.loadOperand(instr.Operands[1], scratchA)
		e.frameStore(scratchA, e.localOff(instr.Operands[0].Name))

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

// emitCall lowers a call under AAPCS64.  Virtual register homes are stack
// slots, so loading arguments into x0-x7 in order never clobbers a pending
// source.
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
		e.loadOperand(arg, argRegs[i])
	}

	e.blk.Append("bl", callee)
	e.storeResult(instr.Dst, "x0")
	return nil
}

// emitTerminator lowers a block terminator, preserving the source edge
// structure.
func (e *emitter) emitTerminator(term *cfg.Terminator) error {
	switch term.Kind {
	case cfg.TermJump:
		e.blk.AppendBranch("b", term.To)

	case cfg.TermBranch:
		e.loadOperand(term.Cond, scratchA)
		e.blk.AppendBranch("cbnz", term.To, scratchA)
		e.blk.AppendBranch("b", term.Else)

	case cfg.TermRet:
		if !term.Val.IsNone() {
			e.loadOperand(term.Val, "x0")
		}
		e.emitEpilogue()
		e.blk.Append("ret")

	default:
		return &lower.LoweringError{
			Function:  e.fn.Name,
			Construct: "block without terminator",
			Triple:    tripleName,
		}
	}

	return nil
}
