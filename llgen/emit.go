package llgen

import (
	"fmt"

	"dcc/cfg"
	"dcc/lower"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// comparisonPreds maps IR comparison ops to LLVM integer predicates.  All
// dcc integers are signed 64-bit values.
var comparisonPreds = map[int]enum.IPred{
	cfg.OpCmpEQ: enum.IPredEQ,
	cfg.OpCmpNE: enum.IPredNE,
	cfg.OpCmpLT: enum.IPredSLT,
	cfg.OpCmpLE: enum.IPredSLE,
	cfg.OpCmpGT: enum.IPredSGT,
	cfg.OpCmpGE: enum.IPredSGE,
}

// emitter lowers one function into an LLVM function inside a throwaway
// module, then converts the result into a machine body whose blocks and
// branch targets mirror the source graph.
type emitter struct {
	ns *cfg.Namespace
	fn *cfg.Function

	mod    *ir.Module
	llFunc *ir.Func

	// llBlocks maps source block labels to their LLVM blocks.
	llBlocks map[string]*ir.Block

	// regs maps virtual register numbers to their LLVM values.
	regs map[int]value.Value

	// locals maps local slot names to their entry-block allocas.
	locals map[string]value.Value

	// callees caches function declarations added to the module.
	callees map[string]*ir.Func

	// The LLVM block and machine block currently being appended to.
	llBlk *ir.Block
	mBlk  *lower.MachBlock

	body *lower.Body
}

// emitFunction lowers fn and returns its machine body.
func emitFunction(ns *cfg.Namespace, fn *cfg.Function) (*lower.Body, error) {
	// Register bindings are looked up by definition, so a graph that slipped
	// past verification must fail here rather than dereference a nil value.
	if reg, ok := undefinedReg(fn); ok {
		return nil, &lower.LoweringError{
			Function:  fn.Name,
			Construct: fmt.Sprintf("use of undefined virtual register r%d", reg),
			Triple:    tripleName,
		}
	}

	e := &emitter{
		ns:       ns,
		fn:       fn,
		mod:      ir.NewModule(),
		llBlocks: make(map[string]*ir.Block),
		regs:     make(map[int]value.Value),
		locals:   make(map[string]value.Value),
		callees:  make(map[string]*ir.Func),
		body:     &lower.Body{Name: fn.Name},
	}

	params := make([]*ir.Param, len(fn.Params))
	for i, name := range fn.Params {
		params[i] = ir.NewParam(name, types.I64)
	}
	e.llFunc = e.mod.NewFunc(fn.Name, types.I64, params...)

	// Create every LLVM block up front so branches can reference them.
	for _, blk := range fn.Blocks {
		e.llBlocks[blk.Label] = e.llFunc.NewBlock(blk.Label)
	}

	// Allocate the local slots in the entry block and spill the incoming
	// parameters into theirs.
	entry := e.llBlocks[fn.Blocks[0].Label]
	for _, local := range fn.Locals {
		e.locals[local] = entry.NewAlloca(types.I64)
	}
	for i, name := range fn.Params {
		entry.NewStore(e.llFunc.Params[i], e.locals[name])
	}

	for _, blk := range fn.Blocks {
		e.llBlk = e.llBlocks[blk.Label]
		e.mBlk = &lower.MachBlock{Label: blk.Label}
		e.body.Blocks = append(e.body.Blocks, e.mBlk)

		for i := range blk.Instrs {
			if err := e.emitInstr(&blk.Instrs[i]); err != nil {
				return nil, err
			}
		}

		if err := e.emitTerminator(&blk.Term); err != nil {
			return nil, err
		}
	}

	return e.body, nil
}

// undefinedReg returns a virtual register that is used without any
// definition binding it, if one exists.
func undefinedReg(fn *cfg.Function) (int, bool) {
	defs := make(map[int]struct{})
	for _, blk := range fn.Blocks {
		for i := range blk.Instrs {
			if blk.Instrs[i].Dst.Kind == cfg.KindReg {
				defs[blk.Instrs[i].Dst.Reg] = struct{}{}
			}
		}
	}

	unbound := func(v cfg.Value) bool {
		if v.Kind != cfg.KindReg {
			return false
		}

		_, ok := defs[v.Reg]
		return !ok
	}

	for _, blk := range fn.Blocks {
		for i := range blk.Instrs {
			for _, op := range blk.Instrs[i].Operands {
				if unbound(op) {
					return op.Reg, true
				}
			}
		}

		if unbound(blk.Term.Cond) {
			return blk.Term.Cond.Reg, true
		}
		if unbound(blk.Term.Val) {
			return blk.Term.Val.Reg, true
		}
	}

	return 0, false
}

// -----------------------------------------------------------------------------

// operand converts an IR operand into its LLVM value.
func (e *emitter) operand(v cfg.Value) value.Value {
	switch v.Kind {
	case cfg.KindImm:
		return constant.NewInt(types.I64, v.Imm)
	case cfg.KindReg:
		return e.regs[v.Reg]
	default:
		// Local operands only appear in loads and stores, which address the
		// alloca directly; this path is unreachable for well-formed graphs.
		return e.locals[v.Name]
	}
}

// define binds the destination register of an instruction to its LLVM value
// and mirrors the instruction into the machine body.
func (e *emitter) define(dst cfg.Value, v value.Value, mnemonic string) {
	if !dst.IsNone() {
		e.regs[dst.Reg] = v
	}

	e.mBlk.Append(mnemonic, v.(interface{ LLString() string }).LLString())
}

// calleeFunc returns (declaring if necessary) the LLVM function for a callee
// identity.  Callees defined in the namespace get their true arity; unknown
// callees are declared extern with the call site's arity.
func (e *emitter) calleeFunc(name string, arity int) *ir.Func {
	if f, ok := e.callees[name]; ok {
		return f
	}

	if target, ok := e.ns.Lookup(name); ok {
		arity = len(target.Params)
	}

	params := make([]*ir.Param, arity)
	for i := range params {
		params[i] = ir.NewParam(fmt.Sprintf("p%d", i), types.I64)
	}

	f := e.mod.NewFunc(name, types.I64, params...)
	e.callees[name] = f
	return f
}

// -----------------------------------------------------------------------------

// emitInstr lowers one IR instruction into LLVM IR.
func (e *emitter) emitInstr(instr *cfg.Instr) error {
	switch instr.OpCode {
	case cfg.OpConst:
		// Constants need no instruction: the literal becomes the register's
		// value directly.
		if !instr.Dst.IsNone() {
			e.regs[instr.Dst.Reg] = constant.NewInt(types.I64, instr.Operands[0].Imm)
		}

	case cfg.OpAdd:
		e.define(instr.Dst, e.llBlk.NewAdd(e.operand(instr.Operands[0]), e.operand(instr.Operands[1])), "add")
	case cfg.OpSub:
		e.define(instr.Dst, e.llBlk.NewSub(e.operand(instr.Operands[0]), e.operand(instr.Operands[1])), "sub")
	case cfg.OpMul:
		e.define(instr.Dst, e.llBlk.NewMul(e.operand(instr.Operands[0]), e.operand(instr.Operands[1])), "mul")
	case cfg.OpDiv:
		e.define(instr.Dst, e.llBlk.NewSDiv(e.operand(instr.Operands[0]), e.operand(instr.Operands[1])), "sdiv")
	case cfg.OpRem:
		e.define(instr.Dst, e.llBlk.NewSRem(e.operand(instr.Operands[0]), e.operand(instr.Operands[1])), "srem")

	case cfg.OpNeg:
		zero := constant.NewInt(types.I64, 0)
		e.define(instr.Dst, e.llBlk.NewSub(zero, e.operand(instr.Operands[0])), "sub")

	case cfg.OpNot:
		zero := constant.NewInt(types.I64, 0)
		isZero := e.llBlk.NewICmp(enum.IPredEQ, e.operand(instr.Operands[0]), zero)
		e.mBlk.Append("icmp", isZero.LLString())
		e.define(instr.Dst, e.llBlk.NewZExt(isZero, types.I64), "zext")

	case cfg.OpCmpEQ, cfg.OpCmpNE, cfg.OpCmpLT, cfg.OpCmpLE, cfg.OpCmpGT, cfg.OpCmpGE:
		pred := comparisonPreds[instr.OpCode]
		cmp := e.llBlk.NewICmp(pred, e.operand(instr.Operands[0]), e.operand(instr.Operands[1]))
		e.mBlk.Append("icmp", cmp.LLString())
		e.define(instr.Dst, e.llBlk.NewZExt(cmp, types.I64), "zext")

	case cfg.OpLoad:
		e.define(instr.Dst, e.llBlk.NewLoad(types.I64, e.locals[instr.Operands[0].Name]), "load")

	case cfg.OpStore:
		st := e.llBlk.NewStore(e.operand(instr.Operands[1]), e.locals[instr.Operands[0].Name])
		e.mBlk.Append("store", st.LLString())

	case cfg.OpCall:
		callee := e.calleeFunc(instr.Operands[0].Name, len(instr.Operands)-1)
		args := make([]value.Value, len(instr.Operands)-1)
		for i, arg := range instr.Operands[1:] {
			args[i] = e.operand(arg)
		}
		e.define(instr.Dst, e.llBlk.NewCall(callee, args...), "call")

	default:
		return &lower.LoweringError{
			Function:  e.fn.Name,
			Construct: cfg.OpName(instr.OpCode),
			Triple:    tripleName,
		}
	}

	return nil
}

// emitTerminator lowers a block terminator.  The machine body records one
// control-transfer entry per CFG edge so edge structure stays checkable.
func (e *emitter) emitTerminator(term *cfg.Terminator) error {
	switch term.Kind {
	case cfg.TermJump:
		e.llBlk.NewBr(e.llBlocks[term.To])
		e.mBlk.AppendBranch("br", term.To)

	case cfg.TermBranch:
		zero := constant.NewInt(types.I64, 0)
		cond := e.llBlk.NewICmp(enum.IPredNE, e.operand(term.Cond), zero)
		e.llBlk.NewCondBr(cond, e.llBlocks[term.To], e.llBlocks[term.Else])
		e.mBlk.Append("icmp", cond.LLString())
		e.mBlk.AppendBranch("br.if", term.To, cond.Ident())
		e.mBlk.AppendBranch("br.else", term.Else)

	case cfg.TermRet:
		if term.Val.IsNone() {
			e.llBlk.NewRet(constant.NewInt(types.I64, 0))
			e.mBlk.Append("ret", "i64 0")
		} else {
			ret := e.operand(term.Val)
			e.llBlk.NewRet(ret)
			e.mBlk.Append("ret", "i64 "+ret.Ident())
		}

	default:
		return &lower.LoweringError{
			Function:  e.fn.Name,
			Construct: "block without terminator",
			Triple:    tripleName,
		}
	}

	return nil
}
