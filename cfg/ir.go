// Package cfg defines the control-flow-graph intermediate representation
// consumed by the lowering backends.  A Namespace is an ordered collection of
// per-function control-flow graphs representing one compilation unit.  It is
// produced upstream (by the front-end and optimizer pipeline) and is treated
// as immutable by everything in this module.
package cfg

import "strconv"

// Namespace is the full set of control-flow graphs making up one compilation
// unit.  The order of Funcs is significant: it is the baseline emission order
// used by the lowering driver.
type Namespace struct {
	// Filename is the representative path of the source this namespace was
	// compiled from.  It is used for debug and metadata naming only.
	Filename string

	// Funcs is the ordered sequence of function control-flow graphs.
	Funcs []*Function

	// Entry is the identity of the designated entry function, if any.  Targets
	// whose emission order depends on the entry point consult this field.
	Entry string
}

// Lookup returns the function with the given identity, if it exists.
func (ns *Namespace) Lookup(name string) (*Function, bool) {
	for _, fn := range ns.Funcs {
		if fn.Name == name {
			return fn, true
		}
	}

	return nil, false
}

// Function is the control-flow graph of a single function: its identity, its
// parameters and local slots, and its basic blocks.  Blocks[0] is always the
// designated entry block.
type Function struct {
	// Name is the stable function identity within the namespace.
	Name string

	// Params are the parameter names in declaration order.  Each parameter is
	// also a local slot: parameter values are stored into their slots by the
	// emitted prologue.
	Params []string

	// Locals are the named local storage slots of the function, parameters
	// included (parameters always come first, in order).
	Locals []string

	// Blocks are the basic blocks of the function.
	Blocks []*Block
}

// Entry returns the designated entry block of the function.
func (fn *Function) Entry() *Block {
	return fn.Blocks[0]
}

// Block returns the block with the given label, if it exists.
func (fn *Function) Block(label string) (*Block, bool) {
	for _, b := range fn.Blocks {
		if b.Label == label {
			return b, true
		}
	}

	return nil, false
}

// SlotIndex returns the index of the named local slot, or -1 if the function
// has no such slot.
func (fn *Function) SlotIndex(name string) int {
	for i, local := range fn.Locals {
		if local == name {
			return i
		}
	}

	return -1
}

// Block is a basic block: an ordered sequence of IR instructions followed by
// exactly one terminator describing the block's successor edges.
type Block struct {
	// Label is the block's name, unique within its function.
	Label string

	// Instrs is the ordered sequence of non-terminating instructions.
	Instrs []Instr

	// Term is the block's terminator.
	Term Terminator
}

// -----------------------------------------------------------------------------

// Instr represents a single non-terminating IR instruction.  Most
// instructions compute a value into a destination virtual register; stores
// have no destination.
type Instr struct {
	// OpCode is the integer code designating the instruction.
	OpCode int

	// Dst is the destination virtual register, or a none value for
	// instructions that produce no result.
	Dst Value

	// Operands are the values the instruction operates upon.  Their meaning is
	// positional and depends on the op code: eg. for OpStore, Operands[0] is
	// the local slot and Operands[1] is the stored value; for OpCall,
	// Operands[0] is the callee and the rest are arguments.
	Operands []Value
}

// Enumeration of instruction op codes.
const (
	OpConst = iota // Dst = Operands[0] (an immediate)

	// Arithmetic
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpNeg

	// Logic
	OpNot

	// Comparisons; produce 1 or 0.
	OpCmpEQ
	OpCmpNE
	OpCmpLT
	OpCmpLE
	OpCmpGT
	OpCmpGE

	// Memory
	OpLoad  // Dst = value of local slot Operands[0]
	OpStore // local slot Operands[0] = Operands[1]

	// Control
	OpCall // Dst = Operands[0](Operands[1:]); Dst may be none
)

// opNames converts an op code into a displayable mnemonic.
var opNames = []string{
	"const",
	"add",
	"sub",
	"mul",
	"div",
	"rem",
	"neg",
	"not",
	"cmpeq",
	"cmpne",
	"cmplt",
	"cmple",
	"cmpgt",
	"cmpge",
	"load",
	"store",
	"call",
}

// OpName returns the displayable mnemonic for an op code.  Unknown op codes
// are rendered numerically so diagnostics never panic on malformed input.
func OpName(opCode int) string {
	if 0 <= opCode && opCode < len(opNames) {
		return opNames[opCode]
	}

	return "op?" + strconv.Itoa(opCode)
}

// IsComparison returns whether the op code is one of the comparison ops.
func IsComparison(opCode int) bool {
	return OpCmpEQ <= opCode && opCode <= OpCmpGE
}

// -----------------------------------------------------------------------------

// Terminator describes how control leaves a basic block.
type Terminator struct {
	// Kind is one of the enumerated terminator kinds.
	Kind int

	// Cond is the branch condition for TermBranch terminators.
	Cond Value

	// To is the target label: the unconditional target for TermJump, the
	// condition-true target for TermBranch.
	To string

	// Else is the condition-false target label for TermBranch.
	Else string

	// Val is the returned value for TermRet terminators.  A none value means
	// the function returns nothing.
	Val Value
}

// Enumeration of terminator kinds.
const (
	TermNone   = iota // No terminator set; only legal in graphs under construction.
	TermJump          // Unconditional transfer to To.
	TermBranch        // Transfer to To if Cond is nonzero, Else otherwise.
	TermRet           // Return Val (or nothing) to the caller.
)

// Successors returns the labels of the blocks this terminator may transfer
// control to.
func (t *Terminator) Successors() []string {
	switch t.Kind {
	case TermJump:
		return []string{t.To}
	case TermBranch:
		return []string{t.To, t.Else}
	default:
		return nil
	}
}

// -----------------------------------------------------------------------------

// Value is a single IR operand: a virtual register, an immediate, a named
// local slot, or a function reference.
type Value struct {
	// Kind is one of the enumerated value kinds.
	Kind int

	// Reg is the virtual register number for KindReg values.  Virtual
	// register numbers are function local.
	Reg int

	// Imm is the literal for KindImm values.
	Imm int64

	// Name is the slot name for KindLocal values and the callee identity for
	// KindFunc values.
	Name string
}

// Enumeration of value kinds.
const (
	KindNone = iota
	KindReg
	KindImm
	KindLocal
	KindFunc
)

// Reg constructs a virtual register value.
func Reg(n int) Value {
	return Value{Kind: KindReg, Reg: n}
}

// Imm constructs an immediate value.
func Imm(v int64) Value {
	return Value{Kind: KindImm, Imm: v}
}

// Local constructs a named local slot value.
func Local(name string) Value {
	return Value{Kind: KindLocal, Name: name}
}

// FuncRef constructs a function reference value.
func FuncRef(name string) Value {
	return Value{Kind: KindFunc, Name: name}
}

// None is the zero value: no operand.
func None() Value {
	return Value{Kind: KindNone}
}

// IsNone returns whether the value is the none value.
func (v Value) IsNone() bool {
	return v.Kind == KindNone
}
