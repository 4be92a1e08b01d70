package cfg

import "dcc/common"

// Builder provides a convenient way for upstream code (and tests) to
// construct well-formed namespaces without assembling the IR structures by
// hand.  The builder tracks the current function and block: instruction
// methods append to the current block and return the virtual register holding
// the result.
type Builder struct {
	ns *Namespace

	// The function currently under construction.
	fn *Function

	// The block instructions are currently appended to.
	blk *Block

	// The next free virtual register number in the current function.
	nextReg int
}

// NewBuilder creates a builder for a new namespace with the given
// representative filename.
func NewBuilder(filename string) *Builder {
	return &Builder{ns: &Namespace{Filename: filename}}
}

// NewFunction begins a new function with the given identity and parameters
// and opens its entry block.  Any previous function is finished first.
func (b *Builder) NewFunction(name string, params ...string) {
	b.fn = &Function{
		Name:   name,
		Params: params,
		Locals: append([]string{}, params...),
	}
	b.nextReg = 0
	b.ns.Funcs = append(b.ns.Funcs, b.fn)

	b.NewBlock("entry")
}

// NewBlock opens a new basic block with the given label and makes it the
// current block.
func (b *Builder) NewBlock(label string) {
	b.blk = &Block{Label: label}
	b.fn.Blocks = append(b.fn.Blocks, b.blk)
}

// SetBlock repositions the builder over an existing block of the current
// function.
func (b *Builder) SetBlock(label string) bool {
	blk, ok := b.fn.Block(label)
	if ok {
		b.blk = blk
	}

	return ok
}

// DeclareLocal adds a named local slot to the current function.
func (b *Builder) DeclareLocal(name string) {
	b.fn.Locals = append(b.fn.Locals, name)
}

// -----------------------------------------------------------------------------

// freshReg returns the next free virtual register of the current function.
func (b *Builder) freshReg() Value {
	r := Reg(b.nextReg)
	b.nextReg++
	return r
}

// emit appends an instruction to the current block.
func (b *Builder) emit(opCode int, dst Value, operands ...Value) {
	b.blk.Instrs = append(b.blk.Instrs, Instr{
		OpCode:   opCode,
		Dst:      dst,
		Operands: operands,
	})
}

// Const emits a constant materialization and returns its register.
func (b *Builder) Const(v int64) Value {
	dst := b.freshReg()
	b.emit(OpConst, dst, Imm(v))
	return dst
}

// Bin emits a binary arithmetic, logic, or comparison instruction.
func (b *Builder) Bin(opCode int, x, y Value) Value {
	dst := b.freshReg()
	b.emit(opCode, dst, x, y)
	return dst
}

// Neg emits a negation.
func (b *Builder) Neg(x Value) Value {
	dst := b.freshReg()
	b.emit(OpNeg, dst, x)
	return dst
}

// Not emits a logical not.
func (b *Builder) Not(x Value) Value {
	dst := b.freshReg()
	b.emit(OpNot, dst, x)
	return dst
}

// Load emits a load from a named local slot.
func (b *Builder) Load(local string) Value {
	dst := b.freshReg()
	b.emit(OpLoad, dst, Local(local))
	return dst
}

// Store emits a store of a value into a named local slot.
func (b *Builder) Store(local string, v Value) {
	b.emit(OpStore, None(), Local(local), v)
}

// Call emits a call to the named function and returns the register holding
// the call result.
func (b *Builder) Call(callee string, args ...Value) Value {
	dst := b.freshReg()
	operands := append([]Value{FuncRef(callee)}, args...)
	b.emit(OpCall, dst, operands...)
	return dst
}

// -----------------------------------------------------------------------------

// Jump terminates the current block with an unconditional jump.
func (b *Builder) Jump(to string) {
	b.blk.Term = Terminator{Kind: TermJump, To: to}
}

// Branch terminates the current block with a conditional branch.
func (b *Builder) Branch(cond Value, to, els string) {
	b.blk.Term = Terminator{Kind: TermBranch, Cond: cond, To: to, Else: els}
}

// Ret terminates the current block with a value-returning return.
func (b *Builder) Ret(v Value) {
	b.blk.Term = Terminator{Kind: TermRet, Val: v}
}

// RetVoid terminates the current block with a valueless return.
func (b *Builder) RetVoid() {
	b.blk.Term = Terminator{Kind: TermRet, Val: None()}
}

// -----------------------------------------------------------------------------

// Finish returns the completed namespace.  If a function with the default
// entry identity exists, it is recorded as the namespace's entry point.
func (b *Builder) Finish() *Namespace {
	if b.ns.Entry == "" {
		if _, ok := b.ns.Lookup(common.DefaultEntryName); ok {
			b.ns.Entry = common.DefaultEntryName
		}
	}

	return b.ns
}
