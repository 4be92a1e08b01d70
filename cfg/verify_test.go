package cfg_test

import (
	"testing"

	"dcc/cfg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wellFormed builds a namespace exercising every instruction shape.
func wellFormed() *cfg.Namespace {
	b := cfg.NewBuilder("test.dcir")

	b.NewFunction("compute", "a", "b")
	b.DeclareLocal("acc")
	x := b.Load("a")
	y := b.Load("b")
	sum := b.Bin(cfg.OpAdd, x, y)
	b.Store("acc", sum)
	cond := b.Bin(cfg.OpCmpNE, sum, cfg.Imm(0))
	b.Branch(cond, "nonzero", "zero")

	b.NewBlock("nonzero")
	v := b.Load("acc")
	n := b.Neg(v)
	b.Ret(n)

	b.NewBlock("zero")
	b.Ret(cfg.Imm(0))

	b.NewFunction("main")
	r := b.Call("compute", cfg.Imm(3), cfg.Imm(4))
	b.Ret(r)

	return b.Finish()
}

func TestVerifyWellFormed(t *testing.T) {
	ns := wellFormed()
	require.NoError(t, cfg.Verify(ns))

	assert.Equal(t, "main", ns.Entry)
	assert.Len(t, ns.Funcs, 2)
}

func TestVerifyDuplicateFunction(t *testing.T) {
	b := cfg.NewBuilder("test.dcir")
	b.NewFunction("f")
	b.RetVoid()
	b.NewFunction("f")
	b.RetVoid()
	ns := b.Finish()

	err := cfg.Verify(ns)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate function identity `f`")
}

func TestVerifyMissingTerminator(t *testing.T) {
	b := cfg.NewBuilder("test.dcir")
	b.NewFunction("f")
	b.Const(1)
	// The entry block is left unterminated.
	ns := b.Finish()

	err := cfg.Verify(ns)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no terminator")
}

func TestVerifyUndefinedLabel(t *testing.T) {
	b := cfg.NewBuilder("test.dcir")
	b.NewFunction("f")
	b.Jump("nowhere")
	ns := b.Finish()

	err := cfg.Verify(ns)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined label `nowhere`")
}

func TestVerifyUnreachableBlock(t *testing.T) {
	b := cfg.NewBuilder("test.dcir")
	b.NewFunction("f")
	b.RetVoid()
	b.NewBlock("orphan")
	b.RetVoid()
	ns := b.Finish()

	err := cfg.Verify(ns)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "block `orphan` is unreachable")
}

func TestVerifyUndeclaredLocal(t *testing.T) {
	b := cfg.NewBuilder("test.dcir")
	b.NewFunction("f")
	v := b.Load("ghost")
	b.Ret(v)
	ns := b.Finish()

	err := cfg.Verify(ns)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undeclared local `ghost`")
}

func TestVerifyMissingEntryFunction(t *testing.T) {
	b := cfg.NewBuilder("test.dcir")
	b.NewFunction("f")
	b.RetVoid()
	ns := b.Finish()
	ns.Entry = "start"

	err := cfg.Verify(ns)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry function `start` is not defined")
}

func TestVerifyUndefinedRegister(t *testing.T) {
	b := cfg.NewBuilder("test.dcir")
	b.NewFunction("f")
	b.RetVoid()
	ns := b.Finish()

	// r0 is used without any definition binding it.
	ns.Funcs[0].Blocks[0].Instrs = []cfg.Instr{
		{OpCode: cfg.OpAdd, Dst: cfg.Reg(1), Operands: []cfg.Value{cfg.Reg(0), cfg.Imm(1)}},
	}

	err := cfg.Verify(ns)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined virtual register `r0`")
}

func TestVerifyUndefinedRegisterInTerminator(t *testing.T) {
	b := cfg.NewBuilder("test.dcir")
	b.NewFunction("f")
	b.Ret(cfg.Reg(3))
	ns := b.Finish()

	err := cfg.Verify(ns)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined virtual register `r3`")
}

func TestVerifyMalformedOperands(t *testing.T) {
	b := cfg.NewBuilder("test.dcir")
	b.NewFunction("f")
	b.RetVoid()
	ns := b.Finish()

	// A binary op with one operand.
	ns.Funcs[0].Blocks[0].Instrs = []cfg.Instr{
		{OpCode: cfg.OpAdd, Dst: cfg.Reg(0), Operands: []cfg.Value{cfg.Imm(1)}},
	}

	err := cfg.Verify(ns)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "add requires two operands")
}

func TestTerminatorSuccessors(t *testing.T) {
	jump := cfg.Terminator{Kind: cfg.TermJump, To: "next"}
	assert.Equal(t, []string{"next"}, jump.Successors())

	branch := cfg.Terminator{Kind: cfg.TermBranch, Cond: cfg.Reg(0), To: "then", Else: "else"}
	assert.Equal(t, []string{"then", "else"}, branch.Successors())

	ret := cfg.Terminator{Kind: cfg.TermRet}
	assert.Empty(t, ret.Successors())
}
