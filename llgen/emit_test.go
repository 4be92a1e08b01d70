package llgen

import (
	"testing"

	"dcc/cfg"
	"dcc/lower"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitMirrorsBlockStructure(t *testing.T) {
	b := cfg.NewBuilder("test.dcir")
	b.NewFunction("f", "x")
	v := b.Load("x")
	b.Branch(v, "yes", "no")
	b.NewBlock("yes")
	b.Ret(cfg.Imm(1))
	b.NewBlock("no")
	b.Ret(cfg.Imm(0))
	ns := b.Finish()

	body, err := emitFunction(ns, ns.Funcs[0])
	require.NoError(t, err)

	require.Len(t, body.Blocks, 3)
	assert.Equal(t, "entry", body.Blocks[0].Label)
	assert.Equal(t, "yes", body.Blocks[1].Label)
	assert.Equal(t, "no", body.Blocks[2].Label)

	// The conditional edges keep the source taken/not-taken order.
	assert.Equal(t, []string{"yes", "no"}, body.Blocks[0].BranchTargets())
}

func TestEmitArithmetic(t *testing.T) {
	b := cfg.NewBuilder("test.dcir")
	b.NewFunction("f", "x", "y")
	x := b.Load("x")
	y := b.Load("y")
	s := b.Bin(cfg.OpAdd, x, y)
	d := b.Bin(cfg.OpDiv, s, y)
	b.Ret(d)
	ns := b.Finish()

	body, err := emitFunction(ns, ns.Funcs[0])
	require.NoError(t, err)

	rendered := body.Render()
	assert.Contains(t, rendered, "add")
	assert.Contains(t, rendered, "sdiv")
	assert.Contains(t, rendered, "i64")
}

func TestEmitComparisonZeroExtends(t *testing.T) {
	b := cfg.NewBuilder("test.dcir")
	b.NewFunction("f", "x")
	v := b.Load("x")
	c := b.Bin(cfg.OpCmpLT, v, cfg.Imm(10))
	b.Ret(c)
	ns := b.Finish()

	body, err := emitFunction(ns, ns.Funcs[0])
	require.NoError(t, err)

	rendered := body.Render()
	assert.Contains(t, rendered, "icmp slt")
	assert.Contains(t, rendered, "zext")
}

func TestEmitCallUsesDeclaredArity(t *testing.T) {
	b := cfg.NewBuilder("test.dcir")

	b.NewFunction("helper", "a", "b")
	x := b.Load("a")
	b.Ret(x)

	b.NewFunction("main")
	r := b.Call("helper", cfg.Imm(1), cfg.Imm(2))
	b.Ret(r)

	ns := b.Finish()

	body, err := emitFunction(ns, ns.Funcs[1])
	require.NoError(t, err)

	rendered := body.Render()
	assert.Contains(t, rendered, "call")
	assert.Contains(t, rendered, "@helper")
}

func TestEmitUnsupportedOp(t *testing.T) {
	b := cfg.NewBuilder("test.dcir")
	b.NewFunction("f")
	b.RetVoid()
	ns := b.Finish()

	ns.Funcs[0].Blocks[0].Instrs = []cfg.Instr{{OpCode: 99, Dst: cfg.Reg(0)}}

	_, err := emitFunction(ns, ns.Funcs[0])

	var lerr *lower.LoweringError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "f", lerr.Function)
	assert.Equal(t, tripleName, lerr.Triple)
}

func TestEmitUndefinedRegister(t *testing.T) {
	b := cfg.NewBuilder("test.dcir")
	b.NewFunction("f")
	b.RetVoid()
	ns := b.Finish()

	ns.Funcs[0].Blocks[0].Instrs = []cfg.Instr{
		{OpCode: cfg.OpAdd, Dst: cfg.Reg(1), Operands: []cfg.Value{cfg.Reg(0), cfg.Imm(1)}},
	}

	_, err := emitFunction(ns, ns.Funcs[0])

	var lerr *lower.LoweringError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "f", lerr.Function)
	assert.Contains(t, lerr.Construct, "undefined virtual register r0")
}

func TestEmitConstWithoutDestination(t *testing.T) {
	b := cfg.NewBuilder("test.dcir")
	b.NewFunction("f")
	r := b.Const(7)
	b.Ret(r)
	ns := b.Finish()

	// A destination-less const must not disturb any register binding.
	ns.Funcs[0].Blocks[0].Instrs = append(ns.Funcs[0].Blocks[0].Instrs, cfg.Instr{
		OpCode:   cfg.OpConst,
		Dst:      cfg.None(),
		Operands: []cfg.Value{cfg.Imm(9)},
	})

	body, err := emitFunction(ns, ns.Funcs[0])
	require.NoError(t, err)
	assert.Contains(t, body.Render(), "ret i64 7")
}

func TestEmitVoidReturn(t *testing.T) {
	b := cfg.NewBuilder("test.dcir")
	b.NewFunction("f")
	b.RetVoid()
	ns := b.Finish()

	body, err := emitFunction(ns, ns.Funcs[0])
	require.NoError(t, err)

	entry := body.Blocks[0]
	require.NotEmpty(t, entry.Instrs)
	last := entry.Instrs[len(entry.Instrs)-1]
	assert.Equal(t, "ret", last.Mnemonic)
	assert.Equal(t, []string{"i64 0"}, last.Args)
}
