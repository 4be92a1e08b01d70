package lower_test

import (
	"testing"

	"dcc/a64"
	"dcc/cfg"
	"dcc/classic"
	"dcc/llgen"
	"dcc/lower"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Force target registration regardless of which test runs first.
var _ = []lower.Target{classic.Target{}, a64.Target{}, llgen.Target{}}

// allTriples are the triples of the built-in targets.
var allTriples = []string{"x86_64", "aarch64", "llvm"}

// singleMain builds a namespace with a single function `main` containing one
// entry block with two instructions and no successors.
func singleMain() *cfg.Namespace {
	b := cfg.NewBuilder("test.dcir")
	b.NewFunction("main")
	x := b.Const(20)
	y := b.Bin(cfg.OpAdd, x, cfg.Imm(22))
	b.Ret(y)
	return b.Finish()
}

// helperAndMain builds a namespace with two functions where `main`'s entry
// block calls `helper`.
func helperAndMain() *cfg.Namespace {
	b := cfg.NewBuilder("test.dcir")

	b.NewFunction("helper", "x")
	v := b.Load("x")
	r := b.Bin(cfg.OpAdd, v, cfg.Imm(1))
	b.Ret(r)

	b.NewFunction("main")
	c := b.Const(41)
	res := b.Call("helper", c)
	b.Ret(res)

	return b.Finish()
}

// branching builds a namespace with a conditional branch and a join block.
func branching() *cfg.Namespace {
	b := cfg.NewBuilder("test.dcir")
	b.NewFunction("main", "n")
	n := b.Load("n")
	cond := b.Bin(cfg.OpCmpGT, n, cfg.Imm(0))
	b.Branch(cond, "pos", "neg")

	b.NewBlock("pos")
	one := b.Const(1)
	b.Store("n", one)
	b.Jump("done")

	b.NewBlock("neg")
	minus := b.Const(-1)
	b.Store("n", minus)
	b.Jump("done")

	b.NewBlock("done")
	out := b.Load("n")
	b.Ret(out)

	return b.Finish()
}

func TestBuildSingleFunction(t *testing.T) {
	ns := singleMain()
	require.NoError(t, cfg.Verify(ns))

	ctx := lower.NewContext()
	co, err := lower.Build(ctx, ns.Filename, ns, "x86_64")
	require.NoError(t, err)

	assert.Equal(t, "x86_64", co.Triple)
	assert.Equal(t, 1, co.Len())
	assert.Equal(t, []string{"main"}, co.Functions())

	body, ok := co.Function("main")
	require.True(t, ok)
	assert.Equal(t, "entry", body.Blocks[0].Label)
}

func TestBuildRecordsEveryFunction(t *testing.T) {
	ns := helperAndMain()
	require.NoError(t, cfg.Verify(ns))

	ctx := lower.NewContext()
	for _, triple := range allTriples {
		co, err := lower.Build(ctx, ns.Filename, ns, triple)
		require.NoError(t, err, "triple %s", triple)
		assert.Equal(t, len(ns.Funcs), co.Len(), "triple %s", triple)

		_, ok := co.Function("helper")
		assert.True(t, ok, "triple %s", triple)
		_, ok = co.Function("main")
		assert.True(t, ok, "triple %s", triple)
	}
}

func TestBuildEmitsCallToHelper(t *testing.T) {
	ns := helperAndMain()
	ctx := lower.NewContext()

	co, err := lower.Build(ctx, ns.Filename, ns, "x86_64")
	require.NoError(t, err)

	body, ok := co.Function("main")
	require.True(t, ok)

	found := false
	for _, blk := range body.Blocks {
		for _, mi := range blk.Instrs {
			if mi.Mnemonic == "callq" && len(mi.Args) == 1 && mi.Args[0] == "helper" {
				found = true
			}
		}
	}
	assert.True(t, found, "emitted main must call helper")
}

// mainFirst builds a namespace where the entry function comes first and calls
// a helper defined after it.
func mainFirst() *cfg.Namespace {
	b := cfg.NewBuilder("test.dcir")

	b.NewFunction("main")
	c := b.Const(41)
	res := b.Call("helper", c)
	b.Ret(res)

	b.NewFunction("helper", "x")
	v := b.Load("x")
	r := b.Bin(cfg.OpAdd, v, cfg.Imm(1))
	b.Ret(r)

	return b.Finish()
}

func TestClassicEmitsEntryLast(t *testing.T) {
	ns := mainFirst()
	require.NoError(t, cfg.Verify(ns))
	ctx := lower.NewContext()

	// The classic target declares the entry-last policy: `main` must be the
	// final recorded identity even though it comes first in the namespace.
	co, err := lower.Build(ctx, ns.Filename, ns, "x86_64")
	require.NoError(t, err)
	assert.Equal(t, []string{"helper", "main"}, co.Functions())

	// The aarch64 target keeps namespace order.
	co, err = lower.Build(ctx, ns.Filename, ns, "aarch64")
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "helper"}, co.Functions())
}

func TestBuildUnsupportedConstruct(t *testing.T) {
	ns := singleMain()

	// Splice in an instruction with no target mapping.
	ns.Funcs[0].Blocks[0].Instrs = append(ns.Funcs[0].Blocks[0].Instrs, cfg.Instr{
		OpCode: 99,
		Dst:    cfg.Reg(7),
	})

	ctx := lower.NewContext()
	for _, triple := range allTriples {
		co, err := lower.Build(ctx, ns.Filename, ns, triple)
		assert.Nil(t, co, "triple %s", triple)

		var lerr *lower.LoweringError
		require.ErrorAs(t, err, &lerr, "triple %s", triple)
		assert.Equal(t, "main", lerr.Function)
		assert.Equal(t, triple, lerr.Triple)
	}
}

func TestBuildUnknownTriple(t *testing.T) {
	ns := singleMain()
	ctx := lower.NewContext()

	co, err := lower.Build(ctx, ns.Filename, ns, "sparc")
	assert.Nil(t, co)

	var uerr *lower.UnsupportedArchitectureError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "sparc", uerr.Triple)
	assert.Contains(t, uerr.Known, "x86_64")

	_, err = lower.NewCodeObject(ctx, ns.Filename, ns, "sparc")
	require.ErrorAs(t, err, &uerr)
}

func TestDuplicateEmissionPanics(t *testing.T) {
	ns := singleMain()
	ctx := lower.NewContext()

	co, err := lower.NewCodeObject(ctx, ns.Filename, ns, "x86_64")
	require.NoError(t, err)

	co.RecordFunction("main", &lower.Body{Name: "main"})
	assert.PanicsWithError(t, "function `main` emitted twice into the same code object", func() {
		co.RecordFunction("main", &lower.Body{Name: "main"})
	})
}

// edgeStructure flattens a body into label -> branch target lists.
func edgeStructure(body *lower.Body) map[string][]string {
	edges := make(map[string][]string)
	for _, blk := range body.Blocks {
		edges[blk.Label] = blk.BranchTargets()
	}

	return edges
}

func TestBuildIdempotence(t *testing.T) {
	ns := branching()
	require.NoError(t, cfg.Verify(ns))
	ctx := lower.NewContext()

	for _, triple := range allTriples {
		first, err := lower.Build(ctx, ns.Filename, ns, triple)
		require.NoError(t, err)
		second, err := lower.Build(ctx, ns.Filename, ns, triple)
		require.NoError(t, err)

		assert.Equal(t, first.Functions(), second.Functions(), "triple %s", triple)

		for _, name := range first.Functions() {
			b1, _ := first.Function(name)
			b2, _ := second.Function(name)
			assert.Equal(t, edgeStructure(b1), edgeStructure(b2), "triple %s", triple)
			assert.Equal(t, b1.Render(), b2.Render(), "triple %s", triple)
		}
	}
}

func TestControlFlowPreservation(t *testing.T) {
	ns := branching()
	ctx := lower.NewContext()

	for _, triple := range allTriples {
		co, err := lower.Build(ctx, ns.Filename, ns, triple)
		require.NoError(t, err)

		body, ok := co.Function("main")
		require.True(t, ok)

		// Every CFG edge must appear as a control transfer out of the
		// corresponding machine block, with identical taken/not-taken order:
		// the condition-true target precedes the condition-false target.
		for _, blk := range ns.Funcs[0].Blocks {
			mblk, ok := body.Block(blk.Label)
			require.True(t, ok, "triple %s: block %s", triple, blk.Label)

			assert.Equal(t, blk.Term.Successors(), mblk.BranchTargets(),
				"triple %s: block %s", triple, blk.Label)
		}
	}
}

func TestInstrOrderPreservedWithinBlock(t *testing.T) {
	// r0 = const 20 must lower before the add that consumes it.
	ns := singleMain()
	ctx := lower.NewContext()

	co, err := lower.Build(ctx, ns.Filename, ns, "x86_64")
	require.NoError(t, err)

	body, _ := co.Function("main")
	entry := body.Blocks[0]

	constAt, addAt := -1, -1
	for i, mi := range entry.Instrs {
		switch {
		case mi.Mnemonic == "movq" && len(mi.Args) == 2 && mi.Args[0] == "$20" && constAt < 0:
			constAt = i
		case mi.Mnemonic == "addq":
			addAt = i
		}
	}

	require.GreaterOrEqual(t, constAt, 0)
	require.GreaterOrEqual(t, addAt, 0)
	assert.Less(t, constAt, addAt)
}

func TestParallelBuilds(t *testing.T) {
	// Independent builds share a context and a namespace but own their code
	// objects, so they may run concurrently.
	ns := helperAndMain()
	ctx := lower.NewContext()

	type result struct {
		co  *lower.CodeObject
		err error
	}

	results := make(chan result, len(allTriples))
	for _, triple := range allTriples {
		go func(triple string) {
			co, err := lower.Build(ctx, ns.Filename, ns, triple)
			results <- result{co, err}
		}(triple)
	}

	for range allTriples {
		r := <-results
		require.NoError(t, r.err)
		assert.Equal(t, 2, r.co.Len())
	}
}
