package cfg

import "fmt"

// Verify checks the namespace against the well-formedness invariants the
// lowering backends rely on: every function has a designated entry block,
// every block is reachable from the entry block, every block carries exactly
// one terminator, all referenced labels, local slots, and virtual registers
// exist, and function identities are unique.  The front-end must guarantee these properties; this
// check gives callers arriving from a file a guarded boundary.
func Verify(ns *Namespace) error {
	seen := make(map[string]struct{})
	for _, fn := range ns.Funcs {
		if _, ok := seen[fn.Name]; ok {
			return fmt.Errorf("duplicate function identity `%s`", fn.Name)
		}
		seen[fn.Name] = struct{}{}

		if err := verifyFunction(fn); err != nil {
			return fmt.Errorf("in function `%s`: %s", fn.Name, err)
		}
	}

	if ns.Entry != "" {
		if _, ok := ns.Lookup(ns.Entry); !ok {
			return fmt.Errorf("entry function `%s` is not defined", ns.Entry)
		}
	}

	return nil
}

// verifyFunction checks the invariants of a single control-flow graph.
func verifyFunction(fn *Function) error {
	if len(fn.Blocks) == 0 {
		return fmt.Errorf("no entry block")
	}

	labels := make(map[string]*Block)
	for _, blk := range fn.Blocks {
		if _, ok := labels[blk.Label]; ok {
			return fmt.Errorf("duplicate block label `%s`", blk.Label)
		}
		labels[blk.Label] = blk
	}

	for _, blk := range fn.Blocks {
		for i := range blk.Instrs {
			if err := verifyInstr(fn, &blk.Instrs[i]); err != nil {
				return fmt.Errorf("in block `%s`: %s", blk.Label, err)
			}
		}

		if blk.Term.Kind == TermNone {
			return fmt.Errorf("block `%s` has no terminator", blk.Label)
		}

		for _, succ := range blk.Term.Successors() {
			if _, ok := labels[succ]; !ok {
				return fmt.Errorf("block `%s` targets undefined label `%s`", blk.Label, succ)
			}
		}
	}

	// Every virtual register use must be bound by a definition somewhere in
	// the function; the backends index register homes by definition.
	defs := make(map[int]struct{})
	for _, blk := range fn.Blocks {
		for i := range blk.Instrs {
			if blk.Instrs[i].Dst.Kind == KindReg {
				defs[blk.Instrs[i].Dst.Reg] = struct{}{}
			}
		}
	}

	checkUse := func(v Value) error {
		if v.Kind == KindReg {
			if _, ok := defs[v.Reg]; !ok {
				return fmt.Errorf("use of undefined virtual register `r%d`", v.Reg)
			}
		}

		return nil
	}

	for _, blk := range fn.Blocks {
		for i := range blk.Instrs {
			for _, op := range blk.Instrs[i].Operands {
				if err := checkUse(op); err != nil {
					return fmt.Errorf("in block `%s`: %s", blk.Label, err)
				}
			}
		}

		if err := checkUse(blk.Term.Cond); err != nil {
			return fmt.Errorf("in block `%s`: %s", blk.Label, err)
		}
		if err := checkUse(blk.Term.Val); err != nil {
			return fmt.Errorf("in block `%s`: %s", blk.Label, err)
		}
	}

	// Every block must be reachable from the entry block.
	reached := make(map[string]struct{})
	walkSuccessors(fn, fn.Entry(), reached)
	for _, blk := range fn.Blocks {
		if _, ok := reached[blk.Label]; !ok {
			return fmt.Errorf("block `%s` is unreachable from the entry block", blk.Label)
		}
	}

	return nil
}

// walkSuccessors marks every block reachable from blk.
func walkSuccessors(fn *Function, blk *Block, reached map[string]struct{}) {
	if _, ok := reached[blk.Label]; ok {
		return
	}
	reached[blk.Label] = struct{}{}

	for _, succ := range blk.Term.Successors() {
		if next, ok := fn.Block(succ); ok {
			walkSuccessors(fn, next, reached)
		}
	}
}

// verifyInstr checks the operand shape of one instruction.
func verifyInstr(fn *Function, instr *Instr) error {
	// Local slot references must name declared slots.
	for _, op := range instr.Operands {
		if op.Kind == KindLocal && fn.SlotIndex(op.Name) < 0 {
			return fmt.Errorf("%s references undeclared local `%s`", OpName(instr.OpCode), op.Name)
		}
	}

	switch instr.OpCode {
	case OpConst:
		if len(instr.Operands) != 1 || instr.Operands[0].Kind != KindImm {
			return fmt.Errorf("const requires a single immediate operand")
		}
	case OpAdd, OpSub, OpMul, OpDiv, OpRem,
		OpCmpEQ, OpCmpNE, OpCmpLT, OpCmpLE, OpCmpGT, OpCmpGE:
		if len(instr.Operands) != 2 {
			return fmt.Errorf("%s requires two operands", OpName(instr.OpCode))
		}
	case OpNeg, OpNot:
		if len(instr.Operands) != 1 {
			return fmt.Errorf("%s requires one operand", OpName(instr.OpCode))
		}
	case OpLoad:
		if len(instr.Operands) != 1 || instr.Operands[0].Kind != KindLocal {
			return fmt.Errorf("load requires a single local operand")
		}
	case OpStore:
		if len(instr.Operands) != 2 || instr.Operands[0].Kind != KindLocal {
			return fmt.Errorf("store requires a local operand and a value")
		}
	case OpCall:
		if len(instr.Operands) < 1 || instr.Operands[0].Kind != KindFunc {
			return fmt.Errorf("call requires a function reference operand")
		}
	}

	return nil
}
