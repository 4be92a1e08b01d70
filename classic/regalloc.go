package classic

import (
	"fmt"

	"dcc/cfg"
)

// allocPool is the set of callee-saved registers handed out as virtual
// register homes, in allocation order.  Callee-saved registers survive calls,
// so a home assigned here is valid across the whole function without any
// spill-around-call logic; registers used by a function are saved in its
// prologue and restored in its epilogue.
var allocPool = []string{"%rbx", "%r12", "%r13", "%r14", "%r15"}

// home describes where a virtual register lives for the duration of a
// function: either a physical register or a stack slot.
type home struct {
	// reg is the physical register name, or "" if the value is spilled.
	reg string

	// slot is the spill slot index when reg is "".
	slot int
}

// frame is the computed stack layout and register assignment for one
// function.  Homes are assigned once and held for the whole function: no
// interval splitting or reuse is performed, which keeps the assignment
// trivially correct across loops and branches.
type frame struct {
	fn *cfg.Function

	// homes maps virtual register numbers to their assigned homes.
	homes map[int]home

	// saved lists the callee-saved registers this function uses, in
	// prologue push order.
	saved []string

	// spillCount is the number of spill slots in use.
	spillCount int

	// size is the total frame adjustment in bytes (locals + spills +
	// alignment padding), excluding the saved register pushes.
	size int
}

// newFrame assigns every virtual register of the function a home and lays
// out the stack frame.  Homes are handed out from the callee-saved pool in
// order of first definition; once the pool is exhausted, further virtual
// registers are spilled to stack slots.
func newFrame(fn *cfg.Function) *frame {
	f := &frame{fn: fn, homes: make(map[int]home)}

	assign := func(v cfg.Value) {
		if v.Kind != cfg.KindReg {
			return
		}
		if _, ok := f.homes[v.Reg]; ok {
			return
		}

		if len(f.saved) < len(allocPool) {
			reg := allocPool[len(f.saved)]
			f.saved = append(f.saved, reg)
			f.homes[v.Reg] = home{reg: reg}
			return
		}

		f.homes[v.Reg] = home{slot: f.spillCount}
		f.spillCount++
	}

	for _, blk := range fn.Blocks {
		for i := range blk.Instrs {
			assign(blk.Instrs[i].Dst)
			for _, op := range blk.Instrs[i].Operands {
				assign(op)
			}
		}
		assign(blk.Term.Cond)
		assign(blk.Term.Val)
	}

	// Frame: named locals first, then spill slots, padded so that the stack
	// stays 16-byte aligned at call sites (return address + rbp push +
	// callee-saved pushes + frame).
	raw := 8 * (len(fn.Locals) + f.spillCount)
	for (raw+8*len(f.saved))%16 != 0 {
		raw += 8
	}
	f.size = raw

	return f
}

// localAddr returns the rbp-relative operand for the named local slot.
func (f *frame) localAddr(name string) string {
	idx := f.fn.SlotIndex(name)
	off := -(8*len(f.saved) + 8*(idx+1))
	return fmt.Sprintf("%d(%%rbp)", off)
}

// homeAddr returns the rbp-relative operand for a spill slot.
func (f *frame) homeAddr(slot int) string {
	off := -(8*len(f.saved) + 8*(len(f.fn.Locals)+slot+1))
	return fmt.Sprintf("%d(%%rbp)", off)
}

// homeOf returns the operand text of a virtual register's home.
func (f *frame) homeOf(reg int) string {
	h := f.homes[reg]
	if h.reg != "" {
		return h.reg
	}

	return f.homeAddr(h.slot)
}

// inRegister returns whether the virtual register's home is a physical
// register.
func (f *frame) inRegister(reg int) bool {
	return f.homes[reg].reg != ""
}
