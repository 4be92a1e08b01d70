// Package classic implements the general-purpose x86_64 backend: the
// "classic" target.  It performs instruction selection per basic block,
// assigns virtual registers to callee-saved physical registers or stack
// slots under the System V calling convention, and records the resulting
// instruction streams into the code object.
package classic

import (
	"dcc/cfg"
	"dcc/lower"
)

// tripleName is the architecture triple the classic target lowers for.
const tripleName = "x86_64"

// Target is the classic backend.  It is a pure strategy object with no state
// of its own: all mutation happens through the code object it is handed.
type Target struct{}

func init() {
	lower.Register(Target{})
}

// Triple returns the target's architecture triple.
func (Target) Triple() string {
	return tripleName
}

// Order returns the emission order policy.  The classic target emits the
// designated entry function after all others, so that selecting the entry's
// call instructions can assume every other function's symbol has already
// been recorded in the code object.
func (Target) Order() lower.OrderPolicy {
	return lower.OrderEntryLast
}

// EmitFunction translates one control-flow graph into x86_64 machine code
// and records the result.  On failure nothing is recorded for the function.
func (Target) EmitFunction(co *lower.CodeObject, fn *cfg.Function) error {
	body, err := emitFunction(fn)
	if err != nil {
		return err
	}

	co.RecordFunction(fn.Name, body)
	return nil
}
