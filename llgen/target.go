// Package llgen implements a portable backend that lowers control-flow
// graphs into LLVM IR using llir/llvm instead of selecting native
// instructions.  The recorded machine bodies hold the rendered IR with the
// source block and edge structure preserved, so the downstream packager can
// hand the listing to an external LLVM toolchain.
package llgen

import (
	"dcc/cfg"
	"dcc/lower"
)

// tripleName is the triple this target registers under.
const tripleName = "llvm"

// Target is the LLVM IR backend: a stateless strategy object.
type Target struct{}

func init() {
	lower.Register(Target{})
}

// Triple returns the target's architecture triple.
func (Target) Triple() string {
	return tripleName
}

// Order returns the emission order policy.  LLVM IR has no forward-reference
// restrictions, so the namespace order is kept.
func (Target) Order() lower.OrderPolicy {
	return lower.OrderNamespace
}

// EmitFunction translates one control-flow graph into LLVM IR and records
// the rendered result.  On failure nothing is recorded for the function.
func (Target) EmitFunction(co *lower.CodeObject, fn *cfg.Function) error {
	body, err := emitFunction(co.Namespace(), fn)
	if err != nil {
		return err
	}

	co.RecordFunction(fn.Name, body)
	return nil
}
