// Package a64 implements the aarch64 backend.  Unlike the classic x86_64
// target it keeps every virtual register homed in a stack slot and mediates
// all operations through the scratch registers x9-x12; this trades code
// quality for a much simpler correctness argument on a load/store
// architecture.
package a64

import (
	"dcc/cfg"
	"dcc/lower"
)

// tripleName is the architecture triple this target lowers for.
const tripleName = "aarch64"

// Target is the aarch64 backend: a stateless strategy object.
type Target struct{}

func init() {
	lower.Register(Target{})
}

// Triple returns the target's architecture triple.
func (Target) Triple() string {
	return tripleName
}

// Order returns the emission order policy.  The aarch64 target has no
// entry-point ordering requirement and keeps the namespace order.
func (Target) Order() lower.OrderPolicy {
	return lower.OrderNamespace
}

// EmitFunction translates one control-flow graph into aarch64 machine code
// and records the result.  On failure nothing is recorded for the function.
func (Target) EmitFunction(co *lower.CodeObject, fn *cfg.Function) error {
	body, err := emitFunction(fn)
	if err != nil {
		return err
	}

	co.RecordFunction(fn.Name, body)
	return nil
}
