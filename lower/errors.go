package lower

import (
	"fmt"
	"strings"
)

// UnsupportedArchitectureError indicates that a build was requested for an
// architecture triple with no matching registered target.  No code object is
// constructed when this error is returned.
type UnsupportedArchitectureError struct {
	// Triple is the unrecognized architecture triple.
	Triple string

	// Known lists the triples the emission context does recognize.
	Known []string
}

func (e *UnsupportedArchitectureError) Error() string {
	return fmt.Sprintf(
		"unsupported architecture `%s` (supported: %s)",
		e.Triple,
		strings.Join(e.Known, ", "),
	)
}

// LoweringError indicates that instruction selection or register and stack
// assignment could not lower some construct of a function.  It is fatal to
// the build producing it: the whole build aborts and no partial code object is
// exposed to the caller.
type LoweringError struct {
	// Function is the identity of the function that failed to lower.
	Function string

	// Construct describes the IR construct that has no target mapping.
	Construct string

	// Triple is the architecture triple of the failing target.
	Triple string
}

func (e *LoweringError) Error() string {
	return fmt.Sprintf(
		"cannot lower function `%s` for `%s`: unsupported construct %s",
		e.Function,
		e.Triple,
		e.Construct,
	)
}

// DuplicateEmissionError indicates that a driver recorded the same function
// identity twice into one code object.  This is a programming-error-class
// invariant violation: it is never expected from well-formed input, so
// RecordFunction panics with this value rather than returning it.
type DuplicateEmissionError struct {
	// Function is the identity that was recorded twice.
	Function string
}

func (e *DuplicateEmissionError) Error() string {
	return fmt.Sprintf("function `%s` emitted twice into the same code object", e.Function)
}
