// Package lower is the target-lowering core of the compiler: it takes a
// compiled namespace of control-flow graphs and lowers it into a code object
// for a named architecture.  The driving algorithm is shared ("build a code
// object by emitting every function"); each registered target supplies its
// own instruction selection and encoding.
package lower

import (
	"sort"
	"sync"

	"dcc/cfg"
)

// Target is the capability every concrete backend must implement.  Target
// implementations are stateless strategy objects: all mutation during a build
// happens through the code object they are handed, so one Target instance may
// be reused across builds and shared between goroutines.
type Target interface {
	// Triple returns the architecture triple the target lowers for.
	Triple() string

	// Order returns the target's emission order policy.
	Order() OrderPolicy

	// EmitFunction translates one control-flow graph into the target's
	// machine representation and records the result into the code object.  On
	// failure it returns a *LoweringError and records nothing: an emission
	// either fully records a function's body or leaves the object untouched.
	EmitFunction(co *CodeObject, fn *cfg.Function) error
}

// OrderPolicy names the emission order a target requires over a namespace's
// functions.  In-namespace order is the baseline; targets with entry-point or
// forward-reference requirements must declare a different policy explicitly.
type OrderPolicy int

const (
	// OrderNamespace emits functions in namespace order.
	OrderNamespace OrderPolicy = iota

	// OrderEntryLast emits the namespace's designated entry function after
	// all others, so that its instruction selection can assume every other
	// function's symbol has already been recorded.
	OrderEntryLast
)

// -----------------------------------------------------------------------------

// targetsMu protects the target registry.
var targetsMu sync.RWMutex

// targets maps architecture triples to their registered backends.
var targets = make(map[string]Target)

// Register makes a target available to subsequently created emission
// contexts under its triple.  It is intended to be called from the init
// function of each target package.  Registering two targets for one triple is
// a programming error and panics.
func Register(t Target) {
	targetsMu.Lock()
	defer targetsMu.Unlock()

	if _, ok := targets[t.Triple()]; ok {
		panic("lower: target registered twice for triple " + t.Triple())
	}

	targets[t.Triple()] = t
}

// registeredTargets returns a snapshot of the current registry.
func registeredTargets() map[string]Target {
	targetsMu.RLock()
	defer targetsMu.RUnlock()

	snapshot := make(map[string]Target, len(targets))
	for triple, t := range targets {
		snapshot[triple] = t
	}

	return snapshot
}

// -----------------------------------------------------------------------------

// Context is the code-emission context for one compilation unit.  It is
// explicitly constructed and explicitly scoped: each build call receives a
// context, and nothing about emission is process global except the target
// registry of stateless strategies.  A context may be shared by parallel
// builds of independent code objects.
type Context struct {
	// The targets known to this context, by triple.
	targets map[string]Target
}

// NewContext creates an emission context over the currently registered
// targets.
func NewContext() *Context {
	return &Context{targets: registeredTargets()}
}

// Target returns the target registered for the given triple, if any.
func (ctx *Context) Target(triple string) (Target, bool) {
	t, ok := ctx.targets[triple]
	return t, ok
}

// Triples returns the sorted list of architecture triples this context can
// lower for.
func (ctx *Context) Triples() []string {
	triples := make([]string, 0, len(ctx.targets))
	for triple := range ctx.targets {
		triples = append(triples, triple)
	}

	sort.Strings(triples)
	return triples
}
