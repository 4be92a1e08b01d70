package lower

import (
	"strings"

	"dcc/cfg"
)

// CodeObject is the in-memory lowered artifact for one target architecture.
// It owns every emitted function body; the namespace it was lowered from is
// only borrowed for the duration of the build.  A code object is mutated
// incrementally, one function at a time, and is never mutated again after its
// build returns it.
type CodeObject struct {
	// Triple is the architecture triple the object was lowered for.
	Triple string

	// Filename is the representative path of the source compilation unit,
	// used for debug and metadata naming.
	Filename string

	// ns is the originating namespace.  It is borrowed, not owned: its
	// lifetime is tied to the caller's namespace, and the code object never
	// mutates it.
	ns *cfg.Namespace

	// funcs maps function identities to their emitted bodies.
	funcs map[string]*Body

	// emitted records identities in emission order, so that rendering and
	// symbol listings are deterministic.
	emitted []string
}

// NewCodeObject constructs an empty code object tagged with the given
// architecture triple.  It fails with an *UnsupportedArchitectureError if the
// triple is unrecognized by the emission context.
func NewCodeObject(ctx *Context, filename string, ns *cfg.Namespace, triple string) (*CodeObject, error) {
	if _, ok := ctx.Target(triple); !ok {
		return nil, &UnsupportedArchitectureError{Triple: triple, Known: ctx.Triples()}
	}

	return &CodeObject{
		Triple:   triple,
		Filename: filename,
		ns:       ns,
		funcs:    make(map[string]*Body),
	}, nil
}

// Namespace returns the namespace this code object is being lowered from.
func (co *CodeObject) Namespace() *cfg.Namespace {
	return co.ns
}

// RecordFunction inserts the lowered body for a function.  The identity must
// not already be recorded in this object: a second recording means the driver
// emitted the same function twice, which is a programming error, so this
// panics with a *DuplicateEmissionError rather than returning.
func (co *CodeObject) RecordFunction(name string, body *Body) {
	if _, ok := co.funcs[name]; ok {
		panic(&DuplicateEmissionError{Function: name})
	}

	co.funcs[name] = body
	co.emitted = append(co.emitted, name)
}

// Function returns the emitted body recorded under the given identity, if it
// exists.
func (co *CodeObject) Function(name string) (*Body, bool) {
	body, ok := co.funcs[name]
	return body, ok
}

// Functions returns the recorded function identities in emission order.
func (co *CodeObject) Functions() []string {
	return co.emitted
}

// Len returns the number of recorded functions.
func (co *CodeObject) Len() int {
	return len(co.funcs)
}

// Render converts the completed code object into a textual listing for the
// downstream packager.
func (co *CodeObject) Render() string {
	sb := strings.Builder{}

	sb.WriteString("// " + co.Filename + " [" + co.Triple + "]\n\n")
	for _, name := range co.emitted {
		sb.WriteString(co.funcs[name].Render())
		sb.WriteRune('\n')
	}

	return sb.String()
}
