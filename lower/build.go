package lower

import "dcc/cfg"

// Build lowers a compiled namespace into a code object for the named
// architecture triple.  This is the default driving algorithm shared by all
// targets: construct an empty code object, then emit every control-flow graph
// in the order the target's policy dictates, mutating the object after each.
//
// A build either fully succeeds or fails outright.  If any function fails to
// lower, the in-progress object is abandoned and the lowering error is
// returned; no silently partial artifact is ever exposed to the caller.
func Build(ctx *Context, filename string, ns *cfg.Namespace, triple string) (*CodeObject, error) {
	target, ok := ctx.Target(triple)
	if !ok {
		return nil, &UnsupportedArchitectureError{Triple: triple, Known: ctx.Triples()}
	}

	co, err := NewCodeObject(ctx, filename, ns, triple)
	if err != nil {
		return nil, err
	}

	for _, fn := range emitOrder(ns, target.Order()) {
		if err := target.EmitFunction(co, fn); err != nil {
			return nil, err
		}
	}

	return co, nil
}

// emitOrder applies a target's emission order policy to the namespace's
// functions.  The namespace itself is never reordered.
func emitOrder(ns *cfg.Namespace, policy OrderPolicy) []*cfg.Function {
	if policy == OrderNamespace || ns.Entry == "" {
		return ns.Funcs
	}

	// OrderEntryLast: keep namespace order but move the entry function to
	// the end.
	ordered := make([]*cfg.Function, 0, len(ns.Funcs))
	var entry *cfg.Function
	for _, fn := range ns.Funcs {
		if fn.Name == ns.Entry {
			entry = fn
			continue
		}

		ordered = append(ordered, fn)
	}

	if entry != nil {
		ordered = append(ordered, entry)
	}

	return ordered
}
