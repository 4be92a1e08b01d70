package driver

import (
	"testing"

	"dcc/cfg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetEntry(t *testing.T) {
	b := cfg.NewBuilder("test.dcir")
	b.NewFunction("start")
	b.RetVoid()
	ns := b.Finish()

	// No override leaves the namespace untouched.
	require.True(t, setEntry(ns, ""))
	assert.Empty(t, ns.Entry)

	require.True(t, setEntry(ns, "start"))
	assert.Equal(t, "start", ns.Entry)

	// An override naming an undefined function is rejected without
	// disturbing the current entry.
	assert.False(t, setEntry(ns, "missing"))
	assert.Equal(t, "start", ns.Entry)
}
