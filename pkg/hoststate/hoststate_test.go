package hoststate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/weave/pkg/bytecode"
)

func TestEmptyHostState_AlwaysMisses(t *testing.T) {
	_, ok := EmptyHostState{}.Lookup("anything")
	assert.False(t, ok)
}

func TestStaticHostState_Lookup(t *testing.T) {
	host := NewStaticHostState(map[string]bytecode.Value{"gold": bytecode.NumberValue(42)})

	v, ok := host.Lookup("gold")
	require.True(t, ok)
	assert.Equal(t, float64(42), v.Number)

	_, ok = host.Lookup("missing")
	assert.False(t, ok)
}

func TestStaticHostState_NilMap(t *testing.T) {
	host := NewStaticHostState(nil)
	_, ok := host.Lookup("x")
	assert.False(t, ok)
}
