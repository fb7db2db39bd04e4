package tp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		in  string
		exp Type
	}{
		{"i32", I32},
		{"i64", I64},
		{"int", Int},
		{"bool", Bit},
		{"object", Object},
		{"list", List},
		{"optional[i64]", Optional(I64)},
		{"tuple[i64, object]", Tuple(I64, Object)},
		{" tuple[ int , tuple[bit] ] ", Tuple(Int, Tuple(Bit))},
		{"tuple[]", Tuple()},
	} {
		x, err := Parse(tc.in)
		require.NoError(t, err, "%q", tc.in)
		assert.True(t, tc.exp.Equal(x), "%q: %v", tc.in, x)
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"", "float", "optional[i64, int]", "tuple[i64", "i64 i32", "tuple i64"} {
		_, err := Parse(in)
		assert.Error(t, err, "%q", in)
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "tuple[i64, optional[int]]", Tuple(I64, Optional(Int)).String())
	assert.Equal(t, "bit", Bit.String())
}

func TestClasses(t *testing.T) {
	assert.True(t, I32.IsNative())
	assert.False(t, Int.IsNative())
	assert.True(t, Int.IsPrimitive())
	assert.True(t, Bit.IsPrimitive())
	assert.False(t, Object.IsPrimitive())
	assert.True(t, Optional(I64).IsRef())
	assert.False(t, Ptr.IsRef())

	assert.Equal(t, 32, I32.Bits())
	assert.Equal(t, 64, Word(64).Bits())
	assert.True(t, Word(32).Equal(I32))
}
