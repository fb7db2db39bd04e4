package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBits(t *testing.T) {
	s := MakeBits(0)

	s.SetAll(1, 5, 64, 130)

	assert.True(t, s.IsSet(5))
	assert.True(t, s.IsSet(130))
	assert.False(t, s.IsSet(6))
	assert.False(t, s.IsSet(1000))
	assert.Equal(t, 4, s.Size())
	assert.Equal(t, []int{1, 5, 64, 130}, s.Slice())

	s.Clear(130)
	s.Clear(2000)

	assert.Equal(t, []int{1, 5, 64}, s.Slice())
}

func TestBitsMergeSubstract(t *testing.T) {
	a := MakeBits(0)
	a.SetAll(1, 2)

	b := MakeBits(0)
	b.SetAll(2, 100)

	c := a.Copy()
	assert.True(t, c.Merge(b))
	assert.False(t, c.Merge(b))
	assert.Equal(t, []int{1, 2, 100}, c.Slice())

	// a is untouched by changes to its copy
	assert.Equal(t, []int{1, 2}, a.Slice())

	c.Substract(b)
	assert.Equal(t, []int{1}, c.Slice())

	exp := MakeBits(0)
	exp.Set(1)

	assert.True(t, c.Equal(exp))
	assert.False(t, c.Equal(a))
	assert.True(t, MakeBits(0).Equal(Bits[int]{}))
}

func TestBitsBase(t *testing.T) {
	s := MakeBits(10)
	s.Set(10)
	s.Set(75)

	assert.True(t, s.IsSet(10))
	assert.False(t, s.IsSet(9))
	assert.Equal(t, []int{10, 75}, s.Slice())

	assert.Panics(t, func() {
		x := MakeBits(0)
		x.Merge(s)
	})
}

func TestBitsRangeStop(t *testing.T) {
	s := MakeBits(0)
	s.SetAll(3, 4, 5)

	var got []int
	s.Range(func(k int) bool {
		got = append(got, k)
		return k < 4
	})

	assert.Equal(t, []int{3, 4}, got)
}
