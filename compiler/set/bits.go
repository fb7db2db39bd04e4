// Package set is a dense bit set over small integer keys like registers.
package set

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

type (
	Key interface {
		~int | ~int64
	}

	// Bits is a set of keys starting from base. The zero value is empty.
	Bits[K Key] struct {
		base K
		b    []uint64
	}
)

func MakeBits[K Key](base K) Bits[K] {
	return Bits[K]{base: base}
}

func (s Bits[K]) Copy() Bits[K] {
	c := MakeBits(s.base)
	c.b = append([]uint64(nil), s.b...)

	return c
}

func (s *Bits[K]) Set(k K) {
	i, j := s.ij(k)
	s.grow(i + 1)

	s.b[i] |= 1 << j
}

func (s *Bits[K]) SetAll(k ...K) {
	for _, k := range k {
		s.Set(k)
	}
}

func (s Bits[K]) IsSet(k K) bool {
	i, j := s.ij(k)
	if i < 0 || i >= len(s.b) {
		return false
	}

	return s.b[i]&(1<<j) != 0
}

func (s *Bits[K]) Clear(k K) {
	i, j := s.ij(k)
	if i < 0 || i >= len(s.b) {
		return
	}

	s.b[i] &^= 1 << j
	s.strip()
}

// Merge adds every key of x. It reports whether s changed.
func (s *Bits[K]) Merge(x Bits[K]) (changed bool) {
	s.check(x)
	s.grow(len(x.b))

	for i, w := range x.b {
		if s.b[i]|w != s.b[i] {
			changed = true
		}

		s.b[i] |= w
	}

	return changed
}

func (s *Bits[K]) Substract(x Bits[K]) {
	s.check(x)

	for i := 0; i < len(s.b) && i < len(x.b); i++ {
		s.b[i] &^= x.b[i]
	}

	s.strip()
}

func (s Bits[K]) Equal(x Bits[K]) bool {
	if s.base != x.base || len(s.b) != len(x.b) {
		return false
	}

	for i := range s.b {
		if s.b[i] != x.b[i] {
			return false
		}
	}

	return true
}

func (s Bits[K]) Size() (r int) {
	for _, w := range s.b {
		r += bits.OnesCount64(w)
	}

	return r
}

func (s Bits[K]) Range(f func(k K) bool) {
	for i, w := range s.b {
		for w != 0 {
			j := bits.TrailingZeros64(w)
			w &^= 1 << j

			if !f(s.base + K(i*64+j)) {
				return
			}
		}
	}
}

// Slice lists keys in increasing order.
func (s Bits[K]) Slice() []K {
	l := make([]K, 0, s.Size())

	s.Range(func(k K) bool {
		l = append(l, k)
		return true
	})

	return l
}

func (s Bits[K]) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	b = e.AppendTag(b, tlwire.Array, -1)

	s.Range(func(k K) bool {
		b = e.AppendInt(b, int(k))
		return true
	})

	return e.AppendBreak(b)
}

func (s *Bits[K]) check(x Bits[K]) {
	if s.base != x.base {
		panic("set: base mismatch")
	}
}

func (s *Bits[K]) ij(k K) (i, j int) {
	p := int(k - s.base)
	if p < 0 {
		return -1, 0
	}

	return p / 64, p % 64
}

func (s *Bits[K]) grow(n int) {
	for len(s.b) < n {
		s.b = append(s.b, 0)
	}
}

// strip drops trailing empty words so equal sets compare equal.
func (s *Bits[K]) strip() {
	l := len(s.b)
	for l > 0 && s.b[l-1] == 0 {
		l--
	}

	s.b = s.b[:l]
}
