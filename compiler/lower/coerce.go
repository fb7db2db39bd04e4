package lower

import (
	"math"

	"github.com/slowlang/lower/compiler/ast"
	"github.com/slowlang/lower/compiler/ir"
	"github.com/slowlang/lower/compiler/rt"
	"github.com/slowlang/lower/compiler/tp"
)

type (
	coerceKind int

	// coercion is a resolved plan for moving a value from one type to another.
	coercion struct {
		Kind     coerceKind
		From, To tp.Type

		// Slow is the runtime fallback of the tagged conversions.
		Slow *rt.Func
	}
)

const (
	coerceNone coerceKind = iota
	coerceExtend
	coerceTruncate
	coerceToTagged
	coerceFromTagged
	coerceBox
	coerceUnbox
	coerceRef
)

var coerceNames = []string{
	coerceNone:       "none",
	coerceExtend:     "extend",
	coerceTruncate:   "truncate",
	coerceToTagged:   "to_tagged",
	coerceFromTagged: "from_tagged",
	coerceBox:        "box",
	coerceUnbox:      "unbox",
	coerceRef:        "ref",
}

func (k coerceKind) String() string { return coerceNames[k] }

// plan decides how from becomes to. False means there is no rule.
func (o Options) plan(from, to tp.Type) (coercion, bool) {
	c := coercion{From: from, To: to}

	switch {
	case from.Equal(to):
		c.Kind = coerceNone
	case from.IsPrimitive() && to.IsNative() && from.Kind != tp.KindInt:
		switch {
		case from.Bits() < to.Bits():
			c.Kind = coerceExtend
		default:
			c.Kind = coerceTruncate
		}
	case from.IsPrimitive() && to.Kind == tp.KindInt:
		c.Kind = coerceToTagged

		switch from.Kind {
		case tp.KindI64:
			c.Slow = rt.IntFromI64
		case tp.KindI32:
			c.Slow = rt.IntFromI32
		}
	case from.Kind == tp.KindInt && to.IsNative():
		c.Kind = coerceFromTagged

		switch to.Kind {
		case tp.KindI64:
			c.Slow = rt.IntAsI64
		case tp.KindI32:
			c.Slow = rt.IntAsI32
		}
	case from.IsPrimitive() && to.Kind == tp.KindObject,
		from.IsPrimitive() && to.Kind == tp.KindOptional && to.Elem().Equal(from):
		c.Kind = coerceBox
	case from.Kind == tp.KindObject && to.IsPrimitive(),
		from.Kind == tp.KindOptional && from.Elem().Equal(to):
		c.Kind = coerceUnbox
	case from.IsRef() && to.IsRef() && refCompatible(from, to):
		c.Kind = coerceRef
	default:
		return c, false
	}

	return c, true
}

func refCompatible(from, to tp.Type) bool {
	switch {
	case to.Kind == tp.KindObject:
		return true
	case from.Kind == tp.KindObject:
		return true
	case to.Kind == tp.KindOptional:
		return from.Kind == tp.KindNone || from.Equal(to.Elem())
	default:
		return false
	}
}

// coerce converts v to. Immediates are retyped statically where they fit.
func (b *builder) coerce(v ir.Value, to tp.Type) ir.Value {
	from := b.typeOf(v)

	c, ok := b.opts.plan(from, to)
	if !ok {
		invariant("no coercion from %v to %v", from, to)
	}

	if c.Kind == coerceNone {
		return v
	}

	if x, ok := v.(ir.Imm); ok {
		if r, ok := b.coerceImm(x, c); ok {
			return r
		}
	}

	switch c.Kind {
	case coerceExtend:
		return b.extend(v, to, from.Kind != tp.KindBit)
	case coerceTruncate:
		return b.truncate(v, to)
	case coerceToTagged:
		return b.toTagged(v, c)
	case coerceFromTagged:
		return b.fromTagged(v, c)
	case coerceBox:
		dst := b.temp(to)
		b.add(ir.Box{Dst: dst, Src: v})

		return dst
	case coerceUnbox:
		dst := b.temp(to)
		b.add(ir.Unbox{Dst: dst, Src: v})

		return dst
	case coerceRef:
		dst := b.temp(to)
		b.assign(dst, v)

		if r, ok := v.(ir.Reg); ok {
			if root, ok := b.roots[r]; ok {
				b.roots[dst] = root
				b.f.Borrows = append(b.f.Borrows, ir.BorrowRecord{Reg: dst, Roots: []ir.Reg{root}})
			}
		}

		return dst
	}

	invariant("unhandled coercion %v", c.Kind)

	return nil
}

// asObject passes references as they are and boxes primitives.
func (b *builder) asObject(v ir.Value) ir.Value {
	if b.typeOf(v).IsRef() {
		return v
	}

	return b.coerce(v, tp.Object)
}

func (b *builder) coerceImm(x ir.Imm, c coercion) (ir.Value, bool) {
	v := x.V

	switch c.Kind {
	case coerceExtend:
	case coerceTruncate:
		if c.To.Kind == tp.KindI32 {
			v = int64(int32(v))
		}
	case coerceToTagged:
	case coerceFromTagged:
		if c.To.Kind == tp.KindI32 && (v < math.MinInt32 || v > math.MaxInt32) {
			return nil, false
		}
	default:
		return nil, false
	}

	return imm(v, c.To), true
}

// toTagged builds a tagged integer from a native one. Values which fit
// in the word inline are shifted and marked, others go to the runtime.
func (b *builder) toTagged(v ir.Value, c coercion) ir.Value {
	w := b.word()
	from := c.From

	if from.Kind == tp.KindBit || from.Bits() < w.Bits() {
		x := b.extend(v, w, from.Kind != tp.KindBit)
		t := b.tagWord(x)

		res := b.temp(tp.Int)
		b.assign(res, t)

		return res
	}

	res := b.temp(tp.Int)

	lower, fast, slow, done := b.newBlock(), b.newBlock(), b.newBlock(), b.newBlock()

	hi := b.cmp(ir.Le, v, imm(b.opts.inlineMax(), from), true)
	b.branch(hi, lower, slow)

	b.activate(lower)
	lo := b.cmp(ir.Ge, v, imm(b.opts.inlineMin(), from), true)
	b.branch(lo, fast, slow)

	b.activate(fast)

	x := v
	if from.Bits() > w.Bits() {
		x = b.truncate(v, w)
	}

	b.assign(res, b.tagWord(x))
	b.jump(done)

	b.activate(slow)
	b.assign(res, b.callRT(c.Slow, v))
	b.jump(done)

	b.activate(done)

	return res
}

// tagWord marks a word sized value as an inline tagged integer.
func (b *builder) tagWord(x ir.Value) ir.Reg {
	w := b.word()

	s := b.intOp(w, ir.Shl, x, imm(1, w))

	return b.intOp(w, ir.Or, s, imm(1, w))
}

// fromTagged reads a native integer out of a tagged one.
// Narrow targets also check the raw word is in range before shifting.
func (b *builder) fromTagged(v ir.Value, c coercion) ir.Value {
	w := b.word()
	to := c.To

	res := b.temp(to)

	fast, slow, done := b.newBlock(), b.newBlock(), b.newBlock()

	tag := b.intOp(w, ir.And, v, imm(1, w))
	inl := b.cmp(ir.Ne, tag, imm(0, w), false)

	if to.Bits() < w.Bits() {
		hi, lo := b.newBlock(), b.newBlock()

		top := int64(1)<<(to.Bits()-1) - 1
		bot := -int64(1) << (to.Bits() - 1)

		b.branch(inl, hi, slow)

		b.activate(hi)
		c1 := b.cmp(ir.Le, v, imm(top<<1|1, w), true)
		b.branch(c1, lo, slow)

		b.activate(lo)
		c2 := b.cmp(ir.Ge, v, imm(bot<<1|1, w), true)
		b.branch(c2, fast, slow)
	} else {
		b.branch(inl, fast, slow)
	}

	b.activate(fast)

	var x ir.Value = b.intOp(w, ir.Shr, v, imm(1, w))

	switch {
	case to.Bits() < w.Bits():
		x = b.truncate(x, to)
	case to.Bits() > w.Bits():
		x = b.extend(x, to, true)
	}

	b.assign(res, x)
	b.jump(done)

	b.activate(slow)
	b.assign(res, b.callRT(c.Slow, v))
	b.keepAlive(v)
	b.jump(done)

	b.activate(done)

	return res
}

// length reads the size field of a list. Sizes always fit inline,
// so the tagged form needs no range check.
func (b *builder) length(e *ast.Len) ir.Value {
	x := b.expr(e.X)
	if t := b.typeOf(x); t.Kind != tp.KindList {
		invariant("len of %v", t)
	}

	w := b.word()

	p := b.temp(tp.Ptr)
	b.add(ir.GetElementPtr{Dst: p, Src: x, Field: "size"})

	n := b.temp(w)
	b.add(ir.LoadMem{Dst: n, Src: p})

	to := e.Type

	switch {
	case to.Kind == tp.KindInt:
		v := b.tagWord(n)

		res := b.temp(tp.Int)
		b.assign(res, v)

		return res
	case to.Equal(w):
		return n
	case to.IsNative() && to.Bits() < w.Bits():
		return b.truncate(n, to)
	case to.IsNative():
		return b.extend(n, to, true)
	}

	return b.coerce(n, to)
}
