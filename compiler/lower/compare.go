package lower

import (
	"github.com/slowlang/lower/compiler/ast"
	"github.com/slowlang/lower/compiler/ir"
	"github.com/slowlang/lower/compiler/rt"
	"github.com/slowlang/lower/compiler/tp"
)

type cmpOpInfo struct {
	Op   ir.CmpKind
	Name string
}

var cmpOps = map[string]cmpOpInfo{
	"==": {ir.Eq, "eq"},
	"!=": {ir.Ne, "ne"},
	"<":  {ir.Lt, "lt"},
	"<=": {ir.Le, "le"},
	">":  {ir.Gt, "gt"},
	">=": {ir.Ge, "ge"},
}

func (b *builder) compare(e *ast.Compare) ir.Value {
	if e.Op == "is" || e.Op == "is not" {
		return b.coerce(b.identity(e), e.Type)
	}

	op, ok := cmpOps[e.Op]
	if !ok {
		invariant("no lowering for comparison %q", e.Op)
	}

	l := b.expr(e.L)
	r := b.expr(e.R)

	lt, rtp := b.typeOf(l), b.typeOf(r)

	var res ir.Value

	switch {
	case lt.IsNative() || rtp.IsNative():
		t := nativeOf(lt, rtp)

		l = b.coerce(l, t)
		r = b.coerce(r, t)

		res = b.cmp(op.Op, l, r, true)
	case lt.Kind == tp.KindBit && rtp.Kind == tp.KindBit:
		res = b.cmp(op.Op, l, r, false)
	case isTaggable(lt) && isTaggable(rtp):
		l = b.coerce(l, tp.Int)
		r = b.coerce(r, tp.Int)

		res = b.taggedCmp(op, l, r)
	case lt.IsRef() || rtp.IsRef():
		l = b.asObject(l)
		r = b.asObject(r)

		res = b.callRT(rt.ObjectCmp(op.Name), l, r)
	default:
		invariant("no lowering for %v %v %v", lt, e.Op, rtp)
	}

	return b.coerce(res, e.Type)
}

func isTaggable(t tp.Type) bool {
	return t.Kind == tp.KindInt || t.Kind == tp.KindBit
}

// nativeOf picks the width both sides are compared in.
func nativeOf(l, r tp.Type) tp.Type {
	switch {
	case !l.IsNative():
		return r
	case !r.IsNative():
		return l
	case l.Bits() >= r.Bits():
		return l
	default:
		return r
	}
}

// taggedCmp compares raw words when both operands are inline
// and calls the runtime otherwise.
func (b *builder) taggedCmp(op cmpOpInfo, l, r ir.Value) ir.Value {
	w := b.word()

	li, lok := l.(ir.Imm)
	ri, rok := r.(ir.Imm)

	lin := lok && b.inline(li.V)
	rin := rok && b.inline(ri.V)

	if lin && rin {
		return b.cmp(op.Op, l, r, true)
	}

	res := b.temp(tp.Bit)

	var both ir.Value

	switch {
	case lin:
		both = r
	case rin:
		both = l
	default:
		both = b.intOp(w, ir.And, l, r)
	}

	fast, slow, done := b.newBlock(), b.newBlock(), b.newBlock()

	tag := b.intOp(w, ir.And, both, imm(1, w))
	inl := b.cmp(ir.Ne, tag, imm(0, w), false)
	b.branch(inl, fast, slow)

	b.activate(fast)
	b.assign(res, b.cmp(op.Op, l, r, true))
	b.jump(done)

	b.activate(slow)
	b.assign(res, b.callRT(rt.IntCmp(op.Name), l, r))
	b.jump(done)

	b.activate(done)

	return res
}

func (b *builder) inline(v int64) bool {
	return v >= b.opts.inlineMin() && v <= b.opts.inlineMax()
}

func (b *builder) identity(e *ast.Compare) ir.Value {
	var res ir.Reg

	switch {
	case isNoneLit(e.R), isNoneLit(e.L):
		x := e.L
		if isNoneLit(e.L) {
			x = e.R
		}

		v := b.asObject(b.expr(x))
		res = b.callRT(rt.IsNone, v)
	default:
		l := b.asObject(b.expr(e.L))
		r := b.asObject(b.expr(e.R))

		res = b.callRT(rt.ObjectIs, l, r)
	}

	if e.Op == "is not" {
		res = b.cmp(ir.Eq, res, imm(0, tp.Bit), false)
	}

	return res
}

func isNoneLit(e ast.Expr) bool {
	_, ok := e.(*ast.NoneLit)
	return ok
}

// truth is the bit a value tests as in a condition.
func (b *builder) truth(v ir.Value) ir.Value {
	t := b.typeOf(v)

	switch t.Kind {
	case tp.KindBit:
		return v
	case tp.KindI32, tp.KindI64, tp.KindInt:
		return b.cmp(ir.Ne, v, imm(0, t), false)
	case tp.KindNone:
		return imm(0, tp.Bit)
	case tp.KindObject, tp.KindList, tp.KindTuple, tp.KindOptional:
		return b.callRT(rt.ObjectBool, v)
	}

	invariant("no truth value for %v", t)

	return nil
}

// cond lowers a branch condition. Comparisons produce their bit directly.
func (b *builder) cond(e ast.Expr) ir.Value {
	return b.truth(b.expr(e))
}

// boolOp short-circuits: the right operand is evaluated only
// on the path where the left one does not decide the result.
func (b *builder) boolOp(e *ast.BoolOp) ir.Value {
	t := e.Type

	res := b.temp(t)

	l := b.coerce(b.expr(e.L), t)
	c := b.truth(l)

	left, right, done := b.newBlock(), b.newBlock(), b.newBlock()

	switch e.Op {
	case "and":
		b.branch(c, right, left)
	case "or":
		b.branch(c, left, right)
	default:
		invariant("no lowering for boolean %q", e.Op)
	}

	b.activate(left)
	b.assign(res, l)
	b.jump(done)

	b.activate(right)
	b.assign(res, b.coerce(b.expr(e.R), t))
	b.jump(done)

	b.activate(done)

	return res
}
