package lower

import (
	"github.com/slowlang/lower/compiler/ast"
	"github.com/slowlang/lower/compiler/ir"
	"github.com/slowlang/lower/compiler/rt"
	"github.com/slowlang/lower/compiler/tp"
)

type binOpInfo struct {
	Op   ir.IntOpKind
	Name string // runtime routine suffix
}

var binOps = map[string]binOpInfo{
	"+":  {ir.Add, "add"},
	"-":  {ir.Sub, "sub"},
	"*":  {ir.Mul, "mul"},
	"//": {ir.Div, "floor_div"},
	"%":  {ir.Mod, "floor_mod"},
	"&":  {ir.And, "and"},
	"|":  {ir.Or, "or"},
	"^":  {ir.Xor, "xor"},
	"<<": {ir.Shl, "lshift"},
	">>": {ir.Shr, "rshift"},
}

func (b *builder) binOp(e *ast.BinOp) ir.Value {
	t := e.Type

	op, ok := binOps[e.Op]
	if !ok {
		invariant("no lowering for operator %q on %v", e.Op, t)
	}

	l := b.expr(e.L)
	r := b.expr(e.R)

	switch t.Kind {
	case tp.KindI32, tp.KindI64:
		l = b.coerce(l, t)
		r = b.coerce(r, t)

		switch op.Op {
		case ir.Div:
			return b.floorDiv(t, l, r)
		case ir.Mod:
			return b.floorMod(t, l, r)
		}

		return b.intOp(t, op.Op, l, r)
	case tp.KindInt:
		l = b.coerce(l, t)
		r = b.coerce(r, t)

		return b.callRT(rt.IntBinOp(op.Name), l, r)
	case tp.KindBit:
		if op.Op != ir.And && op.Op != ir.Or && op.Op != ir.Xor {
			break
		}

		l = b.coerce(l, t)
		r = b.coerce(r, t)

		return b.intOp(t, op.Op, l, r)
	case tp.KindObject:
		l = b.asObject(l)
		r = b.asObject(r)

		return b.callRT(rt.ObjectBinOp(op.Name), l, r)
	}

	invariant("no lowering for operator %q on %v", e.Op, t)

	return nil
}

// constDivisor reports a divisor the inline floor sequence can use.
// Zero must fault and -1 may overflow, both are left to the runtime.
func constDivisor(v ir.Value) (int64, bool) {
	c, ok := v.(ir.Imm)
	if !ok || c.V == 0 || c.V == -1 {
		return 0, false
	}

	return c.V, true
}

// floorDiv rounds the truncating quotient towards negative infinity:
// it is one less when the remainder is non zero and the dividend sign
// differs from the divisor sign.
func (b *builder) floorDiv(t tp.Type, x, y ir.Value) ir.Value {
	c, ok := constDivisor(y)
	if !ok {
		return b.callRT(rt.FloorDiv(t), x, y)
	}

	q := b.intOp(t, ir.Div, x, y)
	m := b.intOp(t, ir.Mod, x, y)

	return b.floorFixup(t, x, c, q, m, func() ir.Value {
		return b.intOp(t, ir.Sub, q, imm(1, t))
	})
}

// floorMod adds the divisor to a non zero remainder whose sign differs.
func (b *builder) floorMod(t tp.Type, x, y ir.Value) ir.Value {
	c, ok := constDivisor(y)
	if !ok {
		return b.callRT(rt.FloorMod(t), x, y)
	}

	m := b.intOp(t, ir.Mod, x, y)

	return b.floorFixup(t, x, c, m, m, func() ir.Value {
		return b.intOp(t, ir.Add, m, y)
	})
}

func (b *builder) floorFixup(t tp.Type, x ir.Value, c int64, keep, rem ir.Reg, adjust func() ir.Value) ir.Value {
	res := b.temp(t)

	check, same, fix, done := b.newBlock(), b.newBlock(), b.newBlock(), b.newBlock()

	op := ir.Lt
	if c < 0 {
		op = ir.Gt
	}

	neg := b.cmp(op, x, imm(0, t), true)
	b.branch(neg, check, same)

	b.activate(check)
	nz := b.cmp(ir.Ne, rem, imm(0, t), false)
	b.branch(nz, fix, same)

	b.activate(same)
	b.assign(res, keep)
	b.jump(done)

	b.activate(fix)
	b.assign(res, adjust())
	b.jump(done)

	b.activate(done)

	return res
}

func (b *builder) unaryOp(e *ast.UnaryOp) ir.Value {
	t := e.Type

	if e.Op == "not" {
		v := b.truth(b.expr(e.X))
		r := b.cmp(ir.Eq, v, imm(0, tp.Bit), false)

		return b.coerce(r, t)
	}

	x := b.expr(e.X)

	switch t.Kind {
	case tp.KindI32, tp.KindI64:
		x = b.coerce(x, t)

		switch e.Op {
		case "-":
			return b.intOp(t, ir.Sub, imm(0, t), x)
		case "~":
			return b.intOp(t, ir.Xor, x, imm(-1, t))
		case "+":
			return x
		}
	case tp.KindInt:
		x = b.coerce(x, t)

		switch e.Op {
		case "-":
			return b.callRT(rt.IntNeg, x)
		case "~":
			return b.callRT(rt.IntInvert, x)
		case "+":
			return x
		}
	case tp.KindObject:
		x = b.asObject(x)

		switch e.Op {
		case "-":
			return b.callRT(rt.ObjectNeg, x)
		case "~":
			return b.callRT(rt.ObjectInvert, x)
		case "+":
			return b.callRT(rt.ObjectPos, x)
		}
	}

	invariant("no lowering for unary %q on %v", e.Op, t)

	return nil
}
