package lower

import (
	"math"

	"github.com/slowlang/lower/compiler/ast"
	"github.com/slowlang/lower/compiler/ir"
	"github.com/slowlang/lower/compiler/tp"
)

func (b *builder) expr(e ast.Expr) ir.Value {
	return b.exprB(e, false)
}

// exprB lowers e. With borrow set a reference produced by an attribute
// or element read may stay owned by its container.
func (b *builder) exprB(e ast.Expr, borrow bool) ir.Value {
	switch e := e.(type) {
	case *ast.Name:
		r := b.lookup(e.Name)

		return b.coerce(r, litType(e.Type, b.typeOf(r)))
	case *ast.IntLit:
		return b.intLit(e)
	case *ast.BoolLit:
		var v int64
		if e.V {
			v = 1
		}

		return b.coerce(imm(v, tp.Bit), litType(e.Type, tp.Bit))
	case *ast.NoneLit:
		return b.loadNone(litType(e.Type, tp.None))
	case *ast.BinOp:
		return b.binOp(e)
	case *ast.UnaryOp:
		return b.unaryOp(e)
	case *ast.Compare:
		return b.compare(e)
	case *ast.BoolOp:
		return b.boolOp(e)
	case *ast.Call:
		return b.call(e)
	case *ast.MethodCall:
		return b.methodCall(e)
	case *ast.AttrRef:
		return b.attr(e, borrow)
	case *ast.Index:
		return b.index(e, borrow)
	case *ast.Len:
		return b.length(e)
	case *ast.TupleLit:
		return b.tupleLit(e)
	case *ast.TupleItem:
		return b.tupleItem(e)
	case *ast.Convert:
		return b.coerce(b.expr(e.X), e.Type)
	case nil:
		invariant("missing expression")
	}

	invariant("unsupported expression %T", e)

	return nil
}

func litType(t, def tp.Type) tp.Type {
	if t.Kind == tp.Invalid {
		return def
	}

	return t
}

func (b *builder) intLit(e *ast.IntLit) ir.Value {
	t := litType(e.Type, tp.Int)

	switch t.Kind {
	case tp.KindI32:
		if e.V < math.MinInt32 || e.V > math.MaxInt32 {
			invariant("literal %d overflows i32", e.V)
		}

		return imm(e.V, t)
	case tp.KindI64, tp.KindInt:
		return imm(e.V, t)
	case tp.KindBit:
		if e.V != 0 && e.V != 1 {
			invariant("literal %d is not a bit", e.V)
		}

		return imm(e.V, t)
	}

	return b.coerce(imm(e.V, tp.Int), t)
}

func (b *builder) tupleLit(e *ast.TupleLit) ir.Value {
	t := e.Type
	if t.Kind != tp.KindTuple || len(t.Elems) != len(e.Items) {
		invariant("tuple literal of %d items typed %v", len(e.Items), t)
	}

	items := make([]ir.Value, len(e.Items))

	for i, x := range e.Items {
		items[i] = b.coerce(b.expr(x), t.Elems[i])
	}

	dst := b.temp(t)
	b.add(ir.TupleSet{Dst: dst, Items: items})

	return dst
}

func (b *builder) tupleItem(e *ast.TupleItem) ir.Value {
	x := b.expr(e.X)

	t := b.typeOf(x)
	if t.Kind != tp.KindTuple || e.Index < 0 || e.Index >= len(t.Elems) {
		invariant("item %d of %v", e.Index, t)
	}

	dst := b.temp(t.Elems[e.Index])
	b.add(ir.TupleGet{Dst: dst, Src: x, Index: e.Index})

	return b.coerce(dst, litType(e.Type, t.Elems[e.Index]))
}
