package lower

import (
	"github.com/slowlang/lower/compiler/ast"
	"github.com/slowlang/lower/compiler/ir"
	"github.com/slowlang/lower/compiler/rt"
	"github.com/slowlang/lower/compiler/tp"
)

// borrowScope collects the owners the borrowed reads of one
// statement depend on, in the order they were first seen.
type borrowScope struct {
	roots []ir.Reg
}

func (s *borrowScope) add(r ir.Reg) {
	for _, x := range s.roots {
		if x == r {
			return
		}
	}

	s.roots = append(s.roots, r)
}

// release keeps every pending owner alive up to this point
// and starts a new scope. Called before terminators and at statement end.
func (b *builder) release() {
	if b.borrows == nil || len(b.borrows.roots) == 0 {
		return
	}

	vals := make([]ir.Value, len(b.borrows.roots))
	for i, r := range b.borrows.roots {
		vals[i] = r
	}

	b.keepAlive(vals...)

	b.borrows.roots = b.borrows.roots[:0]
}

// borrowed records dst as a non-owning read out of owner.
// A chain of borrowed reads is rooted at its outermost owner.
func (b *builder) borrowed(dst ir.Reg, owner ir.Value) {
	root, ok := owner.(ir.Reg)
	if !ok {
		invariant("borrow from non-register %v", owner)
	}

	if r, ok := b.roots[root]; ok {
		root = r
	}

	b.roots[dst] = root
	b.borrows.add(root)

	b.f.Borrows = append(b.f.Borrows, ir.BorrowRecord{Reg: dst, Roots: []ir.Reg{root}})
}

// chainLink reports an intermediate of an attribute or index chain
// which can be read without owning it. Index containers qualify only
// when the index can't run code that mutates them.
func chainLink(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.AttrRef:
		return e.Type.IsRef()
	case *ast.Index:
		return e.Type.IsRef() && pure(e.Index)
	default:
		return false
	}
}

// pure reports an expression free of calls.
func pure(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.Name, *ast.IntLit, *ast.BoolLit, *ast.NoneLit:
		return true
	case *ast.BinOp:
		return pure(e.L) && pure(e.R)
	case *ast.UnaryOp:
		return pure(e.X)
	case *ast.Compare:
		return pure(e.L) && pure(e.R)
	case *ast.BoolOp:
		return pure(e.L) && pure(e.R)
	case *ast.AttrRef:
		return pure(e.Obj)
	case *ast.Index:
		return pure(e.Obj) && pure(e.Index)
	case *ast.Len:
		return pure(e.X)
	case *ast.TupleItem:
		return pure(e.X)
	case *ast.Convert:
		return pure(e.X)
	case *ast.TupleLit:
		for _, x := range e.Items {
			if !pure(x) {
				return false
			}
		}

		return true
	default:
		return false
	}
}

func (b *builder) attr(e *ast.AttrRef, borrow bool) ir.Value {
	obj := b.exprB(e.Obj, chainLink(e.Obj))
	if t := b.typeOf(obj); !t.IsRef() {
		invariant("attribute %v of %v", e.Attr, t)
	}

	borrow = borrow && e.Type.IsRef()

	dst := b.temp(e.Type)
	b.add(ir.GetAttr{Dst: dst, Obj: obj, Attr: e.Attr, Borrow: borrow})

	if borrow {
		b.borrowed(dst, obj)
	}

	return dst
}

func (b *builder) index(e *ast.Index, borrow bool) ir.Value {
	if t := e.Obj.Typ(); t.Kind != tp.KindList {
		invariant("index into %v", t)
	}

	obj := b.exprB(e.Obj, chainLink(e.Obj) && pure(e.Index))
	idx := b.indexValue(b.expr(e.Index))

	borrow = borrow && e.Type.IsRef()

	dst := b.callRT(rt.ListGet(b.typeOf(idx), borrow), obj, idx)

	if borrow {
		b.borrowed(dst, obj)
	}

	return b.coerce(dst, e.Type)
}

// indexValue picks the index width of the element accessor.
func (b *builder) indexValue(v ir.Value) ir.Value {
	switch t := b.typeOf(v); t.Kind {
	case tp.KindInt, tp.KindI64, tp.KindI32:
		return v
	case tp.KindBit:
		return b.coerce(v, b.word())
	default:
		invariant("list index of type %v", t)
	}

	return nil
}
