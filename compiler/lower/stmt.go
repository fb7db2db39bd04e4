package lower

import (
	"github.com/slowlang/lower/compiler/ast"
	"github.com/slowlang/lower/compiler/ir"
	"github.com/slowlang/lower/compiler/rt"
	"github.com/slowlang/lower/compiler/tp"
)

func (b *builder) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.Assign:
		b.assignStmt(s)
	case *ast.SetAttr:
		v := b.expr(s.Value)
		obj := b.exprB(s.Obj, chainLink(s.Obj))

		if t := b.typeOf(obj); !t.IsRef() {
			invariant("attribute %v of %v", s.Attr, t)
		}

		b.add(ir.SetAttr{Obj: obj, Attr: s.Attr, Src: v})
	case *ast.SetItem:
		v := b.asObject(b.expr(s.Value))

		if t := s.Obj.Typ(); t.Kind != tp.KindList {
			invariant("item assignment into %v", t)
		}

		obj := b.exprB(s.Obj, chainLink(s.Obj) && pure(s.Index))
		idx := b.indexValue(b.expr(s.Index))

		b.callRT(rt.ListSet(b.typeOf(idx)), obj, idx, v)
	case *ast.Return:
		b.returnStmt(s)
	case *ast.If:
		b.ifStmt(s)
	case *ast.ForRange:
		b.forRange(s)
	case *ast.While:
		b.whileStmt(s)
	case *ast.Break:
		b.jump(b.loop("break").exit)
	case *ast.Continue:
		b.jump(b.loop("continue").cont)
	case *ast.Pass:
	case *ast.ExprStmt:
		b.expr(s.X)
	default:
		invariant("unsupported statement %T", s)
	}

	if !b.sealed() {
		b.release()
	}
}

func (b *builder) assignStmt(s *ast.Assign) {
	v := b.expr(s.Value)

	t := s.Type
	if t.Kind == tp.Invalid {
		t = b.typeOf(v)
	}

	v = b.coerce(v, t)
	r := b.local(s.Target, t)

	// the target may be the owner of a borrowed read of the value
	b.release()
	b.assign(r, v)
}

func (b *builder) returnStmt(s *ast.Return) {
	ret := b.f.Ret

	var v ir.Value

	if s.Value == nil {
		if !ret.IsRef() {
			invariant("bare return from function returning %v", ret)
		}

		v = b.loadNone(ret)
	} else {
		v = b.coerce(b.expr(s.Value), ret)
	}

	b.release()
	b.ret(v)
}
