package lower

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/lower/compiler/ast"
	"github.com/slowlang/lower/compiler/format"
	"github.com/slowlang/lower/compiler/ir"
	"github.com/slowlang/lower/compiler/tp"
)

func name(n string, t tp.Type) *ast.Name {
	return &ast.Name{Base: ast.Base{Type: t}, Name: n}
}

func lit(v int64, t tp.Type) *ast.IntLit {
	return &ast.IntLit{Base: ast.Base{Type: t}, V: v}
}

func bin(op string, t tp.Type, l, r ast.Expr) *ast.BinOp {
	return &ast.BinOp{Base: ast.Base{Type: t}, Op: op, L: l, R: r}
}

func cmpx(op string, l, r ast.Expr) *ast.Compare {
	return &ast.Compare{Base: ast.Base{Type: tp.Bit}, Op: op, L: l, R: r}
}

func attr(obj ast.Expr, a string, t tp.Type) *ast.AttrRef {
	return &ast.AttrRef{Base: ast.Base{Type: t}, Obj: obj, Attr: a}
}

func call(fn string, t tp.Type, args ...ast.Expr) *ast.Call {
	return &ast.Call{Base: ast.Base{Type: t}, Func: fn, Args: args}
}

func param(n string, t tp.Type) ast.Param {
	return ast.Param{Name: n, Type: t}
}

func optParam(n string, t tp.Type, def ast.Expr) ast.Param {
	return ast.Param{Name: n, Type: t, Default: def}
}

func ret(e ast.Expr) *ast.Return { return &ast.Return{Value: e} }

func fn(n string, r tp.Type, params []ast.Param, body ...ast.Stmt) *ast.Func {
	return &ast.Func{Name: n, Params: params, Ret: r, Body: body}
}

func params(p ...ast.Param) []ast.Param { return p }

func lowerModule(t *testing.T, w int, m *ast.Module) *ir.Module {
	t.Helper()

	res, err := Module(context.Background(), m, Options{WordBits: w})
	require.NoError(t, err)

	return res
}

func lowerFuncs(t *testing.T, w int, fns ...*ast.Func) *ir.Module {
	t.Helper()

	return lowerModule(t, w, &ast.Module{Funcs: fns})
}

func text(f *ir.Func) string {
	return string(format.Func(nil, f))
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// ops collects the ops of type T over all blocks.
func ops[T ir.Op](f *ir.Func) (r []T) {
	for _, b := range f.Blocks {
		for _, op := range b.Ops {
			if x, ok := op.(T); ok {
				r = append(r, x)
			}
		}

		if x, ok := b.Term.(T); ok {
			r = append(r, x)
		}
	}

	return r
}

func testContext() context.Context { return context.Background() }
