package interp

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slowlang/lower/compiler/analyze"
	"github.com/slowlang/lower/compiler/ast"
	"github.com/slowlang/lower/compiler/lower"
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

func set(target string, t tp.Type, v ast.Expr) *ast.Assign {
	return &ast.Assign{Target: target, Type: t, Value: v}
}

func ret(e ast.Expr) *ast.Return { return &ast.Return{Value: e} }

func param(n string, t tp.Type) ast.Param { return ast.Param{Name: n, Type: t} }

func fn(n string, r tp.Type, params []ast.Param, body ...ast.Stmt) *ast.Func {
	return &ast.Func{Name: n, Params: params, Ret: r, Body: body}
}

func params(p ...ast.Param) []ast.Param { return p }

// machine lowers and verifies m and loads it into a fresh machine.
func machine(t *testing.T, w int, m *ast.Module) *Machine {
	t.Helper()

	ctx := context.Background()

	mod, err := lower.Module(ctx, m, lower.Options{WordBits: w})
	require.NoError(t, err)

	err = analyze.Module(ctx, mod, w)
	require.NoError(t, err)

	return New(mod, w)
}

func funcs(t *testing.T, w int, fns ...*ast.Func) *Machine {
	t.Helper()

	return machine(t, w, &ast.Module{Funcs: fns})
}

func call(t *testing.T, m *Machine, name string, args ...any) any {
	t.Helper()

	res, err := m.Call(context.Background(), name, args...)
	require.NoError(t, err, "%v%v", name, args)

	return res
}

// bigint renders a tagged result for comparison.
func bigint(t *testing.T, v any) string {
	t.Helper()

	x, ok := v.(*big.Int)
	require.True(t, ok, "%T", v)

	return x.String()
}
