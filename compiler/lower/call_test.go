package lower

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/lower/compiler/ast"
	"github.com/slowlang/lower/compiler/ir"
	"github.com/slowlang/lower/compiler/tp"
)

func withDefault() *ast.Func {
	return fn("f", tp.I64, params(param("x", tp.I64), optParam("y", tp.I64, lit(5, tp.I64))),
		ret(bin("+", tp.I64, name("x", tp.I64), name("y", tp.I64))))
}

func TestDefaultsGolden(t *testing.T) {
	g := golden(t)

	m := lowerFuncs(t, 64,
		withDefault(),
		fn("h", tp.Object, params(optParam("o", tp.Object, &ast.NoneLit{Base: ast.Base{Type: tp.Object}})),
			ret(name("o", tp.Object))),
	)

	g.Assert(t, "default_primitive", []byte(text(m.Funcs[0])))
	g.Assert(t, "default_object", []byte(text(m.Funcs[1])))
}

func TestCallSites(t *testing.T) {
	m := lowerFuncs(t, 64,
		withDefault(),
		fn("h", tp.Object, params(optParam("o", tp.Object, &ast.NoneLit{Base: ast.Base{Type: tp.Object}})),
			ret(name("o", tp.Object))),
		fn("pos", tp.I64, nil, ret(call("f", tp.I64, lit(1, tp.I64)))),
		fn("kw", tp.I64, nil, ret(&ast.Call{Base: ast.Base{Type: tp.I64}, Func: "f",
			Args:   []ast.Expr{lit(1, tp.I64)},
			Kwargs: []ast.Kwarg{{Name: "y", Value: lit(2, tp.I64)}},
		})),
		fn("obj", tp.Object, nil, ret(call("h", tp.Object))),
	)

	assert.Equal(t, `def pos() -> i64:
    r0 :: i64
L0:
    r0 = f(1, 0, 0)
    return r0
`, text(m.Funcs[2]))

	assert.Equal(t, `def kw() -> i64:
    r0 :: i64
L0:
    r0 = f(1, 2, 1)
    return r0
`, text(m.Funcs[3]))

	assert.Equal(t, `def obj() -> object:
    r0, r1 :: object
L0:
    r0 = <error> :: object
    r1 = h(r0)
    return r1
`, text(m.Funcs[4]))
}

func TestBitmapOverflow(t *testing.T) {
	var ps []ast.Param
	for i := 0; i < 33; i++ {
		ps = append(ps, optParam(fmt.Sprintf("p%d", i), tp.I64, lit(int64(i), tp.I64)))
	}

	m := lowerFuncs(t, 64,
		&ast.Func{Name: "many", Params: ps, Ret: tp.I64, Body: []ast.Stmt{ret(name("p0", tp.I64))}},
		fn("c31", tp.I64, nil, ret(&ast.Call{Base: ast.Base{Type: tp.I64}, Func: "many",
			Kwargs: []ast.Kwarg{{Name: "p31", Value: lit(7, tp.I64)}}})),
		fn("c32", tp.I64, nil, ret(&ast.Call{Base: ast.Base{Type: tp.I64}, Func: "many",
			Kwargs: []ast.Kwarg{{Name: "p32", Value: lit(7, tp.I64)}}})),
	)

	f := m.Funcs[0]
	require.Len(t, f.Bitmaps, 2)
	assert.Equal(t, "__bitmap", f.Regs[f.Bitmaps[0]].Name)
	assert.Equal(t, "__bitmap2", f.Regs[f.Bitmaps[1]].Name)

	args := func(f *ir.Func) []ir.Value {
		calls := ops[ir.Call](f)
		require.Len(t, calls, 1)
		require.Len(t, calls[0].Args, 35)

		return calls[0].Args
	}

	a := args(m.Funcs[1])
	assert.Equal(t, ir.Imm{V: 7, Type: tp.I64}, a[31])
	assert.Equal(t, ir.Imm{V: -1 << 31, Type: tp.I32}, a[33])
	assert.Equal(t, ir.Imm{V: 0, Type: tp.I32}, a[34])

	a = args(m.Funcs[2])
	assert.Equal(t, ir.Imm{V: 0, Type: tp.I64}, a[31])
	assert.Equal(t, ir.Imm{V: 0, Type: tp.I32}, a[33])
	assert.Equal(t, ir.Imm{V: 1, Type: tp.I32}, a[34])
}

func TestMethodCall(t *testing.T) {
	node := &ast.Class{
		Name:  "Node",
		Attrs: []ast.Attr{{Name: "val", Type: tp.I64}},
		Methods: []*ast.Func{
			fn("get", tp.I64, params(param("self", tp.Object), optParam("d", tp.I64, lit(0, tp.I64))),
				ret(bin("+", tp.I64, attr(name("self", tp.Object), "val", tp.I64), name("d", tp.I64)))),
		},
	}

	m := lowerModule(t, 64, &ast.Module{
		Classes: []*ast.Class{node},
		Funcs: []*ast.Func{
			fn("f", tp.I64, params(param("o", tp.Object)),
				ret(&ast.MethodCall{Base: ast.Base{Type: tp.I64}, Obj: name("o", tp.Object), Class: "Node", Method: "get"})),
		},
	})

	require.Len(t, m.Funcs, 2)
	require.Len(t, m.Classes, 1)
	assert.Equal(t, []ir.Attr{{Name: "val", Type: tp.I64}}, m.Classes[0].Attrs)

	assert.Equal(t, "Node.get", m.Funcs[0].Name)
	assert.Contains(t, text(m.Funcs[0]), "def Node.get(self: object, d?: i64, __bitmap: i32) -> i64:\n")

	assert.Equal(t, `def f(o: object) -> i64:
    o :: object
    r0 :: i64
L0:
    r0 = o.get(0, 0)
    return r0
`, text(m.Funcs[1]))
}

func TestCallErrors(t *testing.T) {
	for _, tc := range []struct {
		Name string
		Call *ast.Call
		Msg  string
	}{
		{"missing", call("f", tp.I64), "missing argument x"},
		{"unknown_kw", &ast.Call{Base: ast.Base{Type: tp.I64}, Func: "f",
			Args: []ast.Expr{lit(1, tp.I64)}, Kwargs: []ast.Kwarg{{Name: "z", Value: lit(1, tp.I64)}}}, "has no parameter z"},
		{"twice", &ast.Call{Base: ast.Base{Type: tp.I64}, Func: "f",
			Args: []ast.Expr{lit(1, tp.I64)}, Kwargs: []ast.Kwarg{{Name: "x", Value: lit(1, tp.I64)}}}, "passed twice"},
		{"too_many", call("f", tp.I64, lit(1, tp.I64), lit(2, tp.I64), lit(3, tp.I64)), "takes 2 arguments"},
		{"unknown_func", call("nope", tp.I64), "unknown function nope"},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			_, err := Module(testContext(), &ast.Module{Funcs: []*ast.Func{
				withDefault(),
				fn("g", tp.I64, nil, ret(tc.Call)),
			}}, DefaultOptions())

			var ie *InvariantError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, "g", ie.Func)
			assert.Contains(t, ie.Msg, tc.Msg)
		})
	}
}

func TestSignatureErrors(t *testing.T) {
	_, err := Module(testContext(), &ast.Module{Funcs: []*ast.Func{
		fn("f", tp.I64, params(optParam("a", tp.I64, lit(1, tp.I64)), param("b", tp.I64)), ret(name("b", tp.I64))),
	}}, DefaultOptions())
	assert.ErrorContains(t, err, "required parameter b after optional")

	_, err = Module(testContext(), &ast.Module{Funcs: []*ast.Func{
		fn("f", tp.None, nil), fn("f", tp.None, nil),
	}}, DefaultOptions())
	assert.ErrorContains(t, err, "duplicate function: f")

	_, err = Module(testContext(), &ast.Module{}, Options{WordBits: 16})
	assert.ErrorContains(t, err, "unsupported word size: 16")
}
