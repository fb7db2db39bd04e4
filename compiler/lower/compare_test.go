package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/lower/compiler/ast"
	"github.com/slowlang/lower/compiler/ir"
	"github.com/slowlang/lower/compiler/tp"
)

func TestCompareGolden(t *testing.T) {
	g := golden(t)

	m := lowerFuncs(t, 64,
		fn("lt", tp.Bit, params(param("a", tp.Int), param("b", tp.Int)),
			ret(cmpx("<", name("a", tp.Int), name("b", tp.Int)))),
		fn("both", tp.I64, params(param("x", tp.I64), param("y", tp.I64)),
			ret(&ast.BoolOp{Base: ast.Base{Type: tp.I64}, Op: "and", L: name("x", tp.I64), R: name("y", tp.I64)})),
	)

	g.Assert(t, "tagged_lt", []byte(text(m.Funcs[0])))
	g.Assert(t, "and_or", []byte(text(m.Funcs[1])))
}

func TestCompareTaggedImmediate(t *testing.T) {
	m := lowerFuncs(t, 64, fn("f", tp.Bit, params(param("a", tp.Int)),
		ret(cmpx("==", name("a", tp.Int), lit(7, tp.Int)))))

	f := m.Funcs[0]

	// only a is tested for the inline bit
	iops := ops[ir.IntOp](f)
	require.Len(t, iops, 1)
	assert.Equal(t, ir.IntOp{Dst: iops[0].Dst, Op: ir.And, L: ir.Reg(0), R: ir.Imm{V: 1, Type: tp.I64}}, iops[0])

	calls := ops[ir.CallRT](f)
	require.Len(t, calls, 1)
	assert.Equal(t, "rt_int_eq", calls[0].Fn.Name)
}

func TestCompareMixed(t *testing.T) {
	m := lowerFuncs(t, 64, fn("f", tp.Bit, params(param("a", tp.I32), param("b", tp.I64)),
		ret(cmpx(">=", name("a", tp.I32), name("b", tp.I64)))))

	assert.Equal(t, `def f(a: i32, b: i64) -> bit:
    a :: i32
    b, r0 :: i64
    r1 :: bit
L0:
    r0 = extend signed a: i32 to i64
    r1 = r0 >= b :: signed
    return r1
`, text(m.Funcs[0]))
}

func TestCompareNativeTagged(t *testing.T) {
	m := lowerFuncs(t, 64, fn("f", tp.Bit, params(param("a", tp.I64), param("b", tp.Int)),
		ret(cmpx("<", name("a", tp.I64), name("b", tp.Int)))))

	f := m.Funcs[0]

	cmps := ops[ir.Cmp](f)
	require.NotEmpty(t, cmps)

	last := cmps[len(cmps)-1]
	assert.Equal(t, ir.Lt, last.Op)
	assert.True(t, last.Signed)
	assert.Equal(t, ir.Reg(0), last.L)
	assert.Equal(t, tp.I64, f.TypeOf(last.R))
}

func TestCompareObjects(t *testing.T) {
	m := lowerFuncs(t, 64,
		fn("eq", tp.Bit, params(param("a", tp.Object), param("b", tp.Object)),
			ret(cmpx("==", name("a", tp.Object), name("b", tp.Object)))),
		fn("isnone", tp.Bit, params(param("a", tp.Optional(tp.I64))),
			ret(cmpx("is", name("a", tp.Optional(tp.I64)), &ast.NoneLit{Base: ast.Base{Type: tp.None}}))),
		fn("notnone", tp.Bit, params(param("a", tp.Object)),
			ret(cmpx("is not", name("a", tp.Object), &ast.NoneLit{Base: ast.Base{Type: tp.None}}))),
	)

	assert.Equal(t, `def eq(a: object, b: object) -> bit:
    a, b :: object
    r0 :: bit
L0:
    r0 = rt_object_eq(a, b)
    return r0
`, text(m.Funcs[0]))

	assert.Equal(t, `def isnone(a: optional[i64]) -> bit:
    a :: optional[i64]
    r0 :: bit
L0:
    r0 = rt_is_none(a)
    return r0
`, text(m.Funcs[1]))

	assert.Equal(t, `def notnone(a: object) -> bit:
    a :: object
    r0, r1 :: bit
L0:
    r0 = rt_is_none(a)
    r1 = r0 == 0
    return r1
`, text(m.Funcs[2]))
}

func TestTruth(t *testing.T) {
	for _, tc := range []struct {
		T   tp.Type
		Exp string
	}{
		{tp.I64, "r0 = x != 0"},
		{tp.Int, "r0 = x != 0"},
		{tp.Object, "r0 = rt_object_bool(x)"},
		{tp.List, "r0 = rt_object_bool(x)"},
	} {
		m := lowerFuncs(t, 64, fn("f", tp.I64, params(param("x", tc.T)),
			&ast.If{Clauses: []ast.Clause{{Cond: name("x", tc.T), Body: []ast.Stmt{ret(lit(1, tp.I64))}}}},
			ret(lit(0, tp.I64)),
		))

		assert.Contains(t, text(m.Funcs[0]), "L0:\n    "+tc.Exp+"\n", "%v", tc.T)
	}
}

func TestOrShortCircuit(t *testing.T) {
	m := lowerFuncs(t, 64,
		fn("g", tp.Object, nil, ret(&ast.NoneLit{Base: ast.Base{Type: tp.Object}})),
		fn("f", tp.Object, params(param("x", tp.Object)),
			ret(&ast.BoolOp{Base: ast.Base{Type: tp.Object}, Op: "or", L: name("x", tp.Object), R: call("g", tp.Object)})),
	)

	f := m.Funcs[1]

	// the call happens only in the block the false edge leads to
	br, ok := f.Blocks[0].Term.(ir.Branch)
	require.True(t, ok)

	assert.Empty(t, ops[ir.Call](&ir.Func{Blocks: []*ir.Block{br.True}}))
	assert.Len(t, ops[ir.Call](&ir.Func{Blocks: []*ir.Block{br.False}}), 1)
}
