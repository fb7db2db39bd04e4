package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/lower/compiler/ast"
	"github.com/slowlang/lower/compiler/ir"
	"github.com/slowlang/lower/compiler/tp"
)

func sign() *ast.Func {
	x := func() ast.Expr { return name("x", tp.I64) }

	return fn("sign", tp.I64, params(param("x", tp.I64)),
		&ast.If{
			Clauses: []ast.Clause{
				{Cond: cmpx("<", x(), lit(0, tp.I64)), Body: []ast.Stmt{ret(lit(-1, tp.I64))}},
				{Cond: cmpx(">", x(), lit(0, tp.I64)), Body: []ast.Stmt{ret(lit(1, tp.I64))}},
			},
			Else: []ast.Stmt{ret(lit(0, tp.I64))},
		},
	)
}

func rangeSum() *ast.Func {
	return fn("sum", tp.I64, params(param("n", tp.I64)),
		&ast.Assign{Target: "t", Type: tp.I64, Value: lit(0, tp.I64)},
		&ast.ForRange{Var: "i", Type: tp.I64, Start: lit(0, tp.I64), Stop: name("n", tp.I64), Body: []ast.Stmt{
			&ast.Assign{Target: "t", Type: tp.I64, Value: bin("+", tp.I64, name("t", tp.I64), name("i", tp.I64))},
		}},
		ret(name("t", tp.I64)),
	)
}

func TestControlGolden(t *testing.T) {
	g := golden(t)

	m := lowerFuncs(t, 64, sign(), rangeSum())

	g.Assert(t, "if_elif_else", []byte(text(m.Funcs[0])))
	g.Assert(t, "range_sum", []byte(text(m.Funcs[1])))
}

func TestIfAllArmsReturn(t *testing.T) {
	m := lowerFuncs(t, 64, sign())

	f := m.Funcs[0]

	require.Len(t, f.Blocks, 5)
	assert.Empty(t, ops[ir.Unreachable](f))

	preds := map[*ir.Block]int{}
	for _, b := range f.Blocks {
		for _, s := range b.Term.Succ() {
			preds[s]++
		}
	}

	for i, b := range f.Blocks[1:] {
		assert.Equal(t, 1, preds[b], "L%d", i+1)
	}
}

func TestIfChainSharesJoin(t *testing.T) {
	x := func() ast.Expr { return name("x", tp.I64) }

	var clauses []ast.Clause
	for i := int64(0); i < 4; i++ {
		clauses = append(clauses, ast.Clause{
			Cond: cmpx("==", x(), lit(i, tp.I64)),
			Body: []ast.Stmt{&ast.Assign{Target: "y", Type: tp.I64, Value: lit(i*10, tp.I64)}},
		})
	}

	m := lowerFuncs(t, 64, fn("f", tp.I64, params(param("x", tp.I64)),
		&ast.Assign{Target: "y", Type: tp.I64, Value: lit(-1, tp.I64)},
		&ast.If{Clauses: clauses},
		ret(name("y", tp.I64)),
	))

	f := m.Funcs[0]

	assert.Len(t, ops[ir.Cmp](f), 4)

	join := f.Blocks[len(f.Blocks)-1]
	assert.Equal(t, ir.Return{Value: ir.Reg(1)}, join.Term)

	preds := 0
	for _, b := range f.Blocks {
		for _, s := range b.Term.Succ() {
			if s == join {
				preds++
			}
		}
	}

	// four arms plus the false edge of the last test
	assert.Equal(t, 5, preds)
}

func TestWhileBreakContinue(t *testing.T) {
	i := func() ast.Expr { return name("i", tp.I64) }

	m := lowerFuncs(t, 64, fn("f", tp.I64, params(param("n", tp.I64)),
		&ast.Assign{Target: "i", Type: tp.I64, Value: lit(0, tp.I64)},
		&ast.While{Cond: &ast.BoolLit{Base: ast.Base{Type: tp.Bit}, V: true}, Body: []ast.Stmt{
			&ast.Assign{Target: "i", Type: tp.I64, Value: bin("+", tp.I64, i(), lit(1, tp.I64))},
			&ast.If{Clauses: []ast.Clause{{Cond: cmpx("<", i(), lit(3, tp.I64)), Body: []ast.Stmt{&ast.Continue{}}}}},
			&ast.If{Clauses: []ast.Clause{{Cond: cmpx(">=", i(), name("n", tp.I64)), Body: []ast.Stmt{&ast.Break{}}}}},
		}},
		ret(i()),
	))

	assert.Equal(t, `def f(n: i64) -> i64:
    n, i, r0 :: i64
    r1, r2 :: bit
L0:
    i = 0
    goto L1
L1:
    if 1 goto L2 else goto L7
L2:
    r0 = i + 1
    i = r0
    r1 = i < 3 :: signed
    if r1 goto L3 else goto L4
L3:
    goto L1
L4:
    r2 = i >= n :: signed
    if r2 goto L5 else goto L6
L5:
    goto L7
L6:
    goto L1
L7:
    return i
`, text(m.Funcs[0]))
}

func TestDeadCodeAfterReturn(t *testing.T) {
	m := lowerFuncs(t, 64, fn("f", tp.I64, nil,
		ret(lit(1, tp.I64)),
		ret(lit(2, tp.I64)),
		&ast.Assign{Target: "x", Type: tp.I64, Value: lit(3, tp.I64)},
	))

	f := m.Funcs[0]

	require.Len(t, f.Blocks, 1)
	assert.Equal(t, ir.Return{Value: ir.Imm{V: 1, Type: tp.I64}}, f.Blocks[0].Term)
	assert.Empty(t, f.Regs)
}

func TestImplicitReturn(t *testing.T) {
	m := lowerFuncs(t, 64,
		fn("none", tp.None, nil, &ast.Pass{}),
		fn("obj", tp.Object, nil),
		fn("prim", tp.I64, nil),
	)

	assert.Equal(t, `def none() -> none:
    r0 :: none
L0:
    r0 = none
    return r0
`, text(m.Funcs[0]))

	_, ok := m.Funcs[1].Blocks[0].Term.(ir.Return)
	assert.True(t, ok)

	assert.Equal(t, ir.Unreachable{}, m.Funcs[2].Blocks[0].Term)
}

func TestLoopMisuse(t *testing.T) {
	_, err := Module(testContext(), &ast.Module{Funcs: []*ast.Func{
		fn("f", tp.None, nil, &ast.Break{}),
	}}, DefaultOptions())

	var ie *InvariantError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, ie.Msg, "break outside of a loop")
}
