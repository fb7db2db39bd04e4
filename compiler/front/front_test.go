package front

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/lower/compiler/ast"
	"github.com/slowlang/lower/compiler/tp"
)

func TestParse(t *testing.T) {
	m, err := Parse(context.Background(), []byte(`
classes:
  - name: Node
    attrs:
      - {name: next, type: object}
      - {name: val, type: i64}
    methods:
      - name: get
        params: [{name: self, type: object}]
        ret: i64
        body:
          - return: {attr: val, type: i64, obj: {name: self, type: object}}
funcs:
  - name: add
    params:
      - {name: x, type: i64}
      - {name: y, type: int, default: {int: 1, type: int}}
    ret: i64
    body:
      - assign: s
        type: i64
        value: {bin: +, type: i64, l: {name: x, type: i64}, r: {name: y, type: int}}
      - if:
          - cond: {cmp: <, type: bit, l: {name: s, type: i64}, r: {int: 0, type: i64}}
            body: [{return: {int: 0, type: i64}}]
        else: [pass]
      - for: i
        type: i64
        start: {int: 0, type: i64}
        stop: {name: x, type: i64}
        body: [continue]
      - while: {bool: true}
        body: [break]
      - return: {call: add, type: i64, args: [{name: s, type: i64}], kwargs: {y: {int: 2, type: int}}}
  - name: nothing
    body:
      - return:
`))
	require.NoError(t, err)

	i64 := func(n string) *ast.Name { return &ast.Name{Base: ast.Base{Type: tp.I64}, Name: n} }
	ilit := func(v int64, typ tp.Type) *ast.IntLit { return &ast.IntLit{Base: ast.Base{Type: typ}, V: v} }

	exp := &ast.Module{
		Classes: []*ast.Class{{
			Name:  "Node",
			Attrs: []ast.Attr{{Name: "next", Type: tp.Object}, {Name: "val", Type: tp.I64}},
			Methods: []*ast.Func{{
				Name:   "get",
				Params: []ast.Param{{Name: "self", Type: tp.Object}},
				Ret:    tp.I64,
				Body: []ast.Stmt{
					&ast.Return{Value: &ast.AttrRef{Base: ast.Base{Type: tp.I64}, Attr: "val",
						Obj: &ast.Name{Base: ast.Base{Type: tp.Object}, Name: "self"}}},
				},
			}},
		}},
		Funcs: []*ast.Func{{
			Name: "add",
			Params: []ast.Param{
				{Name: "x", Type: tp.I64},
				{Name: "y", Type: tp.Int, Default: ilit(1, tp.Int)},
			},
			Ret: tp.I64,
			Body: []ast.Stmt{
				&ast.Assign{Target: "s", Type: tp.I64, Value: &ast.BinOp{Base: ast.Base{Type: tp.I64}, Op: "+",
					L: i64("x"), R: &ast.Name{Base: ast.Base{Type: tp.Int}, Name: "y"}}},
				&ast.If{
					Clauses: []ast.Clause{{
						Cond: &ast.Compare{Base: ast.Base{Type: tp.Bit}, Op: "<", L: i64("s"), R: ilit(0, tp.I64)},
						Body: []ast.Stmt{&ast.Return{Value: ilit(0, tp.I64)}},
					}},
					Else: []ast.Stmt{&ast.Pass{}},
				},
				&ast.ForRange{Var: "i", Type: tp.I64, Start: ilit(0, tp.I64), Stop: i64("x"), Body: []ast.Stmt{&ast.Continue{}}},
				&ast.While{Cond: &ast.BoolLit{V: true}, Body: []ast.Stmt{&ast.Break{}}},
				&ast.Return{Value: &ast.Call{Base: ast.Base{Type: tp.I64}, Func: "add",
					Args:   []ast.Expr{i64("s")},
					Kwargs: []ast.Kwarg{{Name: "y", Value: ilit(2, tp.Int)}},
				}},
			},
		}, {
			Name: "nothing",
			Body: []ast.Stmt{&ast.Return{}},
		}},
	}

	assert.Equal(t, exp, m)
}

func TestParseExpressions(t *testing.T) {
	m, err := Parse(context.Background(), []byte(`
funcs:
  - name: f
    params: [{name: l, type: list}, {name: o, type: object}]
    ret: object
    body:
      - setitem: {name: l, type: list}
        index: {int: 0, type: i64}
        value: {none: true, type: none}
      - setattr: val
        obj: {name: o, type: object}
        value: {unary: "-", type: i64, x: {int: 3, type: i64}}
      - expr: {method: get, class: Node, type: i64, obj: {name: o, type: object}}
      - assign: t
        value: {tuple: [{int: 1, type: i64}, {len: {name: l, type: list}, type: int}], type: "tuple[i64, int]"}
      - return:
          boolop: or
          type: object
          l: {index: {item: 1, x: {name: t, type: "tuple[i64, int]"}, type: int}, obj: {name: l, type: list}, type: object}
          r: {convert: {name: o, type: object}, type: "optional[i64]"}
`))
	require.NoError(t, err)
	require.Len(t, m.Funcs, 1)

	body := m.Funcs[0].Body
	require.Len(t, body, 5)

	si := body[0].(*ast.SetItem)
	assert.Equal(t, &ast.NoneLit{Base: ast.Base{Type: tp.None}}, si.Value)

	sa := body[1].(*ast.SetAttr)
	assert.Equal(t, "val", sa.Attr)
	assert.Equal(t, "-", sa.Value.(*ast.UnaryOp).Op)

	mc := body[2].(*ast.ExprStmt).X.(*ast.MethodCall)
	assert.Equal(t, "Node", mc.Class)
	assert.Equal(t, "get", mc.Method)

	as := body[3].(*ast.Assign)
	assert.Equal(t, tp.Type{}, as.Type)
	assert.Equal(t, tp.Tuple(tp.I64, tp.Int), as.Value.Typ())

	bo := body[4].(*ast.Return).Value.(*ast.BoolOp)
	assert.Equal(t, "or", bo.Op)
	assert.Equal(t, 1, bo.L.(*ast.Index).Index.(*ast.TupleItem).Index)
	assert.Equal(t, tp.Optional(tp.I64), bo.R.(*ast.Convert).Type)
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		Name string
		Text string
		Line int
		Msg  string
	}{
		{"unknown_key", "funcs:\n  - name: f\n    bodyy: []\n", 3, `unknown key "bodyy"`},
		{"two_kinds", "funcs:\n  - name: f\n    body:\n      - return: {int: 1, name: x}\n", 4, "expression is both name and int"},
		{"no_kind", "funcs:\n  - name: f\n    body:\n      - return: {type: i64}\n", 4, "expression kind not given"},
		{"bad_type", "funcs:\n  - name: f\n    ret: u8\n", 3, "unknown type: u8"},
		{"bad_stmt", "funcs:\n  - name: f\n    body: [jump]\n", 3, `unknown statement "jump"`},
		{"param_type", "funcs:\n  - name: f\n    params: [{name: x}]\n", 3, "param x: type is required"},
		{"not_int", "funcs:\n  - name: f\n    body:\n      - return: {int: abc}\n", 4, "int: expected an integer"},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			_, err := Parse(context.Background(), []byte(tc.Text))

			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tc.Line, e.Line)
			assert.Contains(t, e.Msg, tc.Msg)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	m, err := Parse(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, &ast.Module{}, m)
}
