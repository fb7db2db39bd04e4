package front

import (
	"gopkg.in/yaml.v3"

	"github.com/slowlang/lower/compiler/ast"
)

var exprKinds = []string{
	"name", "int", "bool", "none",
	"bin", "unary", "cmp", "boolop",
	"call", "method", "attr", "index", "len",
	"tuple", "item", "convert",
}

var exprKeys = append(exprKinds, "type", "l", "r", "x", "obj", "class", "args", "kwargs")

func (f fields) expr(n *yaml.Node, k string) (ast.Expr, error) {
	v, ok := f[k]
	if !ok {
		return nil, nodeErr(n, "%v is required", k)
	}

	return expr(v)
}

func (f fields) exprs(n *yaml.Node, k string) ([]ast.Expr, error) {
	l, err := f.list(n, k)
	if err != nil {
		return nil, err
	}

	var r []ast.Expr

	for _, x := range l {
		e, err := expr(x)
		if err != nil {
			return nil, err
		}

		r = append(r, e)
	}

	return r, nil
}

func expr(n *yaml.Node) (e ast.Expr, err error) {
	f, err := mapping(n, exprKeys...)
	if err != nil {
		return nil, err
	}

	k, err := f.kind(n, "expression", exprKinds...)
	if err != nil {
		return nil, err
	}

	t, err := f.typ("type")
	if err != nil {
		return nil, err
	}

	base := ast.Base{Type: t}

	switch k {
	case "name":
		x := &ast.Name{Base: base}
		x.Name, err = f.str(n, "name")

		return x, err
	case "int":
		x := &ast.IntLit{Base: base}
		x.V, err = f.int(n, "int")

		return x, err
	case "bool":
		x := &ast.BoolLit{Base: base}

		err = f["bool"].Decode(&x.V)
		if err != nil {
			return nil, nodeErr(f["bool"], "bool: expected true or false")
		}

		return x, nil
	case "none":
		return &ast.NoneLit{Base: base}, nil
	case "bin", "cmp", "boolop":
		op, err := f.str(n, k)
		if err != nil {
			return nil, err
		}

		l, err := f.expr(n, "l")
		if err != nil {
			return nil, err
		}

		r, err := f.expr(n, "r")
		if err != nil {
			return nil, err
		}

		switch k {
		case "bin":
			return &ast.BinOp{Base: base, Op: op, L: l, R: r}, nil
		case "cmp":
			return &ast.Compare{Base: base, Op: op, L: l, R: r}, nil
		default:
			return &ast.BoolOp{Base: base, Op: op, L: l, R: r}, nil
		}
	case "unary":
		x := &ast.UnaryOp{Base: base}

		x.Op, err = f.str(n, "unary")
		if err != nil {
			return nil, err
		}

		x.X, err = f.expr(n, "x")
		if err != nil {
			return nil, err
		}

		return x, nil
	case "call":
		x := &ast.Call{Base: base}

		x.Func, err = f.str(n, "call")
		if err != nil {
			return nil, err
		}

		x.Args, x.Kwargs, err = f.args(n)
		if err != nil {
			return nil, err
		}

		return x, nil
	case "method":
		x := &ast.MethodCall{Base: base}

		x.Method, err = f.str(n, "method")
		if err != nil {
			return nil, err
		}

		x.Class, err = f.str(n, "class")
		if err != nil {
			return nil, err
		}

		x.Obj, err = f.expr(n, "obj")
		if err != nil {
			return nil, err
		}

		x.Args, x.Kwargs, err = f.args(n)
		if err != nil {
			return nil, err
		}

		return x, nil
	case "attr":
		x := &ast.AttrRef{Base: base}

		x.Attr, err = f.str(n, "attr")
		if err != nil {
			return nil, err
		}

		x.Obj, err = f.expr(n, "obj")
		if err != nil {
			return nil, err
		}

		return x, nil
	case "index":
		x := &ast.Index{Base: base}

		x.Index, err = f.expr(n, "index")
		if err != nil {
			return nil, err
		}

		x.Obj, err = f.expr(n, "obj")
		if err != nil {
			return nil, err
		}

		return x, nil
	case "len":
		x := &ast.Len{Base: base}
		x.X, err = f.expr(n, "len")

		return x, err
	case "tuple":
		x := &ast.TupleLit{Base: base}
		x.Items, err = f.exprs(n, "tuple")

		return x, err
	case "item":
		x := &ast.TupleItem{Base: base}

		i, err := f.int(n, "item")
		if err != nil {
			return nil, err
		}

		x.Index = int(i)

		x.X, err = f.expr(n, "x")
		if err != nil {
			return nil, err
		}

		return x, nil
	default:
		x := &ast.Convert{Base: base}
		x.X, err = f.expr(n, "convert")

		return x, err
	}
}

// args reads positional args and keyword args in their written order.
func (f fields) args(n *yaml.Node) (args []ast.Expr, kw []ast.Kwarg, err error) {
	args, err = f.exprs(n, "args")
	if err != nil {
		return nil, nil, err
	}

	v, ok := f["kwargs"]
	if !ok {
		return args, nil, nil
	}

	if v.Kind != yaml.MappingNode {
		return nil, nil, nodeErr(v, "kwargs: expected a mapping")
	}

	for i := 0; i+1 < len(v.Content); i += 2 {
		x, err := expr(v.Content[i+1])
		if err != nil {
			return nil, nil, err
		}

		kw = append(kw, ast.Kwarg{Name: v.Content[i].Value, Value: x})
	}

	return args, kw, nil
}
