package front

import (
	"gopkg.in/yaml.v3"

	"github.com/slowlang/lower/compiler/ast"
)

var stmtKinds = []string{"assign", "setattr", "setitem", "return", "if", "for", "while", "expr"}

func (f fields) stmts(n *yaml.Node, k string) ([]ast.Stmt, error) {
	l, err := f.list(n, k)
	if err != nil {
		return nil, err
	}

	var r []ast.Stmt

	for _, s := range l {
		x, err := stmt(s)
		if err != nil {
			return nil, err
		}

		r = append(r, x)
	}

	return r, nil
}

func stmt(n *yaml.Node) (ast.Stmt, error) {
	if n.Kind == yaml.ScalarNode {
		switch n.Value {
		case "break":
			return &ast.Break{}, nil
		case "continue":
			return &ast.Continue{}, nil
		case "pass":
			return &ast.Pass{}, nil
		}

		return nil, nodeErr(n, "unknown statement %q", n.Value)
	}

	f, err := mapping(n, append(stmtKinds, "type", "value", "obj", "index", "else", "start", "stop", "body")...)
	if err != nil {
		return nil, err
	}

	k, err := f.kind(n, "statement", stmtKinds...)
	if err != nil {
		return nil, err
	}

	switch k {
	case "assign":
		return assign(n, f)
	case "setattr":
		return setAttr(n, f)
	case "setitem":
		return setItem(n, f)
	case "return":
		return ret(f)
	case "if":
		return ifStmt(n, f)
	case "for":
		return forRange(n, f)
	case "while":
		return while(n, f)
	default:
		x, err := f.expr(n, "expr")
		if err != nil {
			return nil, err
		}

		return &ast.ExprStmt{X: x}, nil
	}
}

func assign(n *yaml.Node, f fields) (s *ast.Assign, err error) {
	s = &ast.Assign{}

	s.Target, err = f.str(n, "assign")
	if err != nil {
		return nil, err
	}

	s.Type, err = f.typ("type")
	if err != nil {
		return nil, err
	}

	s.Value, err = f.expr(n, "value")
	if err != nil {
		return nil, err
	}

	return s, nil
}

func setAttr(n *yaml.Node, f fields) (s *ast.SetAttr, err error) {
	s = &ast.SetAttr{}

	s.Attr, err = f.str(n, "setattr")
	if err != nil {
		return nil, err
	}

	s.Obj, err = f.expr(n, "obj")
	if err != nil {
		return nil, err
	}

	s.Value, err = f.expr(n, "value")
	if err != nil {
		return nil, err
	}

	return s, nil
}

// setItem is spelled with the list as the value of the setitem key.
func setItem(n *yaml.Node, f fields) (s *ast.SetItem, err error) {
	s = &ast.SetItem{}

	s.Obj, err = f.expr(n, "setitem")
	if err != nil {
		return nil, err
	}

	s.Index, err = f.expr(n, "index")
	if err != nil {
		return nil, err
	}

	s.Value, err = f.expr(n, "value")
	if err != nil {
		return nil, err
	}

	return s, nil
}

func ret(f fields) (s *ast.Return, err error) {
	v := f["return"]
	if v.Kind == yaml.ScalarNode && v.Tag == "!!null" {
		return &ast.Return{}, nil
	}

	x, err := expr(v)
	if err != nil {
		return nil, err
	}

	return &ast.Return{Value: x}, nil
}

func ifStmt(n *yaml.Node, f fields) (s *ast.If, err error) {
	clauses, err := f.list(n, "if")
	if err != nil {
		return nil, err
	}

	if len(clauses) == 0 {
		return nil, nodeErr(n, "if without clauses")
	}

	s = &ast.If{}

	for _, c := range clauses {
		cf, err := mapping(c, "cond", "body")
		if err != nil {
			return nil, err
		}

		cond, err := cf.expr(c, "cond")
		if err != nil {
			return nil, err
		}

		body, err := cf.stmts(c, "body")
		if err != nil {
			return nil, err
		}

		s.Clauses = append(s.Clauses, ast.Clause{Cond: cond, Body: body})
	}

	s.Else, err = f.stmts(n, "else")
	if err != nil {
		return nil, err
	}

	return s, nil
}

func forRange(n *yaml.Node, f fields) (s *ast.ForRange, err error) {
	s = &ast.ForRange{}

	s.Var, err = f.str(n, "for")
	if err != nil {
		return nil, err
	}

	s.Type, err = f.typ("type")
	if err != nil {
		return nil, err
	}

	s.Start, err = f.expr(n, "start")
	if err != nil {
		return nil, err
	}

	s.Stop, err = f.expr(n, "stop")
	if err != nil {
		return nil, err
	}

	s.Body, err = f.stmts(n, "body")
	if err != nil {
		return nil, err
	}

	return s, nil
}

func while(n *yaml.Node, f fields) (s *ast.While, err error) {
	s = &ast.While{}

	s.Cond, err = f.expr(n, "while")
	if err != nil {
		return nil, err
	}

	s.Body, err = f.stmts(n, "body")
	if err != nil {
		return nil, err
	}

	return s, nil
}
