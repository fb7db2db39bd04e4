// Package front loads a typed tree from its YAML text.
//
// The text is what the type checker hands over: every expression carries
// its inferred type. A module is a mapping of classes and funcs:
//
//	funcs:
//	  - name: add
//	    params:
//	      - {name: x, type: i64}
//	      - {name: y, type: int, default: {int: 1}}
//	    ret: i64
//	    body:
//	      - return: {bin: +, type: i64, l: {name: x, type: i64}, r: {name: y, type: int}}
//
// Unknown keys are errors, so are nodes which are not exactly one statement
// or expression kind.
package front

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/lower/compiler/ast"
	"github.com/slowlang/lower/compiler/tp"
)

type (
	// fields is a checked mapping node.
	fields map[string]*yaml.Node

	// Error locates a malformed node.
	Error struct {
		Line, Column int
		Msg          string
	}
)

func (e *Error) Error() string {
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Msg)
}

// LoadFile reads and parses the file name.
func LoadFile(ctx context.Context, name string) (*ast.Module, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Parse(ctx, text)
}

// Parse decodes a module from text.
func Parse(ctx context.Context, text []byte) (m *ast.Module, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "front: parse", "size", len(text))
	defer tr.Finish("err", &err)

	var doc yaml.Node

	err = yaml.Unmarshal(text, &doc)
	if err != nil {
		return nil, errors.Wrap(err, "yaml")
	}

	if doc.Kind == 0 {
		return &ast.Module{}, nil
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, nodeErr(&doc, "expected a single document")
	}

	m, err = module(doc.Content[0])
	if err != nil {
		return nil, err
	}

	if tr.If("front_dump") {
		tr.Printw("module", "classes", len(m.Classes), "funcs", len(m.Funcs))
	}

	return m, nil
}

func nodeErr(n *yaml.Node, format string, args ...any) error {
	return &Error{
		Line:   n.Line,
		Column: n.Column,
		Msg:    fmt.Sprintf(format, args...),
	}
}

func mapping(n *yaml.Node, known ...string) (fields, error) {
	if n.Kind != yaml.MappingNode {
		return nil, nodeErr(n, "expected a mapping")
	}

	f := make(fields, len(n.Content)/2)

	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]

		if !contains(known, k.Value) {
			return nil, nodeErr(k, "unknown key %q", k.Value)
		}

		if _, ok := f[k.Value]; ok {
			return nil, nodeErr(k, "duplicate key %q", k.Value)
		}

		f[k.Value] = v
	}

	return f, nil
}

func contains(l []string, s string) bool {
	for _, x := range l {
		if x == s {
			return true
		}
	}

	return false
}

// kind picks the one key of f naming the node kind.
func (f fields) kind(n *yaml.Node, what string, kinds ...string) (string, error) {
	var k string

	for _, x := range kinds {
		if _, ok := f[x]; !ok {
			continue
		}

		if k != "" {
			return "", nodeErr(n, "%v is both %v and %v", what, k, x)
		}

		k = x
	}

	if k == "" {
		return "", nodeErr(n, "%v kind not given", what)
	}

	return k, nil
}

func (f fields) has(k string) bool {
	_, ok := f[k]
	return ok
}

func (f fields) str(n *yaml.Node, k string) (string, error) {
	v, ok := f[k]
	if !ok {
		return "", nodeErr(n, "%v is required", k)
	}

	if v.Kind != yaml.ScalarNode || v.Value == "" {
		return "", nodeErr(v, "%v: expected a non-empty string", k)
	}

	return v.Value, nil
}

func (f fields) int(n *yaml.Node, k string) (x int64, err error) {
	v, ok := f[k]
	if !ok {
		return 0, nodeErr(n, "%v is required", k)
	}

	err = v.Decode(&x)
	if err != nil {
		return 0, nodeErr(v, "%v: expected an integer", k)
	}

	return x, nil
}

// typ reads an optional type. Missing types are Invalid.
func (f fields) typ(k string) (tp.Type, error) {
	v, ok := f[k]
	if !ok {
		return tp.Type{}, nil
	}

	t, err := tp.Parse(v.Value)
	if err != nil {
		return tp.Type{}, nodeErr(v, "%v", err)
	}

	return t, nil
}

func (f fields) list(n *yaml.Node, k string) ([]*yaml.Node, error) {
	v, ok := f[k]
	if !ok {
		return nil, nil
	}

	switch v.Kind {
	case yaml.SequenceNode:
		return v.Content, nil
	case yaml.ScalarNode:
		if v.Tag == "!!null" {
			return nil, nil
		}
	}

	return nil, nodeErr(v, "%v: expected a list", k)
}

func module(n *yaml.Node) (*ast.Module, error) {
	f, err := mapping(n, "classes", "funcs")
	if err != nil {
		return nil, err
	}

	m := &ast.Module{}

	classes, err := f.list(n, "classes")
	if err != nil {
		return nil, err
	}

	for _, c := range classes {
		x, err := class(c)
		if err != nil {
			return nil, err
		}

		m.Classes = append(m.Classes, x)
	}

	funcs, err := f.list(n, "funcs")
	if err != nil {
		return nil, err
	}

	for _, fn := range funcs {
		x, err := function(fn)
		if err != nil {
			return nil, err
		}

		m.Funcs = append(m.Funcs, x)
	}

	return m, nil
}

func class(n *yaml.Node) (c *ast.Class, err error) {
	f, err := mapping(n, "name", "attrs", "methods")
	if err != nil {
		return nil, err
	}

	c = &ast.Class{}

	c.Name, err = f.str(n, "name")
	if err != nil {
		return nil, err
	}

	attrs, err := f.list(n, "attrs")
	if err != nil {
		return nil, err
	}

	for _, a := range attrs {
		af, err := mapping(a, "name", "type")
		if err != nil {
			return nil, err
		}

		name, err := af.str(a, "name")
		if err != nil {
			return nil, err
		}

		t, err := af.typ("type")
		if err != nil {
			return nil, err
		}

		if t.Kind == tp.Invalid {
			return nil, nodeErr(a, "attr %v: type is required", name)
		}

		c.Attrs = append(c.Attrs, ast.Attr{Name: name, Type: t})
	}

	methods, err := f.list(n, "methods")
	if err != nil {
		return nil, err
	}

	for _, m := range methods {
		fn, err := function(m)
		if err != nil {
			return nil, errors.Wrap(err, "class %v", c.Name)
		}

		c.Methods = append(c.Methods, fn)
	}

	return c, nil
}

func function(n *yaml.Node) (fn *ast.Func, err error) {
	f, err := mapping(n, "name", "params", "ret", "body")
	if err != nil {
		return nil, err
	}

	fn = &ast.Func{}

	fn.Name, err = f.str(n, "name")
	if err != nil {
		return nil, err
	}

	fn.Ret, err = f.typ("ret")
	if err != nil {
		return nil, err
	}

	params, err := f.list(n, "params")
	if err != nil {
		return nil, err
	}

	for _, p := range params {
		pf, err := mapping(p, "name", "type", "default")
		if err != nil {
			return nil, err
		}

		var x ast.Param

		x.Name, err = pf.str(p, "name")
		if err != nil {
			return nil, err
		}

		x.Type, err = pf.typ("type")
		if err != nil {
			return nil, err
		}

		if x.Type.Kind == tp.Invalid {
			return nil, nodeErr(p, "param %v: type is required", x.Name)
		}

		if d, ok := pf["default"]; ok {
			x.Default, err = expr(d)
			if err != nil {
				return nil, err
			}
		}

		fn.Params = append(fn.Params, x)
	}

	fn.Body, err = f.stmts(n, "body")
	if err != nil {
		return nil, errors.Wrap(err, "func %v", fn.Name)
	}

	return fn, nil
}
