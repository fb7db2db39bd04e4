// Package ast is the typed tree handed over by the type checker.
// Every expression carries its already inferred Value Type.
package ast

import "github.com/slowlang/lower/compiler/tp"

type (
	Module struct {
		Classes []*Class
		Funcs   []*Func
	}

	Class struct {
		Name    string
		Attrs   []Attr
		Methods []*Func
	}

	Attr struct {
		Name string
		Type tp.Type
	}

	Func struct {
		Name   string
		Params []Param
		Ret    tp.Type
		Body   []Stmt
	}

	// Param with a non-nil Default is optional.
	Param struct {
		Name    string
		Type    tp.Type
		Default Expr
	}

	Stmt interface {
		stmt()
	}

	Expr interface {
		Typ() tp.Type
	}

	Assign struct {
		Target string
		Type   tp.Type
		Value  Expr
	}

	SetAttr struct {
		Obj   Expr
		Attr  string
		Value Expr
	}

	SetItem struct {
		Obj   Expr
		Index Expr
		Value Expr
	}

	Return struct {
		Value Expr
	}

	// If is an if/elif chain. Else may be empty.
	If struct {
		Clauses []Clause
		Else    []Stmt
	}

	Clause struct {
		Cond Expr
		Body []Stmt
	}

	// ForRange iterates Var over [Start, Stop) in steps of one.
	ForRange struct {
		Var   string
		Type  tp.Type
		Start Expr
		Stop  Expr
		Body  []Stmt
	}

	While struct {
		Cond Expr
		Body []Stmt
	}

	Break    struct{}
	Continue struct{}
	Pass     struct{}

	ExprStmt struct {
		X Expr
	}

	Base struct {
		Type tp.Type
	}

	Name struct {
		Base
		Name string
	}

	IntLit struct {
		Base
		V int64
	}

	BoolLit struct {
		Base
		V bool
	}

	NoneLit struct {
		Base
	}

	BinOp struct {
		Base
		Op   string
		L, R Expr
	}

	UnaryOp struct {
		Base
		Op string
		X  Expr
	}

	Compare struct {
		Base
		Op   string
		L, R Expr
	}

	// BoolOp is a short-circuit "and" or "or".
	BoolOp struct {
		Base
		Op   string
		L, R Expr
	}

	Call struct {
		Base
		Func   string
		Args   []Expr
		Kwargs []Kwarg
	}

	MethodCall struct {
		Base
		Obj    Expr
		Class  string
		Method string
		Args   []Expr
		Kwargs []Kwarg
	}

	Kwarg struct {
		Name  string
		Value Expr
	}

	AttrRef struct {
		Base
		Obj  Expr
		Attr string
	}

	// Index is a list element read.
	Index struct {
		Base
		Obj   Expr
		Index Expr
	}

	Len struct {
		Base
		X Expr
	}

	TupleLit struct {
		Base
		Items []Expr
	}

	TupleItem struct {
		Base
		X     Expr
		Index int
	}

	// Convert is an explicit conversion to Type.
	Convert struct {
		Base
		X Expr
	}
)

func (b Base) Typ() tp.Type { return b.Type }

func (*Assign) stmt()   {}
func (*SetAttr) stmt()  {}
func (*SetItem) stmt()  {}
func (*Return) stmt()   {}
func (*If) stmt()       {}
func (*ForRange) stmt() {}
func (*While) stmt()    {}
func (*Break) stmt()    {}
func (*Continue) stmt() {}
func (*Pass) stmt()     {}
func (*ExprStmt) stmt() {}

func (c *Class) Method(name string) *Func {
	for _, m := range c.Methods {
		if m.Name == name {
			return m
		}
	}

	return nil
}

func (m *Module) Class(name string) *Class {
	for _, c := range m.Classes {
		if c.Name == name {
			return c
		}
	}

	return nil
}
