package ir

import (
	"github.com/slowlang/lower/compiler/rt"
)

type (
	Op interface {
		In() []Value
	}

	// Def is an Op producing a register. Out may be Nowhere.
	Def interface {
		Op
		Out() Reg
	}

	Term interface {
		Op
		Succ() []*Block
	}

	IntOpKind int
	CmpKind   int

	Assign struct {
		Dst Reg
		Src Value
	}

	LoadError struct {
		Dst Reg
	}

	LoadNone struct {
		Dst Reg
	}

	IntOp struct {
		Dst  Reg
		Op   IntOpKind
		L, R Value
	}

	Cmp struct {
		Dst    Reg
		Op     CmpKind
		L, R   Value
		Signed bool
	}

	Extend struct {
		Dst    Reg
		Src    Value
		Signed bool
	}

	Truncate struct {
		Dst Reg
		Src Value
	}

	Box struct {
		Dst Reg
		Src Value
	}

	Unbox struct {
		Dst Reg
		Src Value
	}

	CallRT struct {
		Dst  Reg
		Fn   *rt.Func
		Args []Value
	}

	Call struct {
		Dst  Reg
		Fn   string
		Args []Value
	}

	MethodCall struct {
		Dst    Reg
		Obj    Value
		Class  string
		Method string
		Args   []Value
	}

	GetAttr struct {
		Dst    Reg
		Obj    Value
		Attr   string
		Borrow bool
	}

	SetAttr struct {
		Obj  Value
		Attr string
		Src  Value
	}

	GetElementPtr struct {
		Dst   Reg
		Src   Value
		Field string
	}

	LoadMem struct {
		Dst Reg
		Src Value
	}

	TupleSet struct {
		Dst   Reg
		Items []Value
	}

	TupleGet struct {
		Dst   Reg
		Src   Value
		Index int
	}

	KeepAlive struct {
		Values []Value
	}

	Goto struct {
		Target *Block
	}

	// Branch tests Cond, a bit, or whether Cond holds the error value.
	Branch struct {
		Cond        Value
		IsError     bool
		True, False *Block
	}

	Return struct {
		Value Value
	}

	Unreachable struct{}
)

const (
	Add IntOpKind = iota
	Sub
	Mul
	Div
	Mod
	And
	Or
	Xor
	Shl
	Shr
)

const (
	Eq CmpKind = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

var intOpNames = [...]string{
	Add: "+",
	Sub: "-",
	Mul: "*",
	Div: "/",
	Mod: "%",
	And: "&",
	Or:  "|",
	Xor: "^",
	Shl: "<<",
	Shr: ">>",
}

var cmpNames = [...]string{
	Eq: "==",
	Ne: "!=",
	Lt: "<",
	Le: "<=",
	Gt: ">",
	Ge: ">=",
}

func (k IntOpKind) String() string { return intOpNames[k] }
func (k CmpKind) String() string   { return cmpNames[k] }

// Ordered comparisons are sign sensitive.
func (k CmpKind) Ordered() bool { return k >= Lt }

// Negate is the comparison true exactly when k is false.
func (k CmpKind) Negate() CmpKind {
	switch k {
	case Eq:
		return Ne
	case Ne:
		return Eq
	case Lt:
		return Ge
	case Le:
		return Gt
	case Gt:
		return Le
	default:
		return Lt
	}
}

func values(l ...Value) []Value { return l }

func (x Assign) In() []Value        { return values(x.Src) }
func (x LoadError) In() []Value     { return nil }
func (x LoadNone) In() []Value      { return nil }
func (x IntOp) In() []Value         { return values(x.L, x.R) }
func (x Cmp) In() []Value           { return values(x.L, x.R) }
func (x Extend) In() []Value        { return values(x.Src) }
func (x Truncate) In() []Value      { return values(x.Src) }
func (x Box) In() []Value           { return values(x.Src) }
func (x Unbox) In() []Value         { return values(x.Src) }
func (x CallRT) In() []Value        { return x.Args }
func (x Call) In() []Value          { return x.Args }
func (x GetAttr) In() []Value       { return values(x.Obj) }
func (x SetAttr) In() []Value       { return values(x.Obj, x.Src) }
func (x GetElementPtr) In() []Value { return values(x.Src) }
func (x LoadMem) In() []Value       { return values(x.Src) }
func (x TupleSet) In() []Value      { return x.Items }
func (x TupleGet) In() []Value      { return values(x.Src) }
func (x KeepAlive) In() []Value     { return x.Values }
func (x Goto) In() []Value          { return nil }
func (x Branch) In() []Value        { return values(x.Cond) }
func (x Unreachable) In() []Value   { return nil }

func (x MethodCall) In() []Value {
	return append(values(x.Obj), x.Args...)
}

func (x Return) In() []Value {
	if x.Value == nil {
		return nil
	}

	return values(x.Value)
}

func (x Assign) Out() Reg        { return x.Dst }
func (x LoadError) Out() Reg     { return x.Dst }
func (x LoadNone) Out() Reg      { return x.Dst }
func (x IntOp) Out() Reg         { return x.Dst }
func (x Cmp) Out() Reg           { return x.Dst }
func (x Extend) Out() Reg        { return x.Dst }
func (x Truncate) Out() Reg      { return x.Dst }
func (x Box) Out() Reg           { return x.Dst }
func (x Unbox) Out() Reg         { return x.Dst }
func (x CallRT) Out() Reg        { return x.Dst }
func (x Call) Out() Reg          { return x.Dst }
func (x MethodCall) Out() Reg    { return x.Dst }
func (x GetAttr) Out() Reg       { return x.Dst }
func (x GetElementPtr) Out() Reg { return x.Dst }
func (x LoadMem) Out() Reg       { return x.Dst }
func (x TupleSet) Out() Reg      { return x.Dst }
func (x TupleGet) Out() Reg      { return x.Dst }

func (x Goto) Succ() []*Block        { return []*Block{x.Target} }
func (x Branch) Succ() []*Block      { return []*Block{x.True, x.False} }
func (x Return) Succ() []*Block      { return nil }
func (x Unreachable) Succ() []*Block { return nil }
