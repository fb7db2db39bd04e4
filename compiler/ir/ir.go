package ir

import (
	"github.com/slowlang/lower/compiler/tp"
	"tlog.app/go/tlog/tlwire"
)

type (
	// Reg is an index into Func.Regs.
	Reg int

	// Value is an instruction operand: a Reg or an Imm.
	Value interface {
		isValue()
	}

	// Imm is an inline constant. Tagged immediates hold the arithmetic value.
	Imm struct {
		V    int64
		Type tp.Type
	}

	RegInfo struct {
		Name string
		Type tp.Type
	}

	Param struct {
		Reg      Reg
		Optional bool
	}

	// BorrowRecord marks Reg as a non-owning read
	// which stays valid while all Roots are kept alive.
	BorrowRecord struct {
		Reg   Reg
		Roots []Reg
	}

	Block struct {
		Ops  []Op
		Term Term
	}

	Func struct {
		Name string

		Params  []Param
		Bitmaps []Reg
		Ret     tp.Type

		Regs   []RegInfo
		Blocks []*Block

		Borrows []BorrowRecord
	}

	Class struct {
		Name  string
		Attrs []Attr
	}

	Attr struct {
		Name string
		Type tp.Type
	}

	Module struct {
		Classes []*Class
		Funcs   []*Func
	}
)

const Nowhere Reg = -1

func (Reg) isValue() {}
func (Imm) isValue() {}

func (f *Func) NewReg(name string, t tp.Type) Reg {
	f.Regs = append(f.Regs, RegInfo{Name: name, Type: t})

	return Reg(len(f.Regs) - 1)
}

func (f *Func) TypeOf(v Value) tp.Type {
	switch v := v.(type) {
	case Reg:
		return f.Regs[v].Type
	case Imm:
		return v.Type
	default:
		panic(v)
	}
}

// Index is the position of the block in f.Blocks, -1 if not there.
func (f *Func) Index(b *Block) int {
	for i, x := range f.Blocks {
		if x == b {
			return i
		}
	}

	return -1
}

// BorrowOf finds the borrow record for r.
func (f *Func) BorrowOf(r Reg) (BorrowRecord, bool) {
	for _, br := range f.Borrows {
		if br.Reg == r {
			return br, true
		}
	}

	return BorrowRecord{}, false
}

func (m *Module) Func(name string) *Func {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
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

func (b *Block) Sealed() bool { return b.Term != nil }

func (r Reg) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	if r == Nowhere {
		return e.AppendNil(b)
	}

	return e.AppendFormat(b, "r%d", int(r))
}

func (x Imm) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	return e.AppendFormat(b, "%d:%v", x.V, x.Type)
}
