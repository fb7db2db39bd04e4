// Package rt describes the Runtime Support Interface: routines the lowered
// code calls but which live outside the compiler.
package rt

import (
	"github.com/slowlang/lower/compiler/tp"
)

type (
	Func struct {
		Name string
		Args []tp.Type
		Ret  tp.Type

		// CanFail routines raise a runtime fault themselves
		// (overflow, zero division, bad index, bad operand).
		CanFail bool
	}

	table map[string]*Func
)

var funcs = table{}

var (
	IntFromI64 = def("rt_int_from_i64", tp.Int, false, tp.I64)
	IntFromI32 = def("rt_int_from_i32", tp.Int, false, tp.I32)
	IntAsI64   = def("rt_int_as_i64", tp.I64, true, tp.Int)
	IntAsI32   = def("rt_int_as_i32", tp.I32, true, tp.Int)

	I64FloorDiv = def("rt_i64_floor_div", tp.I64, true, tp.I64, tp.I64)
	I64FloorMod = def("rt_i64_floor_mod", tp.I64, true, tp.I64, tp.I64)
	I32FloorDiv = def("rt_i32_floor_div", tp.I32, true, tp.I32, tp.I32)
	I32FloorMod = def("rt_i32_floor_mod", tp.I32, true, tp.I32, tp.I32)

	IntNeg    = def("rt_int_neg", tp.Int, false, tp.Int)
	IntInvert = def("rt_int_invert", tp.Int, false, tp.Int)

	ObjectNeg    = def("rt_object_neg", tp.Object, true, tp.Object)
	ObjectInvert = def("rt_object_invert", tp.Object, true, tp.Object)
	ObjectPos    = def("rt_object_pos", tp.Object, true, tp.Object)
	ObjectBool   = def("rt_object_bool", tp.Bit, true, tp.Object)

	IsNone   = def("rt_is_none", tp.Bit, false, tp.Object)
	ObjectIs = def("rt_object_is", tp.Bit, false, tp.Object, tp.Object)
)

// Binary operator names shared by the tagged and object families.
var BinOps = []string{"add", "sub", "mul", "floor_div", "floor_mod", "and", "or", "xor", "lshift", "rshift"}

// Comparison names shared by the tagged and object families.
var CmpOps = []string{"eq", "ne", "lt", "le", "gt", "ge"}

func init() {
	for _, op := range BinOps {
		fail := op == "floor_div" || op == "floor_mod" || op == "lshift" || op == "rshift"

		def("rt_int_"+op, tp.Int, fail, tp.Int, tp.Int)
		def("rt_object_"+op, tp.Object, true, tp.Object, tp.Object)
	}

	for _, op := range CmpOps {
		def("rt_int_"+op, tp.Bit, false, tp.Int, tp.Int)
		def("rt_object_"+op, tp.Bit, true, tp.Object, tp.Object)
	}

	for _, idx := range []tp.Type{tp.Int, tp.I64, tp.I32} {
		def("rt_list_get_"+idx.String(), tp.Object, true, tp.List, idx)
		def("rt_list_get_"+idx.String()+"_borrow", tp.Object, true, tp.List, idx)
		def("rt_list_set_"+idx.String(), tp.None, true, tp.List, idx, tp.Object)
	}
}

func def(name string, ret tp.Type, fail bool, args ...tp.Type) *Func {
	f := &Func{
		Name:    name,
		Args:    args,
		Ret:     ret,
		CanFail: fail,
	}

	if _, ok := funcs[name]; ok {
		panic(name)
	}

	funcs[name] = f

	return f
}

// Lookup finds a routine by name. Nil if there is no such routine.
func Lookup(name string) *Func {
	return funcs[name]
}

// Names lists every routine, unordered.
func Names() []string {
	l := make([]string, 0, len(funcs))

	for name := range funcs {
		l = append(l, name)
	}

	return l
}

// IntBinOp is the tagged integer routine for a binary operator name.
func IntBinOp(op string) *Func { return funcs["rt_int_"+op] }

// ObjectBinOp is the generic object routine for a binary operator name.
func ObjectBinOp(op string) *Func { return funcs["rt_object_"+op] }

func IntCmp(op string) *Func    { return funcs["rt_int_"+op] }
func ObjectCmp(op string) *Func { return funcs["rt_object_"+op] }

// FloorDiv is the zero-checking floor division for a native width.
func FloorDiv(t tp.Type) *Func {
	switch t.Kind {
	case tp.KindI64:
		return I64FloorDiv
	case tp.KindI32:
		return I32FloorDiv
	case tp.KindInt:
		return funcs["rt_int_floor_div"]
	default:
		return nil
	}
}

// FloorMod is the zero-checking floor remainder for a native width.
func FloorMod(t tp.Type) *Func {
	switch t.Kind {
	case tp.KindI64:
		return I64FloorMod
	case tp.KindI32:
		return I32FloorMod
	case tp.KindInt:
		return funcs["rt_int_floor_mod"]
	default:
		return nil
	}
}

// ListGet is the element accessor for an index type.
// The borrowing variant leaves the reference owned by the list.
func ListGet(idx tp.Type, borrow bool) *Func {
	name := "rt_list_get_" + idx.String()
	if borrow {
		name += "_borrow"
	}

	return funcs[name]
}

func ListSet(idx tp.Type) *Func {
	return funcs["rt_list_set_"+idx.String()]
}
