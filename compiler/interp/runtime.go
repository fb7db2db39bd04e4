package interp

import (
	"math"
	"math/big"

	"tlog.app/go/errors"

	"github.com/slowlang/lower/compiler/rt"
	"github.com/slowlang/lower/compiler/tp"
)

// routine implements a runtime function. Arguments come decoded:
// tagged integers as *big.Int, native integers as int64 and objects as they are.
// The result is encoded the same way, with bool for bit and nil for none.
type routine func(m *Machine, a []any) (any, error)

const maxShift = 1 << 16

var routines = map[string]routine{
	"rt_int_from_i64": intFrom,
	"rt_int_from_i32": intFrom,
	"rt_int_as_i64":   intAs(math.MinInt64, math.MaxInt64, "i64"),
	"rt_int_as_i32":   intAs(math.MinInt32, math.MaxInt32, "i32"),

	"rt_i64_floor_div": nativeFloor(64, false),
	"rt_i64_floor_mod": nativeFloor(64, true),
	"rt_i32_floor_div": nativeFloor(32, false),
	"rt_i32_floor_mod": nativeFloor(32, true),

	"rt_int_neg":    intUnary("neg"),
	"rt_int_invert": intUnary("invert"),

	"rt_object_neg":    objectUnary("neg"),
	"rt_object_invert": objectUnary("invert"),
	"rt_object_pos":    objectUnary("pos"),
	"rt_object_bool":   objectBool,

	"rt_is_none": func(m *Machine, a []any) (any, error) {
		return a[0] == None, nil
	},
	"rt_object_is": func(m *Machine, a []any) (any, error) {
		return a[0] == a[1], nil
	},
}

func init() {
	for _, op := range rt.BinOps {
		op := op

		routines["rt_int_"+op] = func(m *Machine, a []any) (any, error) {
			return bigBinOp(op, a[0].(*big.Int), a[1].(*big.Int))
		}

		routines["rt_object_"+op] = func(m *Machine, a []any) (any, error) {
			x, err := number(a[0])
			if err != nil {
				return nil, err
			}

			y, err := number(a[1])
			if err != nil {
				return nil, err
			}

			return bigBinOp(op, x, y)
		}
	}

	for _, op := range rt.CmpOps {
		op := op

		routines["rt_int_"+op] = func(m *Machine, a []any) (any, error) {
			return cmpResult(op, a[0].(*big.Int).Cmp(a[1].(*big.Int))), nil
		}

		routines["rt_object_"+op] = func(m *Machine, a []any) (any, error) {
			x, xerr := number(a[0])
			y, yerr := number(a[1])

			if xerr == nil && yerr == nil {
				return cmpResult(op, x.Cmp(y)), nil
			}

			switch op {
			case "eq":
				return a[0] == a[1], nil
			case "ne":
				return a[0] != a[1], nil
			}

			return nil, fault(TypeError, "%v not supported between %v and %v", op, typeName(a[0]), typeName(a[1]))
		}
	}

	for _, idx := range []tp.Type{tp.Int, tp.I64, tp.I32} {
		routines["rt_list_get_"+idx.String()] = listGet
		routines["rt_list_get_"+idx.String()+"_borrow"] = listGet
		routines["rt_list_set_"+idx.String()] = listSet
	}
}

// callRT runs fn on register values.
func (m *Machine) callRT(fn *rt.Func, args []any) (any, error) {
	r, ok := routines[fn.Name]
	if !ok {
		return nil, errors.New("runtime routine %v not implemented", fn.Name)
	}

	a := make([]any, len(args))

	for i, v := range args {
		switch fn.Args[i].Kind {
		case tp.KindInt:
			x, err := m.untag(v.(int64))
			if err != nil {
				return nil, err
			}

			a[i] = x
		default:
			a[i] = v
		}
	}

	res, err := r(m, a)
	if err != nil {
		return nil, err
	}

	switch fn.Ret.Kind {
	case tp.KindInt:
		return m.tag(res.(*big.Int)), nil
	case tp.KindBit:
		return b2i(res.(bool)), nil
	case tp.KindNone:
		return nil, nil
	default:
		return res, nil
	}
}

func intFrom(m *Machine, a []any) (any, error) {
	return big.NewInt(a[0].(int64)), nil
}

func intAs(lo, hi int64, name string) routine {
	return func(m *Machine, a []any) (any, error) {
		x := a[0].(*big.Int)

		if !x.IsInt64() || x.Int64() < lo || x.Int64() > hi {
			return nil, fault(OverflowError, "%v does not fit %v", x, name)
		}

		return x.Int64(), nil
	}
}

func nativeFloor(bits int, mod bool) routine {
	lo := int64(math.MinInt64)
	if bits == 32 {
		lo = math.MinInt32
	}

	return func(m *Machine, a []any) (any, error) {
		x, y := a[0].(int64), a[1].(int64)

		if y == 0 {
			return nil, fault(ZeroDivisionError, "integer division or modulo by zero")
		}

		if mod {
			r := x % y
			if r != 0 && (r < 0) != (y < 0) {
				r += y
			}

			return r, nil
		}

		if x == lo && y == -1 {
			return nil, fault(OverflowError, "i%d division overflow", bits)
		}

		q := x / y
		if x%y != 0 && (x < 0) != (y < 0) {
			q--
		}

		return q, nil
	}
}

// floorDivMod is division rounding toward negative infinity.
func floorDivMod(x, y *big.Int) (q, r *big.Int) {
	q, r = new(big.Int).QuoRem(x, y, new(big.Int))

	if r.Sign() != 0 && r.Sign() != y.Sign() {
		q.Sub(q, big.NewInt(1))
		r.Add(r, y)
	}

	return q, r
}

func bigBinOp(op string, x, y *big.Int) (any, error) {
	z := new(big.Int)

	switch op {
	case "add":
		return z.Add(x, y), nil
	case "sub":
		return z.Sub(x, y), nil
	case "mul":
		return z.Mul(x, y), nil
	case "and":
		return z.And(x, y), nil
	case "or":
		return z.Or(x, y), nil
	case "xor":
		return z.Xor(x, y), nil
	case "floor_div", "floor_mod":
		if y.Sign() == 0 {
			return nil, fault(ZeroDivisionError, "integer division or modulo by zero")
		}

		q, r := floorDivMod(x, y)
		if op == "floor_mod" {
			return r, nil
		}

		return q, nil
	case "lshift", "rshift":
		if y.Sign() < 0 {
			return nil, fault(ValueError, "negative shift count")
		}

		if op == "rshift" {
			if !y.IsInt64() || y.Int64() > maxShift {
				return z.SetInt64(int64(-b2i(x.Sign() < 0))), nil
			}

			return z.Rsh(x, uint(y.Int64())), nil
		}

		if !y.IsInt64() || y.Int64() > maxShift {
			return nil, fault(OverflowError, "shift count too large")
		}

		return z.Lsh(x, uint(y.Int64())), nil
	}

	return nil, errors.New("unsupported int operator %v", op)
}

func cmpResult(op string, c int) bool {
	switch op {
	case "eq":
		return c == 0
	case "ne":
		return c != 0
	case "lt":
		return c < 0
	case "le":
		return c <= 0
	case "gt":
		return c > 0
	default:
		return c >= 0
	}
}

func bigUnary(op string, x *big.Int) *big.Int {
	switch op {
	case "neg":
		return new(big.Int).Neg(x)
	case "invert":
		return new(big.Int).Not(x)
	default:
		return x
	}
}

func intUnary(op string) routine {
	return func(m *Machine, a []any) (any, error) {
		return bigUnary(op, a[0].(*big.Int)), nil
	}
}

func objectUnary(op string) routine {
	return func(m *Machine, a []any) (any, error) {
		x, err := number(a[0])
		if err != nil {
			return nil, err
		}

		return bigUnary(op, x), nil
	}
}

func objectBool(m *Machine, a []any) (any, error) {
	switch o := a[0].(type) {
	case bool:
		return o, nil
	case *big.Int:
		return o.Sign() != 0, nil
	case *List:
		return len(o.Items) != 0, nil
	case *Tuple:
		return len(o.Items) != 0, nil
	case *noneT:
		return false, nil
	case *Instance:
		return true, nil
	}

	return nil, fault(TypeError, "truth of %v", typeName(a[0]))
}

func listIndex(l any, idx any) (*List, int, error) {
	list, ok := l.(*List)
	if !ok {
		return nil, 0, fault(TypeError, "%v is not subscriptable", typeName(l))
	}

	var i int64

	switch idx := idx.(type) {
	case int64:
		i = idx
	case *big.Int:
		if !idx.IsInt64() {
			return nil, 0, fault(IndexError, "list index out of range")
		}

		i = idx.Int64()
	}

	if i < 0 {
		i += int64(len(list.Items))
	}

	if i < 0 || i >= int64(len(list.Items)) {
		return nil, 0, fault(IndexError, "list index out of range")
	}

	return list, int(i), nil
}

func listGet(m *Machine, a []any) (any, error) {
	l, i, err := listIndex(a[0], a[1])
	if err != nil {
		return nil, err
	}

	return l.Items[i], nil
}

func listSet(m *Machine, a []any) (any, error) {
	l, i, err := listIndex(a[0], a[1])
	if err != nil {
		return nil, err
	}

	l.Items[i] = a[2]

	return nil, nil
}
