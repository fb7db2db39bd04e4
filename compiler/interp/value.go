package interp

import (
	"math/big"

	"tlog.app/go/errors"

	"github.com/slowlang/lower/compiler/ir"
	"github.com/slowlang/lower/compiler/tp"
)

type (
	// Instance is an object of a user class.
	// Attrs hold values in the representation of the attribute type.
	Instance struct {
		Class *ir.Class
		Attrs map[string]any
	}

	// List items are objects.
	List struct {
		Items []any
	}

	// Tuple items are held in the representation of their types.
	Tuple struct {
		Types []tp.Type
		Items []any
	}

	noneT  struct{}
	errorT struct{}

	// fieldPtr is what GetElementPtr produces.
	fieldPtr struct {
		Obj   any
		Field string
	}
)

var (
	// None is the none object.
	None = &noneT{}

	// errorValue marks an omitted argument.
	errorValue = &errorT{}
)

func (*noneT) String() string  { return "None" }
func (*errorT) String() string { return "<error>" }

func (m *Machine) inlineMax() int64 { return 1<<(m.WordBits-2) - 1 }
func (m *Machine) inlineMin() int64 { return -1 << (m.WordBits - 2) }

// wrap reduces x to a native width keeping two's complement bits.
func wrap(x int64, bits int) int64 {
	switch bits {
	case 32:
		return int64(int32(x))
	case 1:
		return x & 1
	default:
		return x
	}
}

func (m *Machine) width(t tp.Type) int {
	if t.Kind == tp.KindInt {
		return m.WordBits
	}

	return t.Bits()
}

// tag encodes an arithmetic integer as a tagged word.
// Values out of the inline range go to the heap.
func (m *Machine) tag(x *big.Int) int64 {
	if x.IsInt64() {
		if v := x.Int64(); v >= m.inlineMin() && v <= m.inlineMax() {
			return wrap(v<<1|1, m.WordBits)
		}
	}

	m.heap = append(m.heap, new(big.Int).Set(x))

	return int64(len(m.heap)-1) << 1
}

func (m *Machine) tagInt64(v int64) int64 {
	return m.tag(big.NewInt(v))
}

// untag decodes a tagged word.
func (m *Machine) untag(w int64) (*big.Int, error) {
	if w&1 != 0 {
		return big.NewInt(w >> 1), nil
	}

	i := w >> 1
	if i <= 0 || i >= int64(len(m.heap)) {
		return nil, errors.New("bad tagged pointer %#x", w)
	}

	return m.heap[i], nil
}

// box turns a register value of type t into an object.
func (m *Machine) box(v any, t tp.Type) (any, error) {
	switch t.Kind {
	case tp.KindInt:
		return m.untag(v.(int64))
	case tp.KindI32, tp.KindI64:
		return big.NewInt(v.(int64)), nil
	case tp.KindBit:
		return v.(int64) != 0, nil
	default:
		return v, nil
	}
}

// unbox turns an object into a register value of primitive type t.
func (m *Machine) unbox(o any, t tp.Type) (any, error) {
	if t.Kind == tp.KindBit {
		switch o := o.(type) {
		case bool:
			return b2i(o), nil
		case *big.Int:
			return b2i(o.Sign() != 0), nil
		}

		return nil, fault(TypeError, "unbox %v as bit", typeName(o))
	}

	x, err := number(o)
	if err != nil {
		return nil, err
	}

	switch t.Kind {
	case tp.KindInt:
		return m.tag(x), nil
	case tp.KindI64:
		if !x.IsInt64() {
			return nil, fault(OverflowError, "%v does not fit i64", x)
		}

		return x.Int64(), nil
	case tp.KindI32:
		if !x.IsInt64() || x.Int64() != int64(int32(x.Int64())) {
			return nil, fault(OverflowError, "%v does not fit i32", x)
		}

		return x.Int64(), nil
	}

	return nil, errors.New("unbox to %v", t)
}

// number is the integer value of a numeric object.
func number(o any) (*big.Int, error) {
	switch o := o.(type) {
	case *big.Int:
		return o, nil
	case bool:
		return big.NewInt(b2i(o)), nil
	}

	return nil, fault(TypeError, "unsupported operand %v", typeName(o))
}

func typeName(o any) string {
	switch o := o.(type) {
	case *big.Int:
		return "int"
	case bool:
		return "bool"
	case *List:
		return "list"
	case *Tuple:
		return "tuple"
	case *Instance:
		return o.Class.Name
	case *noneT:
		return "NoneType"
	default:
		return "<unknown>"
	}
}

func b2i(b bool) int64 {
	if b {
		return 1
	}

	return 0
}

// FromGo converts a Go value into a register value of type t.
// Integers are int, int64 or *big.Int, nil is None.
func (m *Machine) FromGo(v any, t tp.Type) (any, error) {
	if t.IsPrimitive() {
		o, err := m.object(v)
		if err != nil {
			return nil, err
		}

		return m.unbox(o, t)
	}

	return m.object(v)
}

// object converts a Go value into an object.
func (m *Machine) object(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return None, nil
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case *big.Int, bool, *List, *Tuple, *Instance, *noneT:
		return v, nil
	default:
		return nil, errors.New("unsupported go value %T", v)
	}
}

// ToGo converts a register value of type t back into a Go value.
// Native integers become int64, tagged integers *big.Int, bits bool
// and None nil.
func (m *Machine) ToGo(v any, t tp.Type) (any, error) {
	switch t.Kind {
	case tp.KindI32, tp.KindI64:
		return v.(int64), nil
	case tp.KindBit:
		return v.(int64) != 0, nil
	case tp.KindInt:
		return m.untag(v.(int64))
	}

	if v == None {
		return nil, nil
	}

	return v, nil
}

// NewList makes a list of Go values.
func (m *Machine) NewList(items ...any) (*List, error) {
	l := &List{Items: make([]any, len(items))}

	for i, x := range items {
		o, err := m.object(x)
		if err != nil {
			return nil, errors.Wrap(err, "item %d", i)
		}

		l.Items[i] = o
	}

	return l, nil
}

// NewInstance makes an object of the named class with attributes set from Go values.
func (m *Machine) NewInstance(class string, attrs map[string]any) (*Instance, error) {
	c := m.Module.Class(class)
	if c == nil {
		return nil, errors.New("undefined class %v", class)
	}

	o := &Instance{Class: c, Attrs: make(map[string]any, len(c.Attrs))}

	for _, a := range c.Attrs {
		x, ok := attrs[a.Name]
		if !ok {
			continue
		}

		v, err := m.FromGo(x, a.Type)
		if err != nil {
			return nil, errors.Wrap(err, "attr %v", a.Name)
		}

		o.Attrs[a.Name] = v
	}

	return o, nil
}
