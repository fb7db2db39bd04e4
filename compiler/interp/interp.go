// Package interp executes lowered IR against a simulated runtime.
//
// Registers hold machine representations: native integers, bits and
// tagged words as int64, word sized values wrapped to the machine width.
// Tagged words with the low bit clear point into the machine heap of
// arbitrary-precision integers. Reference registers hold objects.
package interp

import (
	"context"
	"math/big"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/lower/compiler/ir"
	"github.com/slowlang/lower/compiler/tp"
)

type (
	Machine struct {
		Module   *ir.Module
		WordBits int

		// MaxSteps bounds the instructions executed by one Call. Zero is no limit.
		MaxSteps int

		heap  []*big.Int
		steps int

		tr tlog.Span
	}

	frame struct {
		f    *ir.Func
		regs []any
	}
)

var ErrStepLimit = errors.New("step limit exceeded")

func New(m *ir.Module, wordBits int) *Machine {
	return &Machine{
		Module:   m,
		WordBits: wordBits,
		MaxSteps: 1_000_000,
		heap:     []*big.Int{nil},
	}
}

// Call runs function name with Go values as arguments.
// Optional parameters not given take their defaults.
func (m *Machine) Call(ctx context.Context, name string, args ...any) (res any, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "interp: call", "func", name, "args", len(args))
	defer tr.Finish("err", &err)

	f := m.Module.Func(name)
	if f == nil {
		return nil, errors.New("undefined function %v", name)
	}

	if len(args) > len(f.Params) {
		return nil, errors.New("%v takes %d arguments, got %d", name, len(f.Params), len(args))
	}

	in := make([]any, 0, len(f.Params)+len(f.Bitmaps))
	masks := make([]int64, len(f.Bitmaps))
	bit := 0

	for i, p := range f.Params {
		t := f.Regs[p.Reg].Type
		given := i < len(args)

		if !given && !p.Optional {
			return nil, errors.New("%v: missing argument %v", name, f.Regs[p.Reg].Name)
		}

		if p.Optional && t.IsPrimitive() {
			if given {
				masks[bit/32] |= 1 << (bit % 32)
			}

			bit++
		}

		switch {
		case given:
			v, err := m.FromGo(args[i], t)
			if err != nil {
				return nil, errors.Wrap(err, "arg %v", f.Regs[p.Reg].Name)
			}

			in = append(in, v)
		case t.IsPrimitive():
			v, err := m.imm(ir.Imm{V: 0, Type: t})
			if err != nil {
				return nil, err
			}

			in = append(in, v)
		default:
			in = append(in, errorValue)
		}
	}

	for _, x := range masks {
		in = append(in, int64(int32(uint32(x))))
	}

	m.steps = 0
	m.tr = tr

	v, err := m.run(f, in)
	if err != nil {
		return nil, err
	}

	return m.ToGo(v, f.Ret)
}

func (m *Machine) run(f *ir.Func, args []any) (_ any, err error) {
	fr := &frame{
		f:    f,
		regs: make([]any, len(f.Regs)),
	}

	regs := make([]ir.Reg, 0, len(f.Params)+len(f.Bitmaps))
	for _, p := range f.Params {
		regs = append(regs, p.Reg)
	}

	regs = append(regs, f.Bitmaps...)

	if len(args) != len(regs) {
		return nil, errors.New("%v takes %d args, got %d", f.Name, len(regs), len(args))
	}

	for i, r := range regs {
		fr.regs[r] = args[i]
	}

	if len(f.Blocks) == 0 {
		return nil, errors.New("%v: no blocks", f.Name)
	}

	b := f.Blocks[0]

	for {
		for _, op := range b.Ops {
			if err = m.step(fr, op); err != nil {
				return nil, errors.Wrap(err, "%v: L%d", f.Name, f.Index(b))
			}
		}

		if err = m.tick(fr, b.Term); err != nil {
			return nil, err
		}

		switch t := b.Term.(type) {
		case ir.Goto:
			b = t.Target
		case ir.Branch:
			c, err := m.get(fr, t.Cond)
			if err != nil {
				return nil, err
			}

			var ok bool
			if t.IsError {
				ok = c == errorValue
			} else {
				ok = c.(int64) != 0
			}

			if ok {
				b = t.True
			} else {
				b = t.False
			}
		case ir.Return:
			return m.get(fr, t.Value)
		case ir.Unreachable:
			return nil, errors.New("%v: L%d: reached unreachable", f.Name, f.Index(b))
		default:
			return nil, errors.New("%v: L%d: unsupported terminator %T", f.Name, f.Index(b), b.Term)
		}
	}
}

func (m *Machine) tick(fr *frame, op ir.Op) error {
	m.steps++

	if m.MaxSteps != 0 && m.steps > m.MaxSteps {
		return ErrStepLimit
	}

	if m.tr.If("interp_trace") {
		m.tr.Printw("step", "func", fr.f.Name, "op", op)
	}

	return nil
}

func (m *Machine) step(fr *frame, op ir.Op) (err error) {
	if err = m.tick(fr, op); err != nil {
		return err
	}

	var v any

	switch x := op.(type) {
	case ir.Assign:
		v, err = m.get(fr, x.Src)
		return m.set(fr, x.Dst, v, err)
	case ir.LoadError:
		fr.regs[x.Dst] = errorValue
	case ir.LoadNone:
		fr.regs[x.Dst] = None
	case ir.IntOp:
		return m.intOp(fr, x)
	case ir.Cmp:
		return m.cmp(fr, x)
	case ir.Extend:
		v, err = m.get(fr, x.Src)
		if err != nil {
			return err
		}

		w := v.(int64)
		if !x.Signed {
			w &= mask(m.width(fr.f.TypeOf(x.Src)))
		}

		fr.regs[x.Dst] = w
	case ir.Truncate:
		v, err = m.get(fr, x.Src)
		if err != nil {
			return err
		}

		fr.regs[x.Dst] = wrap(v.(int64), m.width(fr.f.TypeOf(x.Dst)))
	case ir.Box:
		v, err = m.get(fr, x.Src)
		if err != nil {
			return err
		}

		v, err = m.box(v, fr.f.TypeOf(x.Src))
		return m.set(fr, x.Dst, v, err)
	case ir.Unbox:
		v, err = m.get(fr, x.Src)
		if err != nil {
			return err
		}

		v, err = m.unbox(v, fr.f.TypeOf(x.Dst))
		return m.set(fr, x.Dst, v, err)
	case ir.CallRT:
		args, err := m.values(fr, x.Args)
		if err != nil {
			return err
		}

		v, err = m.callRT(x.Fn, args)
		if err != nil {
			return errors.Wrap(err, "%v", x.Fn.Name)
		}

		if x.Dst != ir.Nowhere {
			fr.regs[x.Dst] = v
		}
	case ir.Call:
		return m.call(fr, x.Dst, x.Fn, nil, x.Args)
	case ir.MethodCall:
		obj, err := m.get(fr, x.Obj)
		if err != nil {
			return err
		}

		return m.call(fr, x.Dst, x.Class+"."+x.Method, []any{obj}, x.Args)
	case ir.GetAttr:
		o, err := m.get(fr, x.Obj)
		if err != nil {
			return err
		}

		in, ok := o.(*Instance)
		if !ok {
			return fault(AttributeError, "%v has no attribute %v", typeName(o), x.Attr)
		}

		v, ok := in.Attrs[x.Attr]
		if !ok {
			return fault(AttributeError, "%v has no attribute %v", in.Class.Name, x.Attr)
		}

		fr.regs[x.Dst] = v
	case ir.SetAttr:
		o, err := m.get(fr, x.Obj)
		if err != nil {
			return err
		}

		v, err = m.get(fr, x.Src)
		if err != nil {
			return err
		}

		in, ok := o.(*Instance)
		if !ok {
			return fault(AttributeError, "%v has no attribute %v", typeName(o), x.Attr)
		}

		in.Attrs[x.Attr] = v
	case ir.GetElementPtr:
		o, err := m.get(fr, x.Src)
		if err != nil {
			return err
		}

		fr.regs[x.Dst] = fieldPtr{Obj: o, Field: x.Field}
	case ir.LoadMem:
		v, err = m.get(fr, x.Src)
		if err != nil {
			return err
		}

		p, ok := v.(fieldPtr)
		if !ok {
			return errors.New("load from %T", v)
		}

		v, err = m.load(p)
		return m.set(fr, x.Dst, v, err)
	case ir.TupleSet:
		items, err := m.values(fr, x.Items)
		if err != nil {
			return err
		}

		fr.regs[x.Dst] = &Tuple{Types: fr.f.TypeOf(x.Dst).Elems, Items: items}
	case ir.TupleGet:
		v, err = m.get(fr, x.Src)
		if err != nil {
			return err
		}

		t, ok := v.(*Tuple)
		if !ok || x.Index >= len(t.Items) {
			return fault(TypeError, "item %d of %v", x.Index, typeName(v))
		}

		fr.regs[x.Dst] = t.Items[x.Index]
	case ir.KeepAlive:
	default:
		return errors.New("unsupported op %T", op)
	}

	return nil
}

func (m *Machine) set(fr *frame, dst ir.Reg, v any, err error) error {
	if err != nil {
		return err
	}

	fr.regs[dst] = v

	return nil
}

func (m *Machine) call(fr *frame, dst ir.Reg, name string, pre []any, args []ir.Value) error {
	f := m.Module.Func(name)
	if f == nil {
		return errors.New("call of undefined %v", name)
	}

	vals, err := m.values(fr, args)
	if err != nil {
		return err
	}

	v, err := m.run(f, append(pre, vals...))
	if err != nil {
		return err
	}

	if dst != ir.Nowhere {
		fr.regs[dst] = v
	}

	return nil
}

func (m *Machine) load(p fieldPtr) (any, error) {
	if p.Field != "size" {
		return nil, errors.New("unsupported field %v", p.Field)
	}

	switch o := p.Obj.(type) {
	case *List:
		return wrap(int64(len(o.Items)), m.WordBits), nil
	case *Tuple:
		return wrap(int64(len(o.Items)), m.WordBits), nil
	}

	return nil, fault(TypeError, "object of type %v has no len()", typeName(p.Obj))
}

func (m *Machine) get(fr *frame, v ir.Value) (any, error) {
	switch v := v.(type) {
	case ir.Reg:
		x := fr.regs[v]
		if x == nil {
			return nil, errors.New("read of unset register %v", fr.f.Regs[v].Name)
		}

		return x, nil
	case ir.Imm:
		return m.imm(v)
	}

	return nil, errors.New("bad operand %T", v)
}

// imm materializes an immediate. Tagged immediates hold the arithmetic value.
func (m *Machine) imm(x ir.Imm) (any, error) {
	switch x.Type.Kind {
	case tp.KindInt:
		return m.tagInt64(x.V), nil
	case tp.KindI32, tp.KindI64, tp.KindBit:
		return wrap(x.V, m.width(x.Type)), nil
	}

	return nil, errors.New("immediate of type %v", x.Type)
}

func (m *Machine) values(fr *frame, l []ir.Value) ([]any, error) {
	r := make([]any, len(l))

	for i, v := range l {
		x, err := m.get(fr, v)
		if err != nil {
			return nil, err
		}

		r[i] = x
	}

	return r, nil
}

func (m *Machine) intOp(fr *frame, x ir.IntOp) error {
	l, err := m.get(fr, x.L)
	if err != nil {
		return err
	}

	r, err := m.get(fr, x.R)
	if err != nil {
		return err
	}

	a, b := l.(int64), r.(int64)
	w := m.width(fr.f.TypeOf(x.Dst))

	var v int64

	switch x.Op {
	case ir.Add:
		v = a + b
	case ir.Sub:
		v = a - b
	case ir.Mul:
		v = a * b
	case ir.Div, ir.Mod:
		if b == 0 {
			return fault(ZeroDivisionError, "integer division or modulo by zero")
		}

		if x.Op == ir.Div {
			v = a / b
		} else {
			v = a % b
		}
	case ir.And:
		v = a & b
	case ir.Or:
		v = a | b
	case ir.Xor:
		v = a ^ b
	case ir.Shl:
		v = a << uint64(b&int64(w-1))
	case ir.Shr:
		v = wrap(a, w) >> uint64(b&int64(w-1))
	default:
		return errors.New("unsupported int op %v", x.Op)
	}

	fr.regs[x.Dst] = wrap(v, w)

	return nil
}

func (m *Machine) cmp(fr *frame, x ir.Cmp) error {
	l, err := m.get(fr, x.L)
	if err != nil {
		return err
	}

	r, err := m.get(fr, x.R)
	if err != nil {
		return err
	}

	a, b := l.(int64), r.(int64)

	var c int

	if x.Signed {
		c = cmp3(a, b)
	} else {
		mk := uint64(mask(m.width(fr.f.TypeOf(x.L))))
		c = cmp3u(uint64(a)&mk, uint64(b)&mk)
	}

	var v bool

	switch x.Op {
	case ir.Eq:
		v = c == 0
	case ir.Ne:
		v = c != 0
	case ir.Lt:
		v = c < 0
	case ir.Le:
		v = c <= 0
	case ir.Gt:
		v = c > 0
	case ir.Ge:
		v = c >= 0
	}

	fr.regs[x.Dst] = b2i(v)

	return nil
}

func mask(bits int) int64 {
	if bits >= 64 {
		return -1
	}

	return 1<<bits - 1
}

func cmp3(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmp3u(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
