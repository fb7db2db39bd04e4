package format

import (
	"strconv"

	"github.com/nikandfor/hacked/hfmt"

	"github.com/slowlang/lower/compiler/ir"
	"github.com/slowlang/lower/compiler/tp"
)

type funcState struct {
	f      *ir.Func
	labels map[*ir.Block]int
}

// Module renders every function in declaration order, separated by an empty line.
func Module(b []byte, m *ir.Module) []byte {
	for i, f := range m.Funcs {
		if i != 0 {
			b = append(b, '\n')
		}

		b = Func(b, f)
	}

	return b
}

func Func(b []byte, f *ir.Func) []byte {
	s := &funcState{
		f:      f,
		labels: make(map[*ir.Block]int, len(f.Blocks)),
	}

	for i, bl := range f.Blocks {
		s.labels[bl] = i
	}

	b = s.header(b)
	b = s.decls(b)

	for _, bl := range f.Blocks {
		b = app(b, 0, "L%d:\n", s.labels[bl])

		for _, op := range bl.Ops {
			b = app(b, 1, "")
			b = s.op(b, op)
			b = append(b, '\n')
		}

		b = app(b, 1, "")

		if bl.Term == nil {
			b = append(b, "<unterminated>"...)
		} else {
			b = s.op(b, bl.Term)
		}

		b = append(b, '\n')
	}

	return b
}

func (s *funcState) header(b []byte) []byte {
	f := s.f

	b = app(b, 0, "def %s(", f.Name)

	params := make([]ir.Param, 0, len(f.Params)+len(f.Bitmaps))
	params = append(params, f.Params...)

	for _, r := range f.Bitmaps {
		params = append(params, ir.Param{Reg: r})
	}

	for i, p := range params {
		if i != 0 {
			b = append(b, ", "...)
		}

		info := f.Regs[p.Reg]

		opt := ""
		if p.Optional {
			opt = "?"
		}

		b = hfmt.Appendf(b, "%s%s: %v", info.Name, opt, info.Type)
	}

	b = hfmt.Appendf(b, ") -> %v:\n", f.Ret)

	return b
}

// decls groups runs of consecutive registers sharing a type.
func (s *funcState) decls(b []byte) []byte {
	regs := s.f.Regs

	for i := 0; i < len(regs); {
		j := i + 1
		for j < len(regs) && regs[j].Type.Equal(regs[i].Type) {
			j++
		}

		b = app(b, 1, "")

		for k := i; k < j; k++ {
			if k != i {
				b = append(b, ", "...)
			}

			b = append(b, regs[k].Name...)
		}

		b = hfmt.Appendf(b, " :: %v\n", regs[i].Type)

		i = j
	}

	return b
}

func (s *funcState) op(b []byte, x ir.Op) []byte {
	if d, ok := x.(ir.Def); ok && d.Out() != ir.Nowhere {
		b = s.val(b, d.Out())
		b = append(b, " = "...)
	}

	switch x := x.(type) {
	case ir.Assign:
		b = s.val(b, x.Src)
	case ir.LoadError:
		b = hfmt.Appendf(b, "<error> :: %v", s.f.TypeOf(x.Dst))
	case ir.LoadNone:
		b = append(b, "none"...)
	case ir.IntOp:
		b = s.val(b, x.L)
		b = hfmt.Appendf(b, " %v ", x.Op)
		b = s.val(b, x.R)
	case ir.Cmp:
		b = s.val(b, x.L)
		b = hfmt.Appendf(b, " %v ", x.Op)
		b = s.val(b, x.R)

		if x.Signed {
			b = append(b, " :: signed"...)
		}
	case ir.Extend:
		b = append(b, "extend "...)

		if x.Signed {
			b = append(b, "signed "...)
		}

		b = s.val(b, x.Src)
		b = hfmt.Appendf(b, ": %v to %v", s.f.TypeOf(x.Src), s.f.TypeOf(x.Dst))
	case ir.Truncate:
		b = append(b, "truncate "...)
		b = s.val(b, x.Src)
		b = hfmt.Appendf(b, ": %v to %v", s.f.TypeOf(x.Src), s.f.TypeOf(x.Dst))
	case ir.Box:
		b = hfmt.Appendf(b, "box(%v, ", s.f.TypeOf(x.Src))
		b = s.val(b, x.Src)
		b = append(b, ')')
	case ir.Unbox:
		b = hfmt.Appendf(b, "unbox(%v, ", s.f.TypeOf(x.Dst))
		b = s.val(b, x.Src)
		b = append(b, ')')
	case ir.CallRT:
		b = append(b, x.Fn.Name...)
		b = s.args(b, x.Args)
	case ir.Call:
		b = append(b, x.Fn...)
		b = s.args(b, x.Args)
	case ir.MethodCall:
		b = s.val(b, x.Obj)
		b = hfmt.Appendf(b, ".%s", x.Method)
		b = s.args(b, x.Args)
	case ir.GetAttr:
		if x.Borrow {
			b = append(b, "borrow "...)
		}

		b = s.val(b, x.Obj)
		b = hfmt.Appendf(b, ".%s", x.Attr)
	case ir.SetAttr:
		b = s.val(b, x.Obj)
		b = hfmt.Appendf(b, ".%s = ", x.Attr)
		b = s.val(b, x.Src)
	case ir.GetElementPtr:
		b = append(b, "get_element_ptr "...)
		b = s.val(b, x.Src)
		b = hfmt.Appendf(b, " %s :: %v", x.Field, s.f.TypeOf(x.Src))
	case ir.LoadMem:
		b = append(b, "load_mem "...)
		b = s.val(b, x.Src)
		b = hfmt.Appendf(b, " :: %v*", s.f.TypeOf(x.Dst))
	case ir.TupleSet:
		b = s.args(b, x.Items)
	case ir.TupleGet:
		b = s.val(b, x.Src)
		b = hfmt.Appendf(b, "[%d]", x.Index)
	case ir.KeepAlive:
		b = append(b, "keep_alive "...)

		for i, v := range x.Values {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = s.val(b, v)
		}
	case ir.Goto:
		b = hfmt.Appendf(b, "goto L%d", s.label(x.Target))
	case ir.Branch:
		b = append(b, "if "...)

		if x.IsError {
			b = append(b, "is_error("...)
			b = s.val(b, x.Cond)
			b = append(b, ')')
		} else {
			b = s.val(b, x.Cond)
		}

		b = hfmt.Appendf(b, " goto L%d else goto L%d", s.label(x.True), s.label(x.False))
	case ir.Return:
		b = append(b, "return"...)

		if x.Value != nil {
			b = append(b, ' ')
			b = s.val(b, x.Value)
		}
	case ir.Unreachable:
		b = append(b, "unreachable"...)
	default:
		b = hfmt.Appendf(b, "<unknown op %T>", x)
	}

	return b
}

func (s *funcState) args(b []byte, l []ir.Value) []byte {
	b = append(b, '(')

	for i, v := range l {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = s.val(b, v)
	}

	return append(b, ')')
}

func (s *funcState) val(b []byte, v ir.Value) []byte {
	switch v := v.(type) {
	case ir.Reg:
		return append(b, s.f.Regs[v].Name...)
	case ir.Imm:
		if v.Type.Kind == tp.KindInt {
			// tagged immediates are the inline word 2v+1
			b = append(b, "tag("...)
			b = strconv.AppendInt(b, v.V, 10)

			return append(b, ')')
		}

		return strconv.AppendInt(b, v.V, 10)
	default:
		return hfmt.Appendf(b, "<%T>", v)
	}
}

func (s *funcState) label(bl *ir.Block) int {
	l, ok := s.labels[bl]
	if !ok {
		return -1
	}

	return l
}

const indent = "    "

func app(b []byte, d int, f string, args ...any) []byte {
	for i := 0; i < d; i++ {
		b = append(b, indent...)
	}

	b = hfmt.Appendf(b, f, args...)

	return b
}
