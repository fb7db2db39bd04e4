package lower

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/lower/compiler/ast"
	"github.com/slowlang/lower/compiler/format"
	"github.com/slowlang/lower/compiler/ir"
	"github.com/slowlang/lower/compiler/tp"
)

// Lowerer lowers the functions of one typed module.
// It holds no state mutated while a function is lowered
// except what the per-function builder owns.
type Lowerer struct {
	opts Options
	mod  *ast.Module

	convs map[string]*callConv
}

func New(m *ast.Module, opts Options) (*Lowerer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	l := &Lowerer{
		opts:  opts,
		mod:   m,
		convs: map[string]*callConv{},
	}

	for _, c := range m.Classes {
		for _, fn := range c.Methods {
			if len(fn.Params) == 0 {
				return nil, errors.New("method %v.%v: no receiver parameter", c.Name, fn.Name)
			}

			err := l.addConv(methodName(c, fn), fn, true)
			if err != nil {
				return nil, err
			}
		}
	}

	for _, fn := range m.Funcs {
		err := l.addConv(fn.Name, fn, false)
		if err != nil {
			return nil, err
		}
	}

	return l, nil
}

// Module lowers m with opts.
func Module(ctx context.Context, m *ast.Module, opts Options) (*ir.Module, error) {
	l, err := New(m, opts)
	if err != nil {
		return nil, errors.Wrap(err, "new lowerer")
	}

	return l.Module(ctx)
}

func (l *Lowerer) Module(ctx context.Context) (_ *ir.Module, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "lower: module", "classes", len(l.mod.Classes), "funcs", len(l.mod.Funcs), "word", l.opts.WordBits)
	defer tr.Finish("err", &err)

	out := &ir.Module{}

	for _, c := range l.mod.Classes {
		ic := &ir.Class{Name: c.Name}

		for _, a := range c.Attrs {
			ic.Attrs = append(ic.Attrs, ir.Attr{Name: a.Name, Type: a.Type})
		}

		out.Classes = append(out.Classes, ic)
	}

	for _, c := range l.mod.Classes {
		for _, fn := range c.Methods {
			f, err := l.Func(ctx, fn, c)
			if err != nil {
				return nil, errors.Wrap(err, "method %v", methodName(c, fn))
			}

			out.Funcs = append(out.Funcs, f)
		}
	}

	for _, fn := range l.mod.Funcs {
		f, err := l.Func(ctx, fn, nil)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", fn.Name)
		}

		out.Funcs = append(out.Funcs, f)
	}

	return out, nil
}

// Func lowers one function or method. On an invariant violation
// nothing is returned but the *InvariantError.
func (l *Lowerer) Func(ctx context.Context, fn *ast.Func, class *ast.Class) (f *ir.Func, err error) {
	name := fn.Name
	if class != nil {
		name = methodName(class, fn)
	}

	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "lower: func", "name", name, "params", len(fn.Params))
	defer tr.Finish("err", &err)

	defer recoverInvariant(name, &err)

	conv := l.convs[name]
	if conv == nil {
		invariant("no signature for %v", name)
	}

	ret := fn.Ret
	if ret.Kind == tp.Invalid {
		ret = tp.None
	}

	out := &ir.Func{
		Name: name,
		Ret:  ret,
	}

	b := newBuilder(l, out)

	b.params(conv)
	b.suite(fn.Body)
	b.fallOff()

	if tr.If("lower_dump") {
		tr.Printw("lowered", "blocks", len(out.Blocks), "regs", len(out.Regs), "text", string(format.Func(nil, out)))
	}

	return out, nil
}

// fallOff ends a function whose body does not return on every path.
func (b *builder) fallOff() {
	if b.sealed() {
		return
	}

	if b.f.Ret.IsRef() {
		b.ret(b.loadNone(b.f.Ret))
		return
	}

	b.term(ir.Unreachable{})
}

func methodName(c *ast.Class, fn *ast.Func) string {
	return c.Name + "." + fn.Name
}
