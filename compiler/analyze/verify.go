// Package analyze checks lowered IR is well formed: every block ends
// in a terminator, operand types follow the instruction rules and
// every borrowed read is covered by a keep-alive of its owner.
package analyze

import (
	"context"
	"fmt"

	"nikand.dev/go/heap"
	"tlog.app/go/tlog"

	"github.com/slowlang/lower/compiler/ir"
	"github.com/slowlang/lower/compiler/set"
	"github.com/slowlang/lower/compiler/tp"
)

type (
	// Error is a verification failure. Op is -1 for the terminator.
	Error struct {
		Func  string
		Block int
		Op    int
		Msg   string
	}

	checker struct {
		m    *ir.Module
		f    *ir.Func
		word tp.Type

		blocks map[*ir.Block]int

		bl, op int
	}
)

func (e *Error) Error() string {
	if e.Block < 0 {
		return fmt.Sprintf("%s: %s", e.Func, e.Msg)
	}

	if e.Op < 0 {
		return fmt.Sprintf("%s: L%d: terminator: %s", e.Func, e.Block, e.Msg)
	}

	return fmt.Sprintf("%s: L%d: op %d: %s", e.Func, e.Block, e.Op, e.Msg)
}

// Module verifies every function of m for the given word width.
func Module(ctx context.Context, m *ir.Module, wordBits int) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "analyze: module", "funcs", len(m.Funcs))
	defer tr.Finish("err", &err)

	for _, f := range m.Funcs {
		err = Func(ctx, m, f, wordBits)
		if err != nil {
			return err
		}
	}

	return nil
}

// Func verifies f. Calls are checked against the signatures in m.
func Func(ctx context.Context, m *ir.Module, f *ir.Func, wordBits int) error {
	c := &checker{
		m:      m,
		f:      f,
		word:   tp.Word(wordBits),
		blocks: make(map[*ir.Block]int, len(f.Blocks)),
		bl:     -1,
	}

	if len(f.Blocks) == 0 {
		return c.errorf("no blocks")
	}

	for i, b := range f.Blocks {
		if _, ok := c.blocks[b]; ok {
			c.bl = i
			return c.errorf("block listed twice")
		}

		c.blocks[b] = i
	}

	for i, b := range f.Blocks {
		c.bl = i

		for j, op := range b.Ops {
			c.op = j

			if _, ok := op.(ir.Term); ok {
				return c.errorf("terminator %T in the middle of a block", op)
			}

			if err := c.check(op); err != nil {
				return err
			}
		}

		c.op = -1

		if b.Term == nil {
			return c.errorf("block is not terminated")
		}

		if err := c.check(b.Term); err != nil {
			return err
		}
	}

	err := c.keepAlive()

	if tr := tlog.SpanFromContext(ctx); tr.If("verify") {
		tr.Printw("verified", "func", f.Name, "blocks", len(f.Blocks), "borrows", len(f.Borrows), "err", err)
	}

	return err
}

func (c *checker) errorf(format string, args ...any) error {
	return &Error{
		Func:  c.f.Name,
		Block: c.bl,
		Op:    c.op,
		Msg:   fmt.Sprintf(format, args...),
	}
}

func (c *checker) check(op ir.Op) error {
	for _, v := range op.In() {
		if err := c.value(v); err != nil {
			return err
		}
	}

	if d, ok := op.(ir.Def); ok && d.Out() != ir.Nowhere {
		if err := c.value(d.Out()); err != nil {
			return err
		}
	}

	switch x := op.(type) {
	case ir.Assign:
		if !c.assignable(c.typ(x.Dst), c.typ(x.Src)) {
			return c.errorf("assign %v to %v", c.typ(x.Src), c.typ(x.Dst))
		}
	case ir.LoadError:
		if !c.typ(x.Dst).IsRef() {
			return c.errorf("error value of type %v", c.typ(x.Dst))
		}
	case ir.LoadNone:
		if !c.typ(x.Dst).IsRef() {
			return c.errorf("none of type %v", c.typ(x.Dst))
		}
	case ir.IntOp:
		return c.intOp(x)
	case ir.Cmp:
		return c.cmp(x)
	case ir.Extend:
		from, to := c.typ(x.Src), c.typ(x.Dst)

		if !(from.IsNative() || from.Kind == tp.KindBit) || !to.IsNative() || from.Bits() >= to.Bits() {
			return c.errorf("extend %v to %v", from, to)
		}
	case ir.Truncate:
		from, to := c.typ(x.Src), c.typ(x.Dst)

		if !from.IsNative() || !to.IsNative() || from.Bits() <= to.Bits() {
			return c.errorf("truncate %v to %v", from, to)
		}
	case ir.Box:
		if !c.typ(x.Src).IsPrimitive() || !c.typ(x.Dst).IsRef() {
			return c.errorf("box %v to %v", c.typ(x.Src), c.typ(x.Dst))
		}
	case ir.Unbox:
		if !c.typ(x.Src).IsRef() || !c.typ(x.Dst).IsPrimitive() {
			return c.errorf("unbox %v to %v", c.typ(x.Src), c.typ(x.Dst))
		}
	case ir.CallRT:
		return c.callRT(x)
	case ir.Call:
		fn := c.m.Func(x.Fn)
		if fn == nil {
			return c.errorf("call of undefined %v", x.Fn)
		}

		return c.call(fn, fn.Params, x.Dst, x.Args)
	case ir.MethodCall:
		name := x.Class + "." + x.Method

		fn := c.m.Func(name)
		if fn == nil || len(fn.Params) == 0 {
			return c.errorf("call of undefined method %v", name)
		}

		if !c.typ(x.Obj).IsRef() {
			return c.errorf("method %v of %v", name, c.typ(x.Obj))
		}

		return c.call(fn, fn.Params[1:], x.Dst, x.Args)
	case ir.GetAttr:
		if !c.typ(x.Obj).IsRef() {
			return c.errorf("attribute %v of %v", x.Attr, c.typ(x.Obj))
		}

		if x.Borrow && !c.typ(x.Dst).IsRef() {
			return c.errorf("borrowed attribute %v of type %v", x.Attr, c.typ(x.Dst))
		}
	case ir.SetAttr:
		if !c.typ(x.Obj).IsRef() {
			return c.errorf("attribute %v of %v", x.Attr, c.typ(x.Obj))
		}
	case ir.GetElementPtr:
		if c.typ(x.Src).Kind != tp.KindList || c.typ(x.Dst).Kind != tp.KindPtr {
			return c.errorf("element pointer of %v into %v", c.typ(x.Src), c.typ(x.Dst))
		}
	case ir.LoadMem:
		if c.typ(x.Src).Kind != tp.KindPtr || !c.typ(x.Dst).Equal(c.word) {
			return c.errorf("load %v from %v", c.typ(x.Dst), c.typ(x.Src))
		}
	case ir.TupleSet:
		t := c.typ(x.Dst)

		if t.Kind != tp.KindTuple || len(t.Elems) != len(x.Items) {
			return c.errorf("%d items into %v", len(x.Items), t)
		}

		for i, v := range x.Items {
			if !c.assignable(t.Elems[i], c.typ(v)) {
				return c.errorf("item %d: %v into %v", i, c.typ(v), t.Elems[i])
			}
		}
	case ir.TupleGet:
		t := c.typ(x.Src)

		if t.Kind != tp.KindTuple || x.Index < 0 || x.Index >= len(t.Elems) {
			return c.errorf("item %d of %v", x.Index, t)
		}

		if !c.assignable(c.typ(x.Dst), t.Elems[x.Index]) {
			return c.errorf("item %d of %v into %v", x.Index, t, c.typ(x.Dst))
		}
	case ir.KeepAlive:
	case ir.Goto:
		return c.target(x.Target)
	case ir.Branch:
		if x.IsError {
			if _, ok := x.Cond.(ir.Reg); !ok || !c.typ(x.Cond).IsRef() {
				return c.errorf("error test of %v", c.typ(x.Cond))
			}
		} else if c.typ(x.Cond).Kind != tp.KindBit {
			return c.errorf("branch on %v", c.typ(x.Cond))
		}

		if err := c.target(x.True); err != nil {
			return err
		}

		return c.target(x.False)
	case ir.Return:
		if x.Value == nil {
			return c.errorf("return without value")
		}

		if !c.assignable(c.f.Ret, c.typ(x.Value)) {
			return c.errorf("return %v from function returning %v", c.typ(x.Value), c.f.Ret)
		}
	case ir.Unreachable:
	default:
		return c.errorf("unsupported op %T", op)
	}

	return nil
}

func (c *checker) value(v ir.Value) error {
	switch v := v.(type) {
	case ir.Reg:
		if v < 0 || int(v) >= len(c.f.Regs) {
			return c.errorf("undefined register %d", int(v))
		}
	case ir.Imm:
		if !v.Type.IsPrimitive() {
			return c.errorf("immediate of type %v", v.Type)
		}
	default:
		return c.errorf("bad operand %T", v)
	}

	return nil
}

func (c *checker) typ(v ir.Value) tp.Type { return c.f.TypeOf(v) }

func (c *checker) target(b *ir.Block) error {
	if _, ok := c.blocks[b]; !ok {
		return c.errorf("jump out of the function")
	}

	return nil
}

// assignable reports whether a src value may be stored in a dst register.
// Tagged integers and words share representation, references are untyped.
func (c *checker) assignable(dst, src tp.Type) bool {
	switch {
	case dst.Equal(src):
		return true
	case dst.Kind == tp.KindInt && src.Equal(c.word),
		src.Kind == tp.KindInt && dst.Equal(c.word):
		return true
	case dst.IsRef() && src.IsRef():
		return dst.Kind == tp.KindObject || src.Kind == tp.KindObject ||
			dst.Kind == tp.KindOptional && (src.Kind == tp.KindNone || src.Equal(dst.Elem()))
	default:
		return false
	}
}

// raw reports an operand usable where a word is, tagged integers included.
func (c *checker) raw(t, want tp.Type) bool {
	return t.Equal(want) || want.Equal(c.word) && t.Kind == tp.KindInt
}

func (c *checker) intOp(x ir.IntOp) error {
	t := c.typ(x.Dst)
	l, r := c.typ(x.L), c.typ(x.R)

	switch {
	case t.IsNative():
		if !c.raw(l, t) || !c.raw(r, t) {
			return c.errorf("%v %v %v into %v", l, x.Op, r, t)
		}
	case t.Kind == tp.KindBit:
		if !l.Equal(t) || !r.Equal(t) || x.Op != ir.And && x.Op != ir.Or && x.Op != ir.Xor {
			return c.errorf("%v %v %v into %v", l, x.Op, r, t)
		}
	default:
		return c.errorf("integer op producing %v", t)
	}

	return nil
}

func (c *checker) cmp(x ir.Cmp) error {
	if t := c.typ(x.Dst); t.Kind != tp.KindBit {
		return c.errorf("comparison producing %v", t)
	}

	if x.Signed && !x.Op.Ordered() {
		return c.errorf("signed %v", x.Op)
	}

	l, r := c.typ(x.L), c.typ(x.R)

	switch {
	case l.Equal(r) && l.IsPrimitive():
	case c.raw(l, c.word) && c.raw(r, c.word):
	default:
		return c.errorf("compare %v %v %v", l, x.Op, r)
	}

	return nil
}

func (c *checker) callRT(x ir.CallRT) error {
	fn := x.Fn

	if fn == nil {
		return c.errorf("runtime call without routine")
	}

	if len(x.Args) != len(fn.Args) {
		return c.errorf("%v takes %d args, got %d", fn.Name, len(fn.Args), len(x.Args))
	}

	for i, a := range x.Args {
		if !c.assignable(fn.Args[i], c.typ(a)) {
			return c.errorf("%v arg %d: %v for %v", fn.Name, i, c.typ(a), fn.Args[i])
		}
	}

	if fn.Ret.Kind == tp.KindNone {
		if x.Dst != ir.Nowhere {
			return c.errorf("%v returns nothing", fn.Name)
		}

		return nil
	}

	if x.Dst == ir.Nowhere || !c.assignable(c.typ(x.Dst), fn.Ret) {
		return c.errorf("%v result %v", fn.Name, fn.Ret)
	}

	return nil
}

func (c *checker) call(fn *ir.Func, params []ir.Param, dst ir.Reg, args []ir.Value) error {
	if want := len(params) + len(fn.Bitmaps); len(args) != want {
		return c.errorf("%v takes %d args, got %d", fn.Name, want, len(args))
	}

	for i, p := range params {
		pt := fn.Regs[p.Reg].Type

		if !c.assignable(pt, c.typ(args[i])) {
			return c.errorf("%v arg %d: %v for %v", fn.Name, i, c.typ(args[i]), pt)
		}
	}

	for _, a := range args[len(params):] {
		if t := c.typ(a); t.Kind != tp.KindI32 {
			return c.errorf("%v bitmap arg of type %v", fn.Name, t)
		}
	}

	if dst == ir.Nowhere || !c.assignable(c.typ(dst), fn.Ret) {
		return c.errorf("%v result %v", fn.Name, fn.Ret)
	}

	return nil
}

// keepAlive runs a forward dataflow over owners of borrowed reads
// still waiting for their keep-alive. None may be pending at a return.
func (c *checker) keepAlive() error {
	f := c.f
	n := len(f.Blocks)

	in := make([]set.Bits[ir.Reg], n)
	seen := make([]bool, n)

	q := heap.Heap[int]{Less: func(d []int, i, j int) bool { return d[i] < d[j] }}
	queued := set.MakeBits(0)

	push := func(i int) {
		if queued.IsSet(i) {
			return
		}

		queued.Set(i)
		q.Push(i)
	}

	in[0] = set.MakeBits[ir.Reg](0)
	seen[0] = true
	push(0)

	for q.Len() != 0 {
		i := q.Pop()
		queued.Clear(i)

		c.bl = i
		st := in[i].Copy()
		b := f.Blocks[i]

		for j, op := range b.Ops {
			c.op = j

			if err := c.flow(&st, op); err != nil {
				return err
			}
		}

		c.op = -1

		if err := c.flow(&st, b.Term); err != nil {
			return err
		}

		if _, ok := b.Term.(ir.Return); ok && st.Size() != 0 {
			return c.errorf("return while borrowed from %v without keep_alive", c.names(st))
		}

		for _, s := range b.Term.Succ() {
			k := c.blocks[s]

			if !seen[k] {
				seen[k] = true
				in[k] = st.Copy()
				push(k)

				continue
			}

			if in[k].Merge(st) {
				push(k)
			}
		}
	}

	return nil
}

// flow applies op to the pending owners. An owner must not be
// redefined before its keep_alive.
func (c *checker) flow(st *set.Bits[ir.Reg], op ir.Op) error {
	if ka, ok := op.(ir.KeepAlive); ok {
		for _, v := range ka.Values {
			if r, ok := v.(ir.Reg); ok {
				st.Clear(r)
			}
		}

		return nil
	}

	for _, v := range op.In() {
		r, ok := v.(ir.Reg)
		if !ok {
			continue
		}

		br, ok := c.f.BorrowOf(r)
		if !ok {
			continue
		}

		for _, root := range br.Roots {
			st.Set(root)
		}
	}

	if d, ok := op.(ir.Def); ok {
		if r := d.Out(); r != ir.Nowhere && st.IsSet(r) {
			return c.errorf("%v redefined while borrowed from without keep_alive", c.f.Regs[r].Name)
		}
	}

	return nil
}

func (c *checker) names(st set.Bits[ir.Reg]) []string {
	var l []string

	st.Range(func(r ir.Reg) bool {
		l = append(l, c.f.Regs[r].Name)
		return true
	})

	return l
}
