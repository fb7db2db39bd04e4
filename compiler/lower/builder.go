package lower

import (
	"fmt"

	"github.com/slowlang/lower/compiler/ast"
	"github.com/slowlang/lower/compiler/ir"
	"github.com/slowlang/lower/compiler/rt"
	"github.com/slowlang/lower/compiler/tp"
)

type (
	// builder is the function-build context. It owns every register
	// and block of the function being lowered.
	builder struct {
		*Lowerer

		f   *ir.Func
		cur *ir.Block

		active map[*ir.Block]bool

		temps int
		vars  map[string]ir.Reg

		loops []loopTargets

		borrows *borrowScope
		roots   map[ir.Reg]ir.Reg // borrowed reg -> chain root
	}

	loopTargets struct {
		cont, exit *ir.Block
	}
)

func newBuilder(l *Lowerer, f *ir.Func) *builder {
	b := &builder{
		Lowerer: l,
		f:       f,
		active:  map[*ir.Block]bool{},
		vars:    map[string]ir.Reg{},
		borrows: &borrowScope{},
		roots:   map[ir.Reg]ir.Reg{},
	}

	b.activate(b.newBlock())

	return b
}

func (b *builder) word() tp.Type { return b.opts.word() }

func (b *builder) temp(t tp.Type) ir.Reg {
	r := b.f.NewReg(fmt.Sprintf("r%d", b.temps), t)
	b.temps++

	return r
}

// local is the register of a named variable, created with t on first use.
func (b *builder) local(name string, t tp.Type) ir.Reg {
	if r, ok := b.vars[name]; ok {
		if got := b.f.Regs[r].Type; !got.Equal(t) {
			invariant("variable %v redeclared as %v, was %v", name, t, got)
		}

		return r
	}

	r := b.f.NewReg(name, t)
	b.vars[name] = r

	return r
}

func (b *builder) lookup(name string) ir.Reg {
	r, ok := b.vars[name]
	if !ok {
		invariant("undefined variable: %v", name)
	}

	return r
}

func (b *builder) typeOf(v ir.Value) tp.Type { return b.f.TypeOf(v) }

func (b *builder) newBlock() *ir.Block { return &ir.Block{} }

// activate appends bl to the function and makes it current.
// The previous block must be sealed by then.
func (b *builder) activate(bl *ir.Block) {
	if b.cur != nil && !b.cur.Sealed() {
		invariant("block L%d left without terminator", b.f.Index(b.cur))
	}

	if b.active[bl] {
		invariant("block L%d activated twice", b.f.Index(bl))
	}

	b.active[bl] = true
	b.f.Blocks = append(b.f.Blocks, bl)
	b.cur = bl
}

// sealed reports whether the current block already ended,
// so anything after it in the same suite is dead.
func (b *builder) sealed() bool { return b.cur.Sealed() }

func (b *builder) add(op ir.Op) {
	if b.cur.Sealed() {
		invariant("add %T to sealed block L%d", op, b.f.Index(b.cur))
	}

	b.cur.Ops = append(b.cur.Ops, op)
}

func (b *builder) term(t ir.Term) {
	if b.cur.Sealed() {
		invariant("second terminator %T in block L%d", t, b.f.Index(b.cur))
	}

	b.cur.Term = t
}

func (b *builder) jump(to *ir.Block) {
	b.term(ir.Goto{Target: to})
}

// jumpIfOpen jumps unless the current block already ended.
func (b *builder) jumpIfOpen(to *ir.Block) {
	if !b.sealed() {
		b.jump(to)
	}
}

func (b *builder) branch(cond ir.Value, t, f *ir.Block) {
	if typ := b.typeOf(cond); typ.Kind != tp.KindBit {
		invariant("branch on %v", typ)
	}

	b.term(ir.Branch{Cond: cond, True: t, False: f})
}

func (b *builder) branchError(r ir.Reg, t, f *ir.Block) {
	b.term(ir.Branch{Cond: r, IsError: true, True: t, False: f})
}

func (b *builder) ret(v ir.Value) {
	b.term(ir.Return{Value: v})
}

// Emission helpers. Each allocates its result register.

func imm(v int64, t tp.Type) ir.Imm { return ir.Imm{V: v, Type: t} }

func (b *builder) assign(dst ir.Reg, src ir.Value) {
	b.add(ir.Assign{Dst: dst, Src: src})
}

func (b *builder) intOp(t tp.Type, op ir.IntOpKind, l, r ir.Value) ir.Reg {
	dst := b.temp(t)
	b.add(ir.IntOp{Dst: dst, Op: op, L: l, R: r})

	return dst
}

func (b *builder) cmp(op ir.CmpKind, l, r ir.Value, signed bool) ir.Reg {
	dst := b.temp(tp.Bit)
	b.add(ir.Cmp{Dst: dst, Op: op, L: l, R: r, Signed: signed && op.Ordered()})

	return dst
}

func (b *builder) extend(v ir.Value, to tp.Type, signed bool) ir.Reg {
	dst := b.temp(to)
	b.add(ir.Extend{Dst: dst, Src: v, Signed: signed})

	return dst
}

func (b *builder) truncate(v ir.Value, to tp.Type) ir.Reg {
	dst := b.temp(to)
	b.add(ir.Truncate{Dst: dst, Src: v})

	return dst
}

func (b *builder) callRT(fn *rt.Func, args ...ir.Value) ir.Reg {
	if len(args) != len(fn.Args) {
		invariant("%v takes %d args, got %d", fn.Name, len(fn.Args), len(args))
	}

	dst := ir.Nowhere
	if fn.Ret.Kind != tp.KindNone {
		dst = b.temp(fn.Ret)
	}

	b.add(ir.CallRT{Dst: dst, Fn: fn, Args: args})

	return dst
}

func (b *builder) keepAlive(vals ...ir.Value) {
	b.add(ir.KeepAlive{Values: vals})
}

func (b *builder) loadNone(t tp.Type) ir.Reg {
	dst := b.temp(t)
	b.add(ir.LoadNone{Dst: dst})

	return dst
}

func (b *builder) pushLoop(cont, exit *ir.Block) {
	b.loops = append(b.loops, loopTargets{cont: cont, exit: exit})
}

func (b *builder) popLoop() {
	b.loops = b.loops[:len(b.loops)-1]
}

func (b *builder) loop(what string) loopTargets {
	if len(b.loops) == 0 {
		invariant("%v outside of a loop", what)
	}

	return b.loops[len(b.loops)-1]
}

// suite lowers statements until one of them ends the block.
func (b *builder) suite(body []ast.Stmt) {
	for _, s := range body {
		if b.sealed() {
			return
		}

		b.stmt(s)
	}
}
