package lower

import (
	"github.com/slowlang/lower/compiler/ast"
	"github.com/slowlang/lower/compiler/ir"
)

// ifStmt lowers an if/elif/else chain. Each clause's test lives in the
// previous clause's false block and every arm meets at one join block.
func (b *builder) ifStmt(s *ast.If) {
	if len(s.Clauses) == 0 {
		invariant("if without clauses")
	}

	join := b.newBlock()
	reached := false

	// toJoin ends an arm. join is only placed if some arm gets there.
	toJoin := func() {
		if !b.sealed() {
			b.jump(join)
			reached = true
		}
	}

	for i, c := range s.Clauses {
		cond := b.cond(c.Cond)
		b.release()

		then := b.newBlock()

		next := join
		if i+1 < len(s.Clauses) || len(s.Else) != 0 {
			next = b.newBlock()
		} else {
			reached = true
		}

		b.branch(cond, then, next)

		b.activate(then)
		b.suite(c.Body)
		toJoin()

		if next != join {
			b.activate(next)
		}
	}

	if len(s.Else) != 0 {
		b.suite(s.Else)
		toJoin()
	}

	if reached {
		b.activate(join)
	}
}

// forRange lowers a counted loop. The bound is evaluated once
// and the loop variable itself is the induction register.
func (b *builder) forRange(s *ast.ForRange) {
	t := s.Type
	if !t.IsNative() {
		invariant("range loop over %v", t)
	}

	start := b.coerce(b.expr(s.Start), t)
	stop := b.coerce(b.expr(s.Stop), t)

	if r, ok := stop.(ir.Reg); ok && b.isVar(r) {
		bound := b.temp(t)
		b.assign(bound, r)
		stop = bound
	}

	i := b.local(s.Var, t)
	b.assign(i, start)
	b.release()

	header, body, cont, exit := b.newBlock(), b.newBlock(), b.newBlock(), b.newBlock()

	b.jump(header)

	b.activate(header)
	c := b.cmp(ir.Lt, i, stop, true)
	b.branch(c, body, exit)

	b.activate(body)
	b.pushLoop(cont, exit)
	b.suite(s.Body)
	b.popLoop()
	b.jumpIfOpen(cont)

	b.activate(cont)
	n := b.intOp(t, ir.Add, i, imm(1, t))
	b.assign(i, n)
	b.jump(header)

	b.activate(exit)
}

func (b *builder) whileStmt(s *ast.While) {
	header, body, exit := b.newBlock(), b.newBlock(), b.newBlock()

	b.jump(header)

	b.activate(header)
	c := b.cond(s.Cond)
	b.release()
	b.branch(c, body, exit)

	b.activate(body)
	b.pushLoop(header, exit)
	b.suite(s.Body)
	b.popLoop()
	b.jumpIfOpen(header)

	b.activate(exit)
}

func (b *builder) isVar(r ir.Reg) bool {
	for _, v := range b.vars {
		if v == r {
			return true
		}
	}

	return false
}
