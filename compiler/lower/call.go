package lower

import (
	"fmt"

	"tlog.app/go/errors"

	"github.com/slowlang/lower/compiler/ast"
	"github.com/slowlang/lower/compiler/ir"
	"github.com/slowlang/lower/compiler/tp"
)

// callConv is the lowered signature shared by a function body and its call sites.
// Optional primitive parameters are each given a bit in a hidden i32 bitmap
// saying whether the caller passed them.
type callConv struct {
	Name   string
	Params []ast.Param
	Ret    tp.Type

	// Bit is the bitmap bit of each parameter, -1 if it has none.
	Bit     []int
	Bitmaps int

	Method bool
}

const bitmapBits = 32

func (l *Lowerer) addConv(name string, fn *ast.Func, method bool) error {
	if _, ok := l.convs[name]; ok {
		return errors.New("duplicate function: %v", name)
	}

	c := &callConv{
		Name:   name,
		Params: fn.Params,
		Ret:    fn.Ret,
		Bit:    make([]int, len(fn.Params)),
		Method: method,
	}

	if c.Ret.Kind == tp.Invalid {
		c.Ret = tp.None
	}

	seen := map[string]bool{}
	bits := 0
	optional := false

	for i, p := range fn.Params {
		if seen[p.Name] {
			return errors.New("%v: duplicate parameter %v", name, p.Name)
		}

		seen[p.Name] = true

		c.Bit[i] = -1

		if p.Default == nil {
			if optional {
				return errors.New("%v: required parameter %v after optional", name, p.Name)
			}

			continue
		}

		optional = true

		if p.Type.IsPrimitive() {
			c.Bit[i] = bits
			bits++
		}
	}

	c.Bitmaps = (bits + bitmapBits - 1) / bitmapBits

	l.convs[name] = c

	return nil
}

func bitmapName(i int) string {
	if i == 0 {
		return "__bitmap"
	}

	return fmt.Sprintf("__bitmap%d", i+1)
}

// bitMask is bit k of a bitmap word as an i32 immediate.
func bitMask(k int) int64 {
	return int64(int32(uint32(1) << (k % bitmapBits)))
}

// params declares the parameter registers and fills in the defaults
// of the optional parameters the caller left out.
func (b *builder) params(c *callConv) {
	for _, p := range c.Params {
		r := b.local(p.Name, p.Type)
		b.f.Params = append(b.f.Params, ir.Param{Reg: r, Optional: p.Default != nil})
	}

	for i := 0; i < c.Bitmaps; i++ {
		r := b.f.NewReg(bitmapName(i), tp.I32)
		b.f.Bitmaps = append(b.f.Bitmaps, r)
	}

	for i, p := range c.Params {
		if p.Default == nil {
			continue
		}

		r := b.vars[p.Name]

		set, next := b.newBlock(), b.newBlock()

		if k := c.Bit[i]; k >= 0 {
			bm := b.f.Bitmaps[k/bitmapBits]

			m := b.intOp(tp.I32, ir.And, bm, imm(bitMask(k), tp.I32))
			z := b.cmp(ir.Eq, m, imm(0, tp.I32), false)
			b.branch(z, set, next)
		} else {
			b.branchError(r, set, next)
		}

		b.activate(set)
		b.assign(r, b.coerce(b.expr(p.Default), p.Type))
		b.release()
		b.jump(next)

		b.activate(next)
	}
}

// callArgs maps positional and keyword arguments to parameter slots,
// fills the omitted ones with placeholders and appends the bitmaps.
// skip leading parameters are passed separately, like a method receiver.
func (b *builder) callArgs(c *callConv, args []ast.Expr, kwargs []ast.Kwarg, skip int) []ir.Value {
	params := c.Params[skip:]

	if len(args) > len(params) {
		invariant("%v takes %d arguments, got %d", c.Name, len(params), len(args))
	}

	slots := make([]ir.Value, len(params), len(params)+c.Bitmaps)

	for i, a := range args {
		slots[i] = b.coerce(b.expr(a), params[i].Type)
	}

	for _, kw := range kwargs {
		i := paramIndex(params, kw.Name)
		if i < 0 {
			invariant("%v has no parameter %v", c.Name, kw.Name)
		}

		if slots[i] != nil {
			invariant("%v: parameter %v passed twice", c.Name, kw.Name)
		}

		slots[i] = b.coerce(b.expr(kw.Value), params[i].Type)
	}

	masks := make([]int64, c.Bitmaps)

	for i, p := range params {
		k := c.Bit[i+skip]

		if slots[i] != nil {
			if k >= 0 {
				masks[k/bitmapBits] |= 1 << (k % bitmapBits)
			}

			continue
		}

		if p.Default == nil {
			invariant("%v: missing argument %v", c.Name, p.Name)
		}

		if p.Type.IsPrimitive() {
			slots[i] = imm(0, p.Type)
			continue
		}

		r := b.temp(p.Type)
		b.add(ir.LoadError{Dst: r})
		slots[i] = r
	}

	for _, m := range masks {
		slots = append(slots, imm(int64(int32(uint32(m))), tp.I32))
	}

	return slots
}

func paramIndex(params []ast.Param, name string) int {
	for i, p := range params {
		if p.Name == name {
			return i
		}
	}

	return -1
}

func (b *builder) call(e *ast.Call) ir.Value {
	c := b.convs[e.Func]
	if c == nil || c.Method {
		invariant("call of unknown function %v", e.Func)
	}

	args := b.callArgs(c, e.Args, e.Kwargs, 0)

	dst := b.temp(c.Ret)
	b.add(ir.Call{Dst: dst, Fn: e.Func, Args: args})

	return b.coerce(dst, callType(e.Type, c.Ret))
}

func (b *builder) methodCall(e *ast.MethodCall) ir.Value {
	name := e.Class + "." + e.Method

	c := b.convs[name]
	if c == nil || !c.Method {
		invariant("call of unknown method %v", name)
	}

	obj := b.expr(e.Obj)
	if t := b.typeOf(obj); !t.IsRef() {
		invariant("method %v called on %v", name, t)
	}

	args := b.callArgs(c, e.Args, e.Kwargs, 1)

	dst := b.temp(c.Ret)
	b.add(ir.MethodCall{Dst: dst, Obj: obj, Class: e.Class, Method: e.Method, Args: args})

	return b.coerce(dst, callType(e.Type, c.Ret))
}

func callType(t, ret tp.Type) tp.Type {
	if t.Kind == tp.Invalid {
		return ret
	}

	return t
}
