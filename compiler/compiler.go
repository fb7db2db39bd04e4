package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/lower/compiler/analyze"
	"github.com/slowlang/lower/compiler/ast"
	"github.com/slowlang/lower/compiler/format"
	"github.com/slowlang/lower/compiler/front"
	"github.com/slowlang/lower/compiler/ir"
	"github.com/slowlang/lower/compiler/lower"
)

func LowerFile(ctx context.Context, name string, opts lower.Options) (m *ir.Module, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Lower(ctx, name, text, opts)
}

// Lower parses the typed tree text, lowers it and verifies the result.
func Lower(ctx context.Context, name string, text []byte, opts lower.Options) (m *ir.Module, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compiler: lower", "name", name, "word", opts.WordBits)
	defer tr.Finish("err", &err)

	x, err := front.Parse(ctx, text)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	return LowerModule(ctx, x, opts)
}

// LowerModule lowers an already built tree.
func LowerModule(ctx context.Context, x *ast.Module, opts lower.Options) (m *ir.Module, err error) {
	m, err = lower.Module(ctx, x, opts)
	if err != nil {
		return nil, errors.Wrap(err, "lower")
	}

	err = analyze.Module(ctx, m, opts.WordBits)
	if err != nil {
		return nil, errors.Wrap(err, "verify")
	}

	return m, nil
}

// Text renders m in the textual IR form.
func Text(m *ir.Module) []byte {
	return format.Module(nil, m)
}
