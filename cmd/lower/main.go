package main

import (
	"context"
	"fmt"
	"math/big"
	"os"

	"github.com/xyproto/env/v2"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/lower/compiler"
	"github.com/slowlang/lower/compiler/interp"
	"github.com/slowlang/lower/compiler/lower"
)

func main() {
	irCmd := &cli.Command{
		Name:        "ir",
		Description: "lower typed tree files and print the ir",
		Action:      irAct,
		Args:        cli.Args{},
	}

	checkCmd := &cli.Command{
		Name:        "check",
		Description: "lower and verify typed tree files",
		Action:      checkAct,
		Args:        cli.Args{},
	}

	runCmd := &cli.Command{
		Name:        "run",
		Description: "run FILE FUNC [ARGS...] on the ir interpreter",
		Action:      runAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("steps", 1_000_000, "instructions limit, 0 is no limit"),
		},
	}

	app := &cli.Command{
		Name:        "lower",
		Description: "lower is a tool for lowering typed python-like trees into the slow ir",
		Flags: []*cli.Flag{
			cli.NewFlag("verbosity,v", "", "tlog verbosity topics (lower_dump, verify, interp_trace, front_dump)"),
			cli.NewFlag("word", env.Int("LOWER_WORD_BITS", 64), "machine word width: 32 or 64"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			irCmd,
			checkCmd,
			runCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func setup(c *cli.Command) (context.Context, lower.Options) {
	tlog.SetVerbosity(c.String("verbosity"))

	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	return ctx, lower.Options{WordBits: c.Int("word")}
}

func irAct(c *cli.Command) (err error) {
	ctx, opts := setup(c)

	for _, a := range c.Args {
		m, err := compiler.LowerFile(ctx, a, opts)
		if err != nil {
			return errors.Wrap(err, "lower %v", a)
		}

		fmt.Printf("%s", compiler.Text(m))
	}

	return nil
}

func checkAct(c *cli.Command) (err error) {
	ctx, opts := setup(c)

	for _, a := range c.Args {
		m, err := compiler.LowerFile(ctx, a, opts)
		if err != nil {
			return errors.Wrap(err, "check %v", a)
		}

		fmt.Printf("%v: ok, %d funcs\n", a, len(m.Funcs))
	}

	return nil
}

func runAct(c *cli.Command) (err error) {
	ctx, opts := setup(c)

	if len(c.Args) < 2 {
		return errors.New("usage: run FILE FUNC [ARGS...]")
	}

	m, err := compiler.LowerFile(ctx, c.Args[0], opts)
	if err != nil {
		return errors.Wrap(err, "lower %v", c.Args[0])
	}

	args := make([]any, 0, len(c.Args)-2)

	for _, a := range c.Args[2:] {
		v, err := parseArg(a)
		if err != nil {
			return err
		}

		args = append(args, v)
	}

	x := interp.New(m, opts.WordBits)
	x.MaxSteps = c.Int("steps")

	res, err := x.Call(ctx, c.Args[1], args...)
	if err != nil {
		return errors.Wrap(err, "run %v", c.Args[1])
	}

	if res == nil {
		res = "None"
	}

	fmt.Printf("%v\n", res)

	return nil
}

func parseArg(a string) (any, error) {
	switch a {
	case "None", "none":
		return nil, nil
	case "True", "true":
		return true, nil
	case "False", "false":
		return false, nil
	}

	x, ok := new(big.Int).SetString(a, 0)
	if !ok {
		return nil, errors.New("bad argument: %q", a)
	}

	return x, nil
}
