package lower

import (
	"fmt"

	"tlog.app/go/loc"
)

// InvariantError is a type combination the lowerer has no rule for.
// It means the typed tree is malformed, so the function is abandoned.
type InvariantError struct {
	Func string
	Msg  string
	PC   loc.PC
}

func (e *InvariantError) Error() string {
	if e.Func == "" {
		return fmt.Sprintf("internal invariant violated: %s", e.Msg)
	}

	return fmt.Sprintf("internal invariant violated in %s: %s", e.Func, e.Msg)
}

// invariant aborts lowering of the current function.
func invariant(f string, args ...any) {
	panic(&InvariantError{
		Msg: fmt.Sprintf(f, args...),
		PC:  loc.Caller(1),
	})
}

// recoverInvariant turns an InvariantError panic into err.
// Other panics keep unwinding.
func recoverInvariant(fn string, err *error) {
	p := recover()
	if p == nil {
		return
	}

	e, ok := p.(*InvariantError)
	if !ok {
		panic(p)
	}

	e.Func = fn
	*err = e
}
