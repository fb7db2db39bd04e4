package interp

import "fmt"

type (
	FaultKind int

	// Fault is a runtime error raised by a runtime routine
	// or by an instruction on a bad operand.
	Fault struct {
		Kind FaultKind
		Msg  string
	}
)

const (
	TypeError FaultKind = iota
	OverflowError
	ZeroDivisionError
	IndexError
	AttributeError
	ValueError
)

var faultNames = [...]string{
	TypeError:         "TypeError",
	OverflowError:     "OverflowError",
	ZeroDivisionError: "ZeroDivisionError",
	IndexError:        "IndexError",
	AttributeError:    "AttributeError",
	ValueError:        "ValueError",
}

func (k FaultKind) String() string { return faultNames[k] }

func (f *Fault) Error() string {
	return f.Kind.String() + ": " + f.Msg
}

func fault(k FaultKind, format string, args ...any) *Fault {
	return &Fault{Kind: k, Msg: fmt.Sprintf(format, args...)}
}
