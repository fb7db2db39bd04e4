package tp

import (
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog/tlwire"
)

type (
	Kind int8

	// Type is a Value Type. Elems holds tuple item types
	// or the single present type of an Optional.
	Type struct {
		Kind  Kind
		Elems []Type
	}
)

const (
	Invalid Kind = iota
	KindI32
	KindI64
	KindInt
	KindBit
	KindObject
	KindPtr
	KindTuple
	KindList
	KindOptional
	KindNone
)

var (
	I32    = Type{Kind: KindI32}
	I64    = Type{Kind: KindI64}
	Int    = Type{Kind: KindInt}
	Bit    = Type{Kind: KindBit}
	Object = Type{Kind: KindObject}
	Ptr    = Type{Kind: KindPtr}
	List   = Type{Kind: KindList}
	None   = Type{Kind: KindNone}
)

func Tuple(elems ...Type) Type {
	return Type{Kind: KindTuple, Elems: elems}
}

func Optional(x Type) Type {
	return Type{Kind: KindOptional, Elems: []Type{x}}
}

// Word is the native integer type of a machine word.
func Word(bits int) Type {
	if bits == 32 {
		return I32
	}

	return I64
}

func (t Type) Equal(x Type) bool {
	if t.Kind != x.Kind || len(t.Elems) != len(x.Elems) {
		return false
	}

	for i := range t.Elems {
		if !t.Elems[i].Equal(x.Elems[i]) {
			return false
		}
	}

	return true
}

// IsNative reports fixed-width two's-complement integers.
func (t Type) IsNative() bool {
	return t.Kind == KindI32 || t.Kind == KindI64
}

func (t Type) IsPrimitive() bool {
	switch t.Kind {
	case KindI32, KindI64, KindInt, KindBit:
		return true
	default:
		return false
	}
}

// IsRef reports types held as object references.
func (t Type) IsRef() bool {
	switch t.Kind {
	case KindObject, KindTuple, KindList, KindOptional, KindNone:
		return true
	default:
		return false
	}
}

// Bits is the width of a native integer or bit.
func (t Type) Bits() int {
	switch t.Kind {
	case KindI32:
		return 32
	case KindI64:
		return 64
	case KindBit:
		return 1
	default:
		return 0
	}
}

// Elem is the present type of an Optional.
func (t Type) Elem() Type {
	if t.Kind != KindOptional {
		return Type{}
	}

	return t.Elems[0]
}

func (t Type) Size() int {
	switch t.Kind {
	case KindI32:
		return 4
	case KindBit:
		return 1
	case Invalid:
		return 0
	default:
		return 8
	}
}

func (t Type) String() string {
	switch t.Kind {
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindInt:
		return "int"
	case KindBit:
		return "bit"
	case KindObject:
		return "object"
	case KindPtr:
		return "ptr"
	case KindList:
		return "list"
	case KindNone:
		return "none"
	case KindOptional:
		return "optional[" + t.Elem().String() + "]"
	case KindTuple:
		var b strings.Builder

		b.WriteString("tuple[")

		for i, e := range t.Elems {
			if i != 0 {
				b.WriteString(", ")
			}

			b.WriteString(e.String())
		}

		b.WriteString("]")

		return b.String()
	default:
		return "invalid"
	}
}

func (t Type) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	return e.AppendFormat(b, "%v", t)
}

// Parse reads a type spelled the way String renders it.
func Parse(s string) (Type, error) {
	t, rest, err := parse(strings.TrimSpace(s))
	if err != nil {
		return Type{}, errors.Wrap(err, "type %q", s)
	}

	if rest != "" {
		return Type{}, errors.New("type %q: trailing %q", s, rest)
	}

	return t, nil
}

func parse(s string) (t Type, rest string, err error) {
	i := 0
	for i < len(s) && (s[i] >= 'a' && s[i] <= 'z' || s[i] >= '0' && s[i] <= '9') {
		i++
	}

	name, rest := s[:i], strings.TrimSpace(s[i:])

	switch name {
	case "i32":
		return I32, rest, nil
	case "i64":
		return I64, rest, nil
	case "int":
		return Int, rest, nil
	case "bit", "bool":
		return Bit, rest, nil
	case "object":
		return Object, rest, nil
	case "ptr":
		return Ptr, rest, nil
	case "list":
		return List, rest, nil
	case "none":
		return None, rest, nil
	case "tuple", "optional":
	case "":
		return Type{}, s, errors.New("expected type name")
	default:
		return Type{}, s, errors.New("unknown type: %v", name)
	}

	if !strings.HasPrefix(rest, "[") {
		return Type{}, rest, errors.New("%v: expected [", name)
	}

	rest = strings.TrimSpace(rest[1:])

	var elems []Type

	for !strings.HasPrefix(rest, "]") {
		if len(elems) != 0 {
			if !strings.HasPrefix(rest, ",") {
				return Type{}, rest, errors.New("%v: expected , or ]", name)
			}

			rest = strings.TrimSpace(rest[1:])
		}

		var e Type

		e, rest, err = parse(rest)
		if err != nil {
			return Type{}, rest, err
		}

		elems = append(elems, e)
	}

	rest = strings.TrimSpace(rest[1:])

	if name == "optional" {
		if len(elems) != 1 {
			return Type{}, rest, errors.New("optional takes one type, got %d", len(elems))
		}

		return Optional(elems[0]), rest, nil
	}

	return Tuple(elems...), rest, nil
}
