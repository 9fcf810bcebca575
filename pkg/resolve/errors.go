package resolve

import (
	"errors"
	"fmt"
)

// Kind classifies a resolution failure.
type Kind int

const (
	// MissingDefault: size, reset mask or reset value unresolved after
	// derivation and scope defaults.
	MissingDefault Kind = iota + 1
	// FieldRangeOverflow: offset + width exceeds the register size.
	FieldRangeOverflow
	// EmptyPeripheral: no registers after derivation and expansion.
	EmptyPeripheral
	// InvalidWidth: field width outside 1..64, or a bool field wider than 1.
	InvalidWidth
	// DuplicateArrayName: two siblings resolve to the same name.
	DuplicateArrayName
	// DerivationCycle: a derivedFrom chain loops back on itself.
	DerivationCycle
	// InvalidSize: register size is not 8, 16, 32 or 64.
	InvalidSize
	// EmptyRegister: register without fields while those are not allowed.
	EmptyRegister
	// InvalidDimension: explicit array indices disagree with the count.
	InvalidDimension
)

// Sentinel errors, one per Kind. *Error unwraps to these.
var (
	ErrMissingDefault     = errors.New("missing default")
	ErrFieldRangeOverflow = errors.New("field range overflow")
	ErrEmptyPeripheral    = errors.New("empty peripheral")
	ErrInvalidWidth       = errors.New("invalid width")
	ErrDuplicateArrayName = errors.New("duplicate name")
	ErrDerivationCycle    = errors.New("derivation cycle")
	ErrInvalidSize        = errors.New("invalid register size")
	ErrEmptyRegister      = errors.New("empty register")
	ErrInvalidDimension   = errors.New("invalid dimension")
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case MissingDefault:
		return "MissingDefault"
	case FieldRangeOverflow:
		return "FieldRangeOverflow"
	case EmptyPeripheral:
		return "EmptyPeripheral"
	case InvalidWidth:
		return "InvalidWidth"
	case DuplicateArrayName:
		return "DuplicateArrayName"
	case DerivationCycle:
		return "DerivationCycle"
	case InvalidSize:
		return "InvalidSize"
	case EmptyRegister:
		return "EmptyRegister"
	case InvalidDimension:
		return "InvalidDimension"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case MissingDefault:
		return ErrMissingDefault
	case FieldRangeOverflow:
		return ErrFieldRangeOverflow
	case EmptyPeripheral:
		return ErrEmptyPeripheral
	case InvalidWidth:
		return ErrInvalidWidth
	case DuplicateArrayName:
		return ErrDuplicateArrayName
	case DerivationCycle:
		return ErrDerivationCycle
	case InvalidSize:
		return ErrInvalidSize
	case EmptyRegister:
		return ErrEmptyRegister
	case InvalidDimension:
		return ErrInvalidDimension
	default:
		return nil
	}
}

// Error is a fatal resolution failure tied to the node that caused it.
type Error struct {
	Kind Kind

	// Path is the slash separated path of the offending node,
	// e.g. "gpioa/moder/mode3".
	Path string

	Detail string
}

func (e *Error) Error() string {
	msg := "resolve"
	if e.Path != "" {
		msg += " " + e.Path
	}
	if err := e.Kind.sentinel(); err != nil {
		msg += ": " + err.Error()
	} else {
		msg += ": " + e.Kind.String()
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap returns the sentinel error for the kind, or nil for an unknown kind.
func (e *Error) Unwrap() error {
	return e.Kind.sentinel()
}

// Errorf builds an *Error. It is exported for the other front ends that
// share the taxonomy.
func Errorf(kind Kind, path, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Detail: fmt.Sprintf(format, args...)}
}
