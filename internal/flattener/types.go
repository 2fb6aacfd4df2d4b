package flattener

import (
	"errors"
	"fmt"
)

// #region kinds

// Kind is the inferred value kind of one row slot, fixed at fit time.
type Kind int

const (
	// KindPending marks a slot whose kind could not be inferred yet
	// (only empty untyped collections seen so far).
	KindPending Kind = iota
	// KindNumber is a scalar coerced to float64, one column.
	KindNumber
	// KindEnum is an enumerated label, one-hot encoded, columns
	// discovered incrementally.
	KindEnum
	// KindSequence is a fixed-length numeric sequence, one column per
	// offset.
	KindSequence
	// KindBag is an unordered multiset of labels, frequency counted,
	// one column per distinct label.
	KindBag
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindEnum:
		return "enum"
	case KindSequence:
		return "sequence"
	case KindBag:
		return "bag"
	default:
		return "pending"
	}
}

// #endregion kinds

// #region column-key

// ColumnKey identifies one output column: the row slot it came from
// plus a discriminator. Label discriminates enumerated and bag
// columns, Offset sequence columns; number columns use neither
// (Offset -1).
type ColumnKey struct {
	Slot   int
	Label  string
	Offset int
}

func numberKey(slot int) ColumnKey        { return ColumnKey{Slot: slot, Offset: -1} }
func labelKey(slot int, l string) ColumnKey { return ColumnKey{Slot: slot, Label: l, Offset: -1} }
func offsetKey(slot, j int) ColumnKey     { return ColumnKey{Slot: slot, Offset: j} }

// #endregion column-key

// #region errors

var (
	// ErrNotFitted is returned when transforming before a fit.
	ErrNotFitted = errors.New("flattener is not fitted")

	// ErrValidation wraps every row shape or kind mismatch.
	ErrValidation = errors.New("validation failed")
)

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// #endregion errors
