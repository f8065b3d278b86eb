package engine

import (
	"errors"
	"fmt"
)

// Domain errors for plasma calculations.
var (
	// ErrInputRange indicates a driving slider outside [0,80].
	ErrInputRange = errors.New("engine: driving input out of range")

	// ErrDegenerate indicates a reference quantity that would divide by zero.
	ErrDegenerate = errors.New("engine: degenerate reference state")

	// ErrNonFinite indicates a NaN or Inf reached the result record.
	ErrNonFinite = errors.New("engine: non-finite result")
)

// NumericError names the quantity that failed a numeric guard.
type NumericError struct {
	Quantity string
	Value    float64
	Err      error
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("%s: %s=%g", e.Err, e.Quantity, e.Value)
}

func (e *NumericError) Unwrap() error {
	return e.Err
}
