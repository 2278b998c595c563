package index

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when Build is called with no vectors
	ErrEmptyInput = errors.New("no vectors to index")

	// ErrLengthMismatch is returned when the vector and id counts disagree
	ErrLengthMismatch = errors.New("vectors and ids length mismatch")

	// ErrDimensionMismatch is matched by every *DimensionError
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrIndexNotBuilt is returned by Search before any successful Build
	ErrIndexNotBuilt = errors.New("index not built")

	// ErrInvalidK is returned when topK is not positive
	ErrInvalidK = errors.New("top k must be positive")
)

// DimensionError reports a vector whose length disagrees with the index
// dimension. Ordinal is the position of the offending vector during Build,
// or -1 for a query.
type DimensionError struct {
	Expected int
	Actual   int
	Ordinal  int
}

func (e *DimensionError) Error() string {
	if e.Ordinal < 0 {
		return fmt.Sprintf("query dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
	}
	return fmt.Sprintf("dimension mismatch at vector %d: expected %d, got %d", e.Ordinal, e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrDimensionMismatch) hold for any DimensionError
func (e *DimensionError) Is(target error) bool {
	return target == ErrDimensionMismatch
}
