package semaphore

import (
	"fmt"

	"github.com/pkg/errors"
)

// OverCapacityError is the panic value of Acquire (and of a guard's
// Release) if the weight can never fit into the semaphore.
type OverCapacityError struct {
	Op       string
	Weight   int64
	Capacity int64
}

func (e *OverCapacityError) Error() string {
	if e.Weight < 1 {
		return fmt.Sprintf("semaphore: %s: weight must be positive, got %d", e.Op, e.Weight)
	}
	return fmt.Sprintf("semaphore: %s: weight %d exceeds capacity %d", e.Op, e.Weight, e.Capacity)
}

// InvalidCapacityError is the panic value of New for a capacity below 1.
type InvalidCapacityError struct {
	Capacity int64
}

func (e *InvalidCapacityError) Error() string {
	return fmt.Sprintf("semaphore: capacity must be at least 1, got %d", e.Capacity)
}

// ErrNegativeOutstanding indicates a release without a matching acquire.
var ErrNegativeOutstanding = errors.New("semaphore: outstanding weight would become negative")
