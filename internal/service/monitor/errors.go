package monitor

import (
	"fmt"

	"github.com/Temutjin2k/ispeed/internal/domain/types"
)

// InvalidInputError is returned by Start for an empty or unknown destination.
// errors.Is(err, types.ErrInvalidInput) holds for it.
type InvalidInputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == types.ErrInvalidInput
}
