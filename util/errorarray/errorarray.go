// Package errorarray aggregates the errors of several independent
// operations under a common message.
package errorarray

import (
	"fmt"
	"strings"
)

type Errors struct {
	Msg     string
	Wrapped []error
}

var _ error = Errors{}

// Wrap returns nil if errs contains no non-nil error.
// Otherwise, it returns an Errors with the non-nil errors of errs.
func Wrap(errs []error, msg string) error {
	var wrapped []error
	for _, err := range errs {
		if err != nil {
			wrapped = append(wrapped, err)
		}
	}
	if len(wrapped) == 0 {
		return nil
	}
	return Errors{Msg: msg, Wrapped: wrapped}
}

func (e Errors) Unwrap() []error {
	return e.Wrapped
}

func (e Errors) Error() string {
	if len(e.Wrapped) == 1 {
		return fmt.Sprintf("%s: %s", e.Msg, e.Wrapped[0])
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s: %d errors:", e.Msg, len(e.Wrapped))
	for _, err := range e.Wrapped {
		fmt.Fprintf(&buf, "\n%s", err)
	}
	return buf.String()
}
