package vocab

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidLevel is returned for a level outside A1-B2, before any
	// storage access happens.
	ErrInvalidLevel = errors.New("vocab: invalid level")

	// ErrStoreUnavailable is returned when the store root does not exist.
	ErrStoreUnavailable = errors.New("vocab: vocabulary store unavailable")
)

// Attempt records one failed attempt to open a table: which identifier was
// tried, through which access method, and what went wrong.
type Attempt struct {
	Identifier string
	Method     string
	Err        error
}

// TableNotFoundError is returned only after every resolution strategy has been
// exhausted. It carries the full attempt history and the identifiers that were
// discovered in the store, so an operator can spot a naming mismatch between
// writer and reader.
type TableNotFoundError struct {
	Expected   string
	Attempts   []Attempt
	Discovered []string
}

func (e *TableNotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "vocab: table %q not found after %d attempts", e.Expected, len(e.Attempts))
	if len(e.Discovered) > 0 {
		fmt.Fprintf(&b, " (store has: %s)", strings.Join(e.Discovered, ", "))
	}
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "; %s via %s: %v", a.Identifier, a.Method, a.Err)
	}
	return b.String()
}

// Unwrap exposes every underlying attempt error for errors.Is/As matching.
func (e *TableNotFoundError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// AttemptedIdentifiers returns the distinct identifiers tried, in order.
func (e *TableNotFoundError) AttemptedIdentifiers() []string {
	var out []string
	seen := make(map[string]bool)
	for _, a := range e.Attempts {
		if !seen[a.Identifier] {
			seen[a.Identifier] = true
			out = append(out, a.Identifier)
		}
	}
	return out
}
