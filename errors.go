package nbhm

import "fmt"

// ErrInvalidArgument is returned when a constructor or option is given an
// out-of-range capacity, a nil comparator where one is required, or any
// other caller-supplied value that cannot be honoured.
var ErrInvalidArgument = fmt.Errorf("nbhm: invalid argument")

// ErrKeyAbsent is returned by accessors that do not tolerate a missing key.
var ErrKeyAbsent = fmt.Errorf("nbhm: key absent")

// ErrCapacityExceeded is returned when a resize target would exceed the
// maximum table size (2^30 slots).
var ErrCapacityExceeded = fmt.Errorf("nbhm: capacity exceeded")

// PredicateFaultError wraps an error raised by a caller-supplied predicate
// or factory function (e.g. passed to UpdateOrInsert or RemoveWhere). The
// operation aborts at the next safe point: no slot is left mid-transition
// in a way another thread could not still complete.
type PredicateFaultError struct {
	Err error
}

func (e *PredicateFaultError) Error() string {
	return fmt.Sprintf("nbhm: predicate or factory fault: %v", e.Err)
}

func (e *PredicateFaultError) Unwrap() error {
	return e.Err
}

func predicateFault(err error) error {
	if err == nil {
		return nil
	}

	return &PredicateFaultError{Err: err}
}

func invalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
