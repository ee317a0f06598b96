package cli

import "errors"

var ErrUsage = errors.New("cli usage error")

// ErrDiagnostics marks a run that completed and printed its findings but
// must still exit non-zero: a fatal diagnostic or a duplicate route
// conflict. The report has already been written, so callers exit silently.
var ErrDiagnostics = errors.New("diagnostics reported")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}
