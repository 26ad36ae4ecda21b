package decluster

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks a missing or unusable external dependency.
	ErrConfiguration = errors.New("decluster configuration")
	// ErrLookup marks a failed device or memory-type resolution for a
	// visited node.
	ErrLookup = errors.New("decluster lookup")
	// ErrInvariant marks a violated convergence assumption. It signals a
	// defect in the pass, not a user-recoverable condition.
	ErrInvariant = errors.New("decluster invariant violated")
)

// PassError wraps deterministic pass failures.
type PassError struct {
	Kind error
	Msg  string
}

func (e *PassError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *PassError) Unwrap() error { return e.Kind }

func configf(format string, args ...any) error {
	return &PassError{Kind: ErrConfiguration, Msg: fmt.Sprintf(format, args...)}
}

func lookupf(format string, args ...any) error {
	return &PassError{Kind: ErrLookup, Msg: fmt.Sprintf(format, args...)}
}

func invariantf(format string, args ...any) error {
	return &PassError{Kind: ErrInvariant, Msg: fmt.Sprintf(format, args...)}
}
