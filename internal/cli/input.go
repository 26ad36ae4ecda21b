package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"clustertrim/internal/decluster"
)

const (
	ExitSuccess           = 0
	ExitPassFailure       = 1
	ExitInvalidInvocation = 2
	ExitLoadFailure       = 3
	ExitInternalError     = 4
)

// Invocation is the fully canonicalized, deterministic description of a run.
// All paths are cleaned; nothing here is read from the environment.
type Invocation struct {
	GraphPath    string
	RegistryPath string
	OutputPath   string
	TracePath    string

	DeclusterDynamicOps bool
	DynamicOps          []string
	Verbose             bool
}

type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

func loadFailuref(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitLoadFailure, Message: fmt.Sprintf(format, args...)}
}

// Canonicalize validates the invocation and normalizes its paths in place.
func (inv *Invocation) Canonicalize() error {
	var err error
	if inv.GraphPath, err = cleanPath("--graph", inv.GraphPath, true); err != nil {
		return err
	}
	if inv.RegistryPath, err = cleanPath("--ops", inv.RegistryPath, true); err != nil {
		return err
	}
	if inv.OutputPath, err = cleanPath("--out", inv.OutputPath, false); err != nil {
		return err
	}
	if inv.TracePath, err = cleanPath("--trace", inv.TracePath, false); err != nil {
		return err
	}
	for _, op := range inv.DynamicOps {
		if strings.TrimSpace(op) == "" {
			return invalidInvocationf("--dynamic-op must not be blank")
		}
	}
	return nil
}

func cleanPath(flag, p string, required bool) (string, error) {
	if strings.TrimSpace(p) == "" {
		if required {
			return "", invalidInvocationf("%s is required", flag)
		}
		return "", nil
	}
	clean := filepath.Clean(p)
	if clean == "." {
		return "", invalidInvocationf("%s must not be '.'", flag)
	}
	return clean, nil
}

// ExitCodeFor maps an execution error to its semantic exit code. Pass
// errors (configuration, lookup, invariant violation) all mean the run
// produced no result and map to ExitPassFailure.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	var passErr *decluster.PassError
	if errors.As(err, &passErr) {
		return ExitPassFailure
	}
	return ExitInternalError
}
