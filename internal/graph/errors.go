package graph

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidGraph = errors.New("invalid graph")
	ErrUnknownNode  = errors.New("unknown node")
)

// GraphError wraps deterministic graph construction/mutation failures.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func invalidf(format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidGraph, Msg: fmt.Sprintf(format, args...)}
}

func unknownf(format string, args ...any) error {
	return &GraphError{Kind: ErrUnknownNode, Msg: fmt.Sprintf(format, args...)}
}
