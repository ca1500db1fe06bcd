package calc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sarchlab/signalflow/sim"
)

var (
	// ErrConfig is matched by every configuration error.
	ErrConfig = errors.New("configuration error")

	// ErrClosedLoop is matched by every closed-loop error.
	ErrClosedLoop = errors.New("closed loop detected")

	// ErrNotInitialized is returned when a node is updated before it has been
	// seeded with its initial value.
	ErrNotInitialized = errors.New("node not initialized")
)

// A ConfigError reports a setting that prevents a model from starting.
type ConfigError struct {
	Component string
	Field     string
	Reason    string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Component, e.Reason)
	}

	return fmt.Sprintf("%s.%s: %s", e.Component, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrConfig) hold.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

func configErrorf(component, field, format string, args ...any) error {
	return &ConfigError{
		Component: component,
		Field:     field,
		Reason:    fmt.Sprintf(format, args...),
	}
}

// A ClosedLoopError is returned when sampling reaches a node that is already
// being sampled further up the same call chain, or when the chain grows past
// the depth bound.
type ClosedLoopError struct {
	Node string
	Path []string
}

func (e *ClosedLoopError) Error() string {
	return fmt.Sprintf("closed loop detected at %s: %s",
		e.Node, strings.Join(e.Path, " -> "))
}

// Is makes errors.Is(err, ErrClosedLoop) hold.
func (e *ClosedLoopError) Is(target error) bool {
	return target == ErrClosedLoop
}

// A SweepError collects the node failures of one sweep. The sweep itself
// always runs every node.
type SweepError struct {
	Controller string
	Time       sim.VTimeInSec
	Errs       []error
}

func (e *SweepError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Sprintf("sweep of %s @ %.10f failed: %s",
		e.Controller, e.Time, strings.Join(msgs, "; "))
}

// Unwrap exposes the node failures to errors.Is and errors.As.
func (e *SweepError) Unwrap() []error {
	return e.Errs
}
