package core

import (
	"time"

	"github.com/ChristofferGreen/pathspace/path"
)

// NeverTimeout expresses "never" as a very large duration, matching the
// original Out.hpp default (spec §4.9).
const NeverTimeout = 1<<63 - 1

// Out is the composable access-options struct consumed by read/take.
// Modeled on the original core/Out.hpp right-fold of modifiers; Go's
// idiom for that fold is functional options (OutOption), applied
// left-to-right over DefaultOut by NewOut.
type Out struct {
	DoBlock         bool
	DoPop           bool
	Timeout         time.Duration
	ValidationLevel path.ValidationLevel
}

// DefaultOut is the zero-cost non-blocking, peek (not pop), Basic-validated
// options value used when the caller passes none.
var DefaultOut = Out{
	DoBlock:         false,
	DoPop:           false,
	Timeout:         NeverTimeout,
	ValidationLevel: path.Basic,
}

// OutOption is a single modifier in the right-fold; apply modifies a copy
// of Out in place.
type OutOption func(*Out)

// NewOut folds zero or more options over DefaultOut, left to right.
func NewOut(opts ...OutOption) Out {
	o := DefaultOut
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Block makes the operation wait up to timeout for data or a matching
// notification before returning Timeout.
func Block(timeout time.Duration) OutOption {
	return func(o *Out) {
		o.DoBlock = true
		o.Timeout = timeout
	}
}

// Pop makes take (rather than read) semantics apply: the head is removed
// from the queue on success.
func Pop() OutOption {
	return func(o *Out) { o.DoPop = true }
}

// WithValidation overrides the path validation level.
func WithValidation(level path.ValidationLevel) OutOption {
	return func(o *Out) { o.ValidationLevel = level }
}

// OutNoValidation disables path validation entirely.
func OutNoValidation() OutOption { return WithValidation(path.None) }

// OutFullValidation enables the strictest path validation.
func OutFullValidation() OutOption { return WithValidation(path.Full) }

// InOptions carries insert-side modifiers. The spec notes these "are not
// required for correctness of the core"; ExecutionCategory is carried as
// a hint for layer providers. None of the built-in providers reads it.
type InOptions struct {
	ValidationLevel  path.ValidationLevel
	ExecutionCategory ExecutionCategory
}

// ExecutionCategory hints at how urgently a provider should process an
// inserted value.
type ExecutionCategory int

const (
	ExecutionImmediate ExecutionCategory = iota
	ExecutionLazy
)

// DefaultInOptions mirrors DefaultOut's validation default.
var DefaultInOptions = InOptions{ValidationLevel: path.Basic}

// InOption is a functional option over InOptions, matching OutOption's shape.
type InOption func(*InOptions)

// NewInOptions folds zero or more options over DefaultInOptions.
func NewInOptions(opts ...InOption) InOptions {
	o := DefaultInOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithExecutionCategory sets the insert's execution-category hint.
func WithExecutionCategory(c ExecutionCategory) InOption {
	return func(o *InOptions) { o.ExecutionCategory = c }
}
