// Package errors provides error handling and the warning system for the whole
// pipeline. Errors are structured types with stack traces attached via
// cockroachdb/errors; every type knows how to marshal itself into a zerolog
// event for structured logging.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// Default handler logs to standard error.
		log.Printf("dftgo-Warning: %v\n", w)
	}
	// zerolog sink, initialized lazily to avoid an import cycle.
	zerologWarnFunc func(warning error)
)

// SetWarningHandler sets the warning handler for the whole library.
// This controls how non-fatal conditions such as ConvergenceWarning are
// reported.
//
// Example:
//
//	errors.SetWarningHandler(func(w error) {
//	    // ignore warnings
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc installs a zerolog-backed warning sink (lazily, to avoid
// an import cycle with the logging package).
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning. If a zerolog sink is installed it takes precedence,
// otherwise the plain handler is used.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	Warning types
//
// ===========================================================================

// ConvergenceWarning is emitted when an iterative solve finished without
// reaching the requested tolerance but the result is still usable.
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s did not fully converge after %d iterations: %s", w.Algorithm, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s did not fully converge after %d iterations. Consider increasing the iteration cap or relaxing the tolerance.", w.Algorithm, w.Iterations)
}

// MarshalZerologObject adds the structured warning fields to a zerolog event.
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning creates a new ConvergenceWarning.
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// ===========================================================================
//
//	Structured error types
//
// ===========================================================================

// NotFittedError is returned when Transform or a derived quantity is
// requested before the required fitting or solve step has run.
type NotFittedError struct {
	ComponentName string
	Method        string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("dftgo: %s: not fitted yet. Call Fit() or PartialFit() before using %s()", e.ComponentName, e.Method)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("component", e.ComponentName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a new NotFittedError with a stack trace.
func NewNotFittedError(component, method string) error {
	err := &NotFittedError{ComponentName: component, Method: method}
	return errors.WithStack(err)
}

// ConfigurationError reports bad or inconsistent settings, for example an
// integration method that is incompatible with the sample count.
type ConfigurationError struct {
	Parameter string
	Reason    string
	Value     interface{}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("dftgo: invalid configuration for '%s': %s (got: %v)", e.Parameter, e.Reason, e.Value)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *ConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("parameter", e.Parameter).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ConfigurationError")
}

// NewConfigurationError creates a new ConfigurationError with a stack trace.
func NewConfigurationError(parameter, reason string, value interface{}) error {
	err := &ConfigurationError{Parameter: parameter, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ShapeMismatchError reports descriptor/target grids (or any paired arrays)
// that disagree on geometry. Detected at data-ingestion time and fatal; data
// is never truncated or padded to fit.
type ShapeMismatchError struct {
	Op       string
	Expected []int
	Got      []int
	Context  string // e.g. snapshot identifier
}

func (e *ShapeMismatchError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("dftgo: %s: shape mismatch for %s. Expected %v, got %v", e.Op, e.Context, e.Expected, e.Got)
	}
	return fmt.Sprintf("dftgo: %s: shape mismatch. Expected %v, got %v", e.Op, e.Expected, e.Got)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *ShapeMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Ints("expected", e.Expected).
		Ints("got", e.Got).
		Str("context", e.Context).
		Str("type", "ShapeMismatchError")
}

// NewShapeMismatchError creates a new ShapeMismatchError with a stack trace.
func NewShapeMismatchError(op string, expected, got []int, context string) error {
	err := &ShapeMismatchError{Op: op, Expected: expected, Got: got, Context: context}
	return errors.WithStack(err)
}

// ConvergenceError reports an iterative solve that failed: either the
// iteration cap was reached without meeting the tolerance, or the requested
// target is outside the achievable range (for example an electron count
// larger than the integral of the DOS over the full energy grid). Callers may
// retry with a relaxed tolerance or supply an explicit value; the solver
// never silently substitutes a default.
type ConvergenceError struct {
	Algorithm  string
	Iterations int
	Reason     string
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("dftgo: %s failed to converge after %d iterations: %s", e.Algorithm, e.Iterations, e.Reason)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *ConvergenceError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("algorithm", e.Algorithm).
		Int("iterations", e.Iterations).
		Str("reason", e.Reason).
		Str("type", "ConvergenceError")
}

// NewConvergenceError creates a new ConvergenceError with a stack trace.
func NewConvergenceError(algorithm string, iterations int, reason string) error {
	err := &ConvergenceError{Algorithm: algorithm, Iterations: iterations, Reason: reason}
	return errors.WithStack(err)
}

// MissingContextError reports a calculation that requires externally supplied
// context (Ewald energy, Hartree energy, number of electrons, ...) which has
// not been attached. Absence is a usage error, never silently defaulted.
type MissingContextError struct {
	Op      string
	Missing string
}

func (e *MissingContextError) Error() string {
	return fmt.Sprintf("dftgo: %s: missing required calculation data: %s. Call ReadAdditionalCalculationData() or attach it explicitly first", e.Op, e.Missing)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *MissingContextError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("missing", e.Missing).
		Str("type", "MissingContextError")
}

// NewMissingContextError creates a new MissingContextError with a stack trace.
func NewMissingContextError(op, missing string) error {
	err := &MissingContextError{Op: op, Missing: missing}
	return errors.WithStack(err)
}

// UnsupportedUnitError reports a unit conversion requested for a unit string
// that is not registered for the quantity. Data is never passed through
// unconverted.
type UnsupportedUnitError struct {
	Quantity string
	Unit     string
}

func (e *UnsupportedUnitError) Error() string {
	return fmt.Sprintf("dftgo: unsupported unit %q for quantity %s", e.Unit, e.Quantity)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *UnsupportedUnitError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("quantity", e.Quantity).
		Str("unit", e.Unit).
		Str("type", "UnsupportedUnitError")
}

// NewUnsupportedUnitError creates a new UnsupportedUnitError with a stack trace.
func NewUnsupportedUnitError(quantity, unit string) error {
	err := &UnsupportedUnitError{Quantity: quantity, Unit: unit}
	return errors.WithStack(err)
}

// IOFormatError reports a malformed input file (cube file, energy-grid text
// file, manifest).
type IOFormatError struct {
	Path   string
	Format string
	Line   int // zero when not line-oriented
	Reason string
}

func (e *IOFormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("dftgo: malformed %s file %s at line %d: %s", e.Format, e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("dftgo: malformed %s file %s: %s", e.Format, e.Path, e.Reason)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *IOFormatError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).
		Str("format", e.Format).
		Int("line", e.Line).
		Str("reason", e.Reason).
		Str("type", "IOFormatError")
}

// NewIOFormatError creates a new IOFormatError with a stack trace.
func NewIOFormatError(path, format string, line int, reason string) error {
	err := &IOFormatError{Path: path, Format: format, Line: line, Reason: reason}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a format string.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates an error with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Numerical error types
//
// ===========================================================================

// NumericalInstabilityError reports NaN, Inf, overflow or underflow detected
// during a numeric computation. Occupation functions and quadrature sums are
// evaluated per grid point, so a single poisoned value would propagate into
// every downstream energy; detection is therefore immediate.
type NumericalInstabilityError struct {
	Operation string                 // e.g. "fermi_function", "band_energy_integral"
	Values    []float64              // offending values
	Context   map[string]interface{} // extra debugging context
	Iteration int                    // iteration index where detected
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("dftgo: numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// NewNumericalInstabilityError creates a new NumericalInstabilityError with a
// stack trace.
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
		Context:   make(map[string]interface{}),
	}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Common error variables
//
// ===========================================================================

var (
	// ErrNotImplemented reports an unimplemented capability, for example a
	// derivation a target type does not support.
	ErrNotImplemented = New("not implemented")

	// ErrEmptyData reports empty input data.
	ErrEmptyData = New("empty data")
)
