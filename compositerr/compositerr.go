// Package compositerr implements the error taxonomy and cause-chain
// rendering described in spec.md §7: classifying a failure as Validation,
// Registration, Initialization, Render-time, or Ingest-time, and rendering
// a wrapped error's full cause stack as a multi-line string for logging.
package compositerr

import (
	"errors"
	"fmt"
	"strings"
)

// Class is the closed set of failure categories spec.md §7 assigns
// different handling to: Validation and Registration errors surface
// synchronously as 400-class control API responses; Initialization errors
// are fatal and returned from init; Render and Ingest errors are logged and
// the system continues.
type Class string

const (
	ClassValidation     Class = "validation"
	ClassRegistration   Class = "registration"
	ClassInitialization Class = "initialization"
	ClassRender         Class = "render"
	ClassIngest         Class = "ingest"
)

// Error wraps a cause with a Class and an HTTP status the control API
// should report for it (0 for classes with no HTTP surface, i.e.
// Initialization/Render/Ingest).
type Error struct {
	class      Class
	httpStatus int
	cause      error
}

// New wraps cause as a classified compositerr.Error. httpStatus is only
// meaningful for ClassValidation/ClassRegistration; pass 0 otherwise.
func New(class Class, httpStatus int, cause error) *Error {
	return &Error{class: class, httpStatus: httpStatus, cause: cause}
}

// Validation wraps cause as a 400-class validation error.
func Validation(cause error) *Error { return New(ClassValidation, 400, cause) }

// Registration wraps cause as a 400-class registration-conflict error.
func Registration(cause error) *Error { return New(ClassRegistration, 400, cause) }

// Initialization wraps cause as a fatal startup error.
func Initialization(cause error) *Error { return New(ClassInitialization, 0, cause) }

// Render wraps cause as a logged, non-fatal render-time error; the
// offending frame is dropped and the system continues (spec.md §7).
func Render(cause error) *Error { return New(ClassRender, 0, cause) }

// Ingest wraps cause as a logged, non-fatal ingest-time error; the input
// continues under its stream-fallback timeout until recovery (spec.md §7).
func Ingest(cause error) *Error { return New(ClassIngest, 0, cause) }

func (e *Error) Class() Class      { return e.class }
func (e *Error) HTTPStatus() int   { return e.httpStatus }
func (e *Error) Unwrap() error     { return e.cause }
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.class, e.cause)
}

// RenderCauseChain walks err's errors.Unwrap chain from outermost to
// innermost and joins each level's message with a newline, for logging a
// render-time or ingest-time failure's full cause stack (spec.md §7:
// "Error chains are renderable as a multi-line cause stack").
func RenderCauseChain(err error) string {
	if err == nil {
		return ""
	}
	var lines []string
	for err != nil {
		lines = append(lines, err.Error())
		err = errors.Unwrap(err)
	}
	return strings.Join(lines, "\n")
}
