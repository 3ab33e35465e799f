package interp

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes interpreter errors.
type ErrorKind string

const (
	// KindOpenFailure indicates a script file could not be opened or read.
	KindOpenFailure ErrorKind = "OPEN_FAILURE"

	// KindUnrecognizedCommand indicates no command grammar matched a line.
	KindUnrecognizedCommand ErrorKind = "UNRECOGNIZED_COMMAND"

	// KindMissingInclude indicates an include target does not exist.
	KindMissingInclude ErrorKind = "MISSING_INCLUDE"

	// KindUnknownHostingProvider indicates a hosting name with no template.
	KindUnknownHostingProvider ErrorKind = "UNKNOWN_HOSTING_PROVIDER"

	// KindUnresolvedVariable indicates a ${name} with no bound variable.
	KindUnresolvedVariable ErrorKind = "UNRESOLVED_VARIABLE"

	// KindUnresolvedStrand indicates ${strand} was used with no strand bound.
	KindUnresolvedStrand ErrorKind = "UNRESOLVED_STRAND"

	// KindExpansionLimit indicates variable expansion did not terminate.
	KindExpansionLimit ErrorKind = "EXPANSION_LIMIT"

	// KindFetchFailure indicates a source or versions file could not be retrieved.
	KindFetchFailure ErrorKind = "FETCH_FAILURE"

	// KindDestinationEvaluation indicates no usable destination path.
	KindDestinationEvaluation ErrorKind = "DESTINATION_EVALUATION_FAILURE"

	// KindLocalFileOperation indicates a filesystem command failed.
	KindLocalFileOperation ErrorKind = "LOCAL_FILE_OPERATION_FAILURE"

	// KindCommandFailure indicates an exec command failed to run or exited non-zero.
	KindCommandFailure ErrorKind = "COMMAND_FAILURE"
)

// Error is an interpreter failure attributed to a script line.
type Error struct {
	Kind ErrorKind

	// Script and Line locate the failing command. Line is 0 for failures
	// that precede the first line, such as an unreadable script.
	Script string
	Line   int

	Message string

	// Variable names the unresolved variable for KindUnresolvedVariable.
	Variable string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Script == "":
		return e.Message
	case e.Line == 0:
		return e.Script + ": " + e.Message
	}
	return fmt.Sprintf("%s, line %d: %s", e.Script, e.Line, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrOpenFailure           = &Error{Kind: KindOpenFailure}
	ErrUnrecognizedCommand   = &Error{Kind: KindUnrecognizedCommand}
	ErrMissingInclude        = &Error{Kind: KindMissingInclude}
	ErrUnknownHosting        = &Error{Kind: KindUnknownHostingProvider}
	ErrUnresolvedVariable    = &Error{Kind: KindUnresolvedVariable}
	ErrUnresolvedStrand      = &Error{Kind: KindUnresolvedStrand}
	ErrExpansionLimit        = &Error{Kind: KindExpansionLimit}
	ErrFetchFailure          = &Error{Kind: KindFetchFailure}
	ErrDestinationEvaluation = &Error{Kind: KindDestinationEvaluation}
	ErrLocalFileOperation    = &Error{Kind: KindLocalFileOperation}
	ErrCommandFailure        = &Error{Kind: KindCommandFailure}
)

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...) + ": " + err.Error(),
		Err:     err,
	}
}
