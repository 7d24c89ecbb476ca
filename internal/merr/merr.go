// Package merr defines the error taxonomy shared by the training and
// generation pipelines: ConfigError, IoError, FormatError, ContentError,
// and CancelRequested. BudgetExhausted is deliberately absent here — it is
// reported as a result flag (GenResult.TimedOut), never an error.
package merr

import "errors"

// Kind classifies a pipeline error for callers that need to branch on
// recoverability (fatal at startup vs. recoverable at the next sequence
// boundary) without string-matching error messages.
type Kind int

const (
	// KindConfig marks a configuration invariant violated at startup
	// (e.g. minLen > maxLen). Fatal, surfaced before any I/O.
	KindConfig Kind = iota
	// KindIO marks a failed read/write of persistent state. Recoverable
	// only at the pipeline's next sequence boundary.
	KindIO
	// KindFormat marks an on-disk artefact that cannot be parsed.
	KindFormat
	// KindContent marks an on-disk artefact that parsed but violates an
	// invariant (CRC mismatch, fact-id mismatch, checkpoint id mismatch).
	KindContent
	// KindCancel marks an external cancellation observed at a sequence
	// boundary.
	KindCancel
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindIO:
		return "IoError"
	case KindFormat:
		return "FormatError"
	case KindContent:
		return "ContentError"
	case KindCancel:
		return "CancelRequested"
	default:
		return "UnknownError"
	}
}

// Error wraps an underlying cause with a taxonomy Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String() + ": " + e.Op
	}
	return e.Kind.String() + ": " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func new_(k Kind, op string, err error) *Error {
	return &Error{Kind: k, Op: op, Err: err}
}

func Config(op string, err error) error  { return new_(KindConfig, op, err) }
func IO(op string, err error) error      { return new_(KindIO, op, err) }
func Format(op string, err error) error  { return new_(KindFormat, op, err) }
func Content(op string, err error) error { return new_(KindContent, op, err) }
func Cancel(op string) error             { return new_(KindCancel, op, nil) }

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, k Kind) bool {
	var me *Error
	for err != nil {
		if errors.As(err, &me) {
			if me.Kind == k {
				return true
			}
			err = me.Err
			continue
		}
		return false
	}
	return false
}
