// Package apperr provides a tagged error type shared by the storage, repository
// and service layers so callers can branch on the failure kind instead of on
// message text.
package apperr

import "errors"

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation marks rejected input; nothing was written.
	KindValidation
	// KindNotFound marks a missing metadata record.
	KindNotFound
	// KindFileMissing marks a record whose stored file is gone.
	KindFileMissing
	// KindStore marks a metadata store (database) failure.
	KindStore
	// KindFilesystem marks a blob storage read/write/remove failure.
	KindFilesystem
	// KindPartialDelete marks a delete where the file was removed but the
	// record could not be.
	KindPartialDelete
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindFileMissing:
		return "file_missing"
	case KindStore:
		return "store"
	case KindFilesystem:
		return "filesystem"
	case KindPartialDelete:
		return "partial_delete"
	default:
		return "unknown"
	}
}

// Error is a failure tagged with its Kind and the operation that produced it.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind without an underlying cause.
func New(kind Kind, op, message string) error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(kind Kind, op string, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf returns the Kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// OpOf returns the operation recorded on err, or "" when err is not an *Error.
func OpOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// MessageOf returns the message of the outermost *Error in err's chain,
// without the causes below it. Errors that carry no message fall back to
// err.Error().
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
