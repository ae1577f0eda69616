package errors

import (
	stderrors "errors"
	"fmt"
	iofs "io/fs"
)

// Kind classifies a failure by the POSIX errno a caller would observe.
type Kind int

const (
	// IoError is any failure that does not fit one of the other kinds.
	IoError Kind = iota
	// NotFound means the path or one of its components does not exist.
	NotFound
	// AccessDenied covers permission and sharing violations.
	AccessDenied
	// InvalidArgument is a malformed path or an out of range value.
	InvalidArgument
	// Unsupported is an operation that cannot be expressed on this host.
	Unsupported
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case AccessDenied:
		return "AccessDenied"
	case InvalidArgument:
		return "InvalidArgument"
	case Unsupported:
		return "Unsupported"
	default:
		return "IoError"
	}
}

// Errno returns the (positive) POSIX errno value for k, using the Linux
// numbering.
func (k Kind) Errno() int {
	switch k {
	case NotFound:
		return 2 // ENOENT
	case AccessDenied:
		return 13 // EACCES
	case InvalidArgument:
		return 22 // EINVAL
	case Unsupported:
		return 95 // EOPNOTSUPP
	default:
		return 5 // EIO
	}
}

// Code returns the negative return code for k.
func (k Kind) Code() int {
	return -k.Errno()
}

// KindFromCode maps a negative return code back to its kind. ok is false for
// codes that were not produced by Kind.Code.
func KindFromCode(code int) (kind Kind, ok bool) {
	for _, k := range []Kind{IoError, NotFound, AccessDenied, InvalidArgument, Unsupported} {
		if k.Code() == code {
			return k, true
		}
	}
	return IoError, false
}

type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string {
	return e.err.Error()
}

func (e *kindError) Unwrap() error {
	return e.err
}

// Format forwards to the wrapped error so that %+v still prints the stack
// trace recorded by github.com/pkg/errors.
func (e *kindError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		_, _ = fmt.Fprintf(s, "%+v", e.err)
		return
	}
	_, _ = fmt.Fprint(s, e.err.Error())
}

// WithKind tags err with kind. If err is nil, WithKind returns nil.
func WithKind(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}

// Kindf returns a new error of the given kind, with a stack trace.
func Kindf(kind Kind, format string, args ...any) error {
	return WithKind(kind, Errorf(format, args...))
}

// KindOf classifies err. Explicit tags set by WithKind win, then operating
// system error codes, then the io/fs sentinel errors. Everything else is an
// IoError.
func KindOf(err error) Kind {
	var ke *kindError
	if stderrors.As(err, &ke) {
		return ke.kind
	}

	if k, ok := platformKind(err); ok {
		return k
	}

	switch {
	case stderrors.Is(err, iofs.ErrNotExist):
		return NotFound
	case stderrors.Is(err, iofs.ErrPermission):
		return AccessDenied
	case stderrors.Is(err, iofs.ErrInvalid):
		return InvalidArgument
	case stderrors.Is(err, stderrors.ErrUnsupported):
		return Unsupported
	}
	return IoError
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
