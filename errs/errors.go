// Package errs defines the error kinds shared by the BTOON codec, the
// compression envelope and the validator.
//
// Every fallible operation in the library fails with one of a closed set of
// kinds. Call sites build a positioned *Error with New or Newf, carrying the
// byte offset of the failure; it matches the sentinel of its kind under
// errors.Is.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies one of the closed set of BTOON failure classes.
type Kind uint8

const (
	// KindOutOfBounds indicates a read or a declared length would exceed the buffer.
	KindOutOfBounds Kind = iota + 1
	// KindUnknownTag indicates a first byte that belongs to no defined tag range.
	KindUnknownTag
	// KindInvalidUTF8 indicates a string payload that failed UTF-8 validation in strict mode.
	KindInvalidUTF8
	// KindDepthExceeded indicates recursion beyond the configured depth limit.
	KindDepthExceeded
	// KindKeyOrder indicates a map key that is not strictly greater than its predecessor.
	KindKeyOrder
	// KindDuplicateKey indicates a map key equal to its predecessor.
	KindDuplicateKey
	// KindLengthMismatch indicates a declared size that disagrees with the actual payload size.
	KindLengthMismatch
	// KindUnsupportedVersion indicates a tabular or frame header with an unrecognized version.
	KindUnsupportedVersion
	// KindUnsupportedAlgorithm indicates a compression frame naming an unknown algorithm.
	KindUnsupportedAlgorithm
	// KindDecompressionBomb indicates a compression ratio exceeding the configured guard.
	KindDecompressionBomb
	// KindInvalidExtension indicates a private extension payload that failed its shape check.
	KindInvalidExtension
	// KindTrailingBytes indicates bytes remaining after the outermost value in strict mode.
	KindTrailingBytes
)

func (k Kind) String() string {
	switch k {
	case KindOutOfBounds:
		return "OutOfBounds"
	case KindUnknownTag:
		return "UnknownTag"
	case KindInvalidUTF8:
		return "InvalidUtf8"
	case KindDepthExceeded:
		return "DepthExceeded"
	case KindKeyOrder:
		return "KeyOrder"
	case KindDuplicateKey:
		return "DuplicateKey"
	case KindLengthMismatch:
		return "LengthMismatch"
	case KindUnsupportedVersion:
		return "UnsupportedVersion"
	case KindUnsupportedAlgorithm:
		return "UnsupportedAlgorithm"
	case KindDecompressionBomb:
		return "DecompressionBomb"
	case KindInvalidExtension:
		return "InvalidExtension"
	case KindTrailingBytes:
		return "TrailingBytes"
	default:
		return "Unknown"
	}
}

// Sentinel errors, one per Kind. Wrap with fmt.Errorf("%w: detail", ...) to
// add context without losing errors.Is identity.
var (
	ErrOutOfBounds          = &Error{Kind: KindOutOfBounds, Message: "read exceeds buffer bounds"}
	ErrUnknownTag           = &Error{Kind: KindUnknownTag, Message: "unknown tag byte"}
	ErrInvalidUTF8          = &Error{Kind: KindInvalidUTF8, Message: "invalid UTF-8 string payload"}
	ErrDepthExceeded        = &Error{Kind: KindDepthExceeded, Message: "nesting depth limit exceeded"}
	ErrKeyOrder             = &Error{Kind: KindKeyOrder, Message: "map keys not in ascending order"}
	ErrDuplicateKey         = &Error{Kind: KindDuplicateKey, Message: "duplicate map key"}
	ErrLengthMismatch       = &Error{Kind: KindLengthMismatch, Message: "declared size disagrees with payload"}
	ErrUnsupportedVersion   = &Error{Kind: KindUnsupportedVersion, Message: "unsupported format version"}
	ErrUnsupportedAlgorithm = &Error{Kind: KindUnsupportedAlgorithm, Message: "unsupported compression algorithm"}
	ErrDecompressionBomb    = &Error{Kind: KindDecompressionBomb, Message: "compression ratio exceeds guard"}
	ErrInvalidExtension     = &Error{Kind: KindInvalidExtension, Message: "invalid extension payload"}
	ErrTrailingBytes        = &Error{Kind: KindTrailingBytes, Message: "trailing bytes after value"}
)

// Error is a positioned BTOON error: the failure kind, the byte offset at
// which the decoder or validator detected it, and a short description.
//
// Error values compare with errors.Is against the sentinel of the same Kind,
// so both of these work:
//
//	errors.Is(err, errs.ErrOutOfBounds)
//	errs.KindOf(err) == errs.KindOutOfBounds
type Error struct {
	Kind    Kind
	Offset  int
	Message string
}

func (e *Error) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("%s at offset %d: %s", e.Kind, e.Offset, e.Message)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports whether target is an *Error with the same Kind. This makes
// every positioned error match its package-level sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

// New creates a positioned error of the given kind.
func New(kind Kind, offset int, message string) *Error {
	return &Error{Kind: kind, Offset: offset, Message: message}
}

// Newf creates a positioned error with a formatted message.
func Newf(kind Kind, offset int, format string, args ...any) *Error {
	return &Error{Kind: kind, Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, unwrapping as needed.
// Returns 0 if err carries no BTOON kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return 0
}

// OffsetOf extracts the byte offset from err, unwrapping as needed.
// Returns -1 if err carries no offset.
func OffsetOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Offset
	}

	return -1
}
