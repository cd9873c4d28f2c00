// Package ferrors defines the error kinds surfaced by the engine's core
// subsystems.
//
// Every package-level error constructor in this module wraps one of the
// kinds below so that call sites can classify failures with errors.Is,
// rather than string-matching.
package ferrors

import "fmt"

// Kind classifies an engine error.
type Kind int

// Error kinds, per the propagation policy: programming errors
// (InvalidArgument, NotInitialized, NotFound, IncompatibleSchema) are
// surfaced at the call site and never retried; DeviceError and
// UnsupportedFormat/FileSystem are I/O or GPU failures that abort the
// current frame or load.
const (
	// NotInitialized indicates a service was used before initialization.
	NotInitialized Kind = iota
	// InvalidArgument indicates a zero size, empty path, unknown
	// attachment name, or invalid descriptor-set index.
	InvalidArgument
	// NotFound indicates a binding name or resource id is absent.
	NotFound
	// OutOfRange indicates an offset/size exceeds a buffer.
	OutOfRange
	// IncompatibleSchema indicates a structural mismatch on
	// re-registration, or a descriptor-count mismatch during reflection
	// merge.
	IncompatibleSchema
	// UnsupportedFormat indicates a format/feature is not implemented or
	// not supported by the device.
	UnsupportedFormat
	// FileSystem indicates a missing file, unreadable file, or
	// misaligned SPIR-V size.
	FileSystem
	// DeviceError indicates a failure originating from the graphics API.
	DeviceError
)

func (k Kind) String() string {
	switch k {
	case NotInitialized:
		return "not initialized"
	case InvalidArgument:
		return "invalid argument"
	case NotFound:
		return "not found"
	case OutOfRange:
		return "out of range"
	case IncompatibleSchema:
		return "incompatible schema"
	case UnsupportedFormat:
		return "unsupported format"
	case FileSystem:
		return "filesystem"
	case DeviceError:
		return "device error"
	default:
		return "!ferrors.Kind"
	}
}

// Error is an engine error: a Kind plus a package-prefixed reason and an
// optional wrapped cause.
type Error struct {
	Kind   Kind
	Prefix string
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s%s: %v", e.Prefix, e.Reason, e.Cause)
	}
	return e.Prefix + e.Reason
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so that
// errors.Is(err, ferrors.New(ferrors.NotFound, "", "")) style checks work
// without matching Prefix/Reason/Cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error with the given kind and reason, prefixed by
// prefix (conventionally "<package>: ", following gviegas-neo3's
// meshPrefix/matPrefix convention).
func New(kind Kind, prefix, reason string) *Error {
	return &Error{Kind: kind, Prefix: prefix, Reason: reason}
}

// Wrap constructs an *Error that wraps cause.
func Wrap(kind Kind, prefix, reason string, cause error) *Error {
	return &Error{Kind: kind, Prefix: prefix, Reason: reason, Cause: cause}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and ok is
// false otherwise.
func KindOf(err error) (k Kind, ok bool) {
	var e *Error
	for err != nil {
		if x, isErr := err.(*Error); isErr {
			e = x
			break
		}
		u, hasUnwrap := err.(interface{ Unwrap() error })
		if !hasUnwrap {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return 0, false
	}
	return e.Kind, true
}
