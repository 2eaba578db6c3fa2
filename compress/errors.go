package compress

import "fmt"

// Kind classifies why a compress request failed.
type Kind int

const (
	KindValidation Kind = iota + 1 // missing or empty upload
	KindConversion                 // converter exited nonzero
	KindEncode                     // encoder exited nonzero, fallback included
	KindUnexpected                 // I/O failures, launch failures, store errors
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConversion:
		return "conversion"
	case KindEncode:
		return "encode"
	case KindUnexpected:
		return "unexpected"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Messages returned to callers.
const (
	MsgNoFile     = "No file uploaded."
	MsgUnexpected = "An unexpected server error occurred."
)

// Error is returned by Service.Compress. Message is safe to show to the
// client; Err holds the detail behind an unexpected failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindUnexpected {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func validationError() *Error {
	return &Error{Kind: KindValidation, Message: MsgNoFile}
}

func conversionError(stderr string) *Error {
	return &Error{
		Kind:    KindConversion,
		Message: "File conversion to PNG failed. It might be a corrupted or unsupported file type. Error: " + stderr,
	}
}

func encodeError(stderr string) *Error {
	return &Error{Kind: KindEncode, Message: "Compression failed: " + stderr}
}

func unexpectedError(err error) *Error {
	return &Error{Kind: KindUnexpected, Message: MsgUnexpected, Err: err}
}
