package errors

// ErrorCode identifies an error class. Codes are stable strings so they can
// be matched across wrapping, returned to dashboard clients and used as
// metric labels.
type ErrorCode string

// Error is an application error carrying a code, an optional message
// overriding the code's default text, optional structured data and an
// optional cause.
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory creates coded errors
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
