package locker

import (
	"errors"
	"fmt"
)

// ErrorKind classifies courier workflow failures.
type ErrorKind string

const (
	KindAuth            ErrorKind = "auth"
	KindNetwork         ErrorKind = "network"
	KindProtocol        ErrorKind = "protocol"
	KindValidation      ErrorKind = "validation"
	KindDeliveryRequest ErrorKind = "delivery_request"
	KindCancellation    ErrorKind = "cancellation"
)

// Error represents a failure in the delivery-request workflow.
type Error struct {
	Kind       ErrorKind
	Code       string
	Message    string
	StatusCode int
	Body       string // raw courier response, kept for diagnostics
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error (%s)", e.Kind, e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by kind and code, or a kind sentinel such as ErrAuth.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
	}
	return kindSentinels[e.Kind] == target
}

// NewError creates a new Error.
func NewError(kind ErrorKind, code, message string) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError wraps a validation sentinel such as ErrMissingLocker.
func NewValidationError(code string, cause error) *Error {
	return &Error{
		Kind:  KindValidation,
		Code:  code,
		Cause: cause,
	}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithMessage overrides the human readable message.
func (e *Error) WithMessage(msg string) *Error {
	e.Message = msg
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *Error) WithStatusCode(code int) *Error {
	e.StatusCode = code
	return e
}

// WithBody attaches the raw courier response body.
func (e *Error) WithBody(body string) *Error {
	e.Body = body
	return e
}

// Kind sentinels, matched through (*Error).Is.
var (
	ErrAuth            = errors.New("authentication failed")
	ErrNetwork         = errors.New("courier unreachable")
	ErrProtocol        = errors.New("unexpected courier response")
	ErrValidation      = errors.New("validation failed")
	ErrDeliveryRequest = errors.New("delivery request rejected")
	ErrCancellation    = errors.New("cancellation rejected")
)

var kindSentinels = map[ErrorKind]error{
	KindAuth:            ErrAuth,
	KindNetwork:         ErrNetwork,
	KindProtocol:        ErrProtocol,
	KindValidation:      ErrValidation,
	KindDeliveryRequest: ErrDeliveryRequest,
	KindCancellation:    ErrCancellation,
}

// Validation causes.
var (
	// ErrMissingLocker indicates the order has no destination locker.
	ErrMissingLocker = errors.New("missing locker id")

	// ErrMissingWarehouse indicates the order has no origin warehouse and none is configured.
	ErrMissingWarehouse = errors.New("missing warehouse id")

	// ErrMissingPhone indicates the billing contact has no phone number.
	ErrMissingPhone = errors.New("missing customer phone")

	// ErrInvalidDimensions indicates a product does not fit the largest compartment.
	ErrInvalidDimensions = errors.New("invalid product dimensions")

	// ErrInvalidQuantity indicates a voucher quantity outside 1..units.
	ErrInvalidQuantity = errors.New("invalid voucher quantity")

	// ErrInvalidCompartmentSize indicates an unknown compartment size.
	ErrInvalidCompartmentSize = errors.New("invalid compartment size")

	// ErrParcelNotFound indicates the parcel is not recorded on the order.
	ErrParcelNotFound = errors.New("parcel not found")
)

// KindOf returns the kind of a workflow error, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var lockerErr *Error
	if errors.As(err, &lockerErr) {
		return lockerErr.Kind
	}
	return ""
}

// BodyOf returns the raw courier body carried by err, if any.
func BodyOf(err error) string {
	var lockerErr *Error
	if errors.As(err, &lockerErr) {
		return lockerErr.Body
	}
	return ""
}
