package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure classes the transport layer maps to
// responses.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindForbidden
	KindIntegrity
	KindProvider
	KindConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindIntegrity:
		return "integrity"
	case KindProvider:
		return "provider"
	case KindConfig:
		return "config"
	default:
		return "internal"
	}
}

const (
	CodeEmptyOrder             = "EMPTY_ORDER"
	CodeDuplicateSeatInRequest = "DUPLICATE_SEAT_IN_REQUEST"
	CodeSeatTypeMismatch       = "SEAT_TYPE_MISMATCH"
	CodeFlightNotFound         = "FLIGHT_NOT_FOUND"
	CodeSeatNotFound           = "SEAT_NOT_FOUND"
	CodeInvalidPassenger       = "INVALID_PASSENGER"
	CodeInvalidBlueprint       = "INVALID_BLUEPRINT"
	CodeOrderCreationFailed    = "ORDER_CREATION_FAILED"
	CodeOrderNotFound          = "ORDER_NOT_FOUND"
	CodeOrderNotPayable        = "ORDER_NOT_PAYABLE"
	CodePaymentInProgress      = "PAYMENT_IN_PROGRESS"
	CodeTransactionCreation    = "TRANSACTION_CREATION_FAILED"
	CodeTransactionNotFound    = "TRANSACTION_NOT_FOUND"
	CodePaymentProvider        = "PAYMENT_PROVIDER_ERROR"
	CodeWebhookNotConfigured   = "WEBHOOK_NOT_CONFIGURED"
	CodeInvalidSignature       = "INVALID_SIGNATURE"
	CodeMissingCorrelation     = "MISSING_CORRELATION"
	CodeMalformedEvent         = "MALFORMED_EVENT"
	CodeInternal               = "INTERNAL"
)

type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func WrapError(kind ErrorKind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, KindInternal otherwise.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
