package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation                 Code = "VALIDATION_ERROR"
	CodeInvalidAmount              Code = "INVALID_AMOUNT"
	CodeBelowMinimumTopup          Code = "BELOW_MINIMUM_TOPUP"
	CodeBelowMerchantMinimum       Code = "BELOW_MERCHANT_MINIMUM"
	CodeInvalidRecoveryAmount      Code = "INVALID_RECOVERY_AMOUNT"
	CodeUnauthorized               Code = "UNAUTHORIZED"
	CodeNotFound                   Code = "NOT_FOUND"
	CodeInvalidTransition          Code = "INVALID_STATUS_TRANSITION"
	CodeNotActive                  Code = "SUBSCRIPTION_NOT_ACTIVE"
	CodeUsageNotEnabled            Code = "USAGE_NOT_ENABLED"
	CodeReplay                     Code = "CHARGE_REPLAYED"
	CodeInsufficientAllowance      Code = "INSUFFICIENT_ALLOWANCE"
	CodeInsufficientBalance        Code = "INSUFFICIENT_BALANCE"
	CodeInsufficientPrepaidBalance Code = "INSUFFICIENT_PREPAID_BALANCE"
	CodeTransferFailed             Code = "TRANSFER_FAILED"
	CodeOverflow                   Code = "ARITHMETIC_OVERFLOW"
	CodeUnderflow                  Code = "ARITHMETIC_UNDERFLOW"
	CodeInternal                   Code = "INTERNAL_ERROR"
	CodeDependency                 Code = "DEPENDENCY_ERROR"
)

type Metadata struct {
	HTTPStatus     int
	WireCode       uint32
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		WireCode:       1006,
		Retryable:      false,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeInvalidAmount: {
		HTTPStatus:     http.StatusBadRequest,
		WireCode:       1006,
		Retryable:      false,
		PublicMessage:  "amount must be positive",
		DetailsAllowed: true,
	},
	CodeBelowMinimumTopup: {
		HTTPStatus:     http.StatusBadRequest,
		WireCode:       402,
		Retryable:      false,
		PublicMessage:  "deposit below minimum top-up",
		DetailsAllowed: true,
	},
	CodeBelowMerchantMinimum: {
		HTTPStatus:     http.StatusBadRequest,
		WireCode:       410,
		Retryable:      false,
		PublicMessage:  "amount below merchant minimum",
		DetailsAllowed: true,
	},
	CodeInvalidRecoveryAmount: {
		HTTPStatus:     http.StatusBadRequest,
		WireCode:       1008,
		Retryable:      false,
		PublicMessage:  "recovery amount must be positive",
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		HTTPStatus:     http.StatusUnauthorized,
		WireCode:       401,
		Retryable:      false,
		PublicMessage:  "authentication required",
		DetailsAllowed: false,
	},
	CodeNotFound: {
		HTTPStatus:     http.StatusNotFound,
		WireCode:       404,
		Retryable:      false,
		PublicMessage:  "resource not found",
		DetailsAllowed: false,
	},
	CodeInvalidTransition: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		WireCode:       400,
		Retryable:      false,
		PublicMessage:  "status transition disallowed",
		DetailsAllowed: true,
	},
	CodeNotActive: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		WireCode:       1002,
		Retryable:      false,
		PublicMessage:  "subscription is not active",
		DetailsAllowed: true,
	},
	CodeUsageNotEnabled: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		WireCode:       1009,
		Retryable:      false,
		PublicMessage:  "usage charging not enabled",
		DetailsAllowed: false,
	},
	CodeReplay: {
		HTTPStatus:     http.StatusConflict,
		WireCode:       1007,
		Retryable:      false,
		PublicMessage:  "charge already processed",
		DetailsAllowed: true,
	},
	CodeInsufficientAllowance: {
		HTTPStatus:     http.StatusPaymentRequired,
		WireCode:       405,
		Retryable:      false,
		PublicMessage:  "token allowance insufficient",
		DetailsAllowed: true,
	},
	CodeInsufficientBalance: {
		HTTPStatus:     http.StatusPaymentRequired,
		WireCode:       1003,
		Retryable:      false,
		PublicMessage:  "insufficient balance",
		DetailsAllowed: true,
	},
	CodeInsufficientPrepaidBalance: {
		HTTPStatus:     http.StatusPaymentRequired,
		WireCode:       1010,
		Retryable:      false,
		PublicMessage:  "insufficient prepaid balance",
		DetailsAllowed: true,
	},
	CodeTransferFailed: {
		HTTPStatus:     http.StatusBadGateway,
		WireCode:       406,
		Retryable:      true,
		PublicMessage:  "token transfer failed",
		DetailsAllowed: false,
	},
	CodeOverflow: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		WireCode:       403,
		Retryable:      false,
		PublicMessage:  "arithmetic overflow",
		DetailsAllowed: false,
	},
	CodeUnderflow: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		WireCode:       1004,
		Retryable:      false,
		PublicMessage:  "arithmetic underflow",
		DetailsAllowed: false,
	},
	CodeInternal: {
		HTTPStatus:     http.StatusInternalServerError,
		WireCode:       0,
		Retryable:      true,
		PublicMessage:  "internal server error",
		DetailsAllowed: false,
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		WireCode:       0,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// WireCode returns the numeric ledger ABI code for an error, used by batch
// charge results. Success is 0; unknown errors report the internal code.
func WireCode(err error) uint32 {
	if err == nil {
		return 0
	}
	typed := As(err)
	if typed == nil {
		return MetadataFor(CodeInternal).WireCode
	}
	return MetadataFor(typed.Code()).WireCode
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
