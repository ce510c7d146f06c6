package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes
const (
	// 4xx Client Errors
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeMissingField       = "MISSING_FIELD"
	CodeMalformedSignature = "MALFORMED_SIGNATURE"
	CodeInvalidSignature   = "INVALID_SIGNATURE"
	CodeClaimInFlight      = "CLAIM_IN_FLIGHT"
	CodeRateLimited        = "RATE_LIMITED"
	CodeNotFound           = "NOT_FOUND"

	// 5xx Server Errors
	CodeInternal            = "INTERNAL_ERROR"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
)

// CategoryContractRevert marks errors whose code comes from the faucet revert table
const CategoryContractRevert = "CONTRACT_REVERT"

// AppError represents a structured application error
type AppError struct {
	Code        string         `json:"code"`
	Message     string         `json:"message"`
	UserMessage string         `json:"user_message"`
	StatusCode  int            `json:"-"`
	Details     map[string]any `json:"details,omitempty"`
	Err         error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// IsContractRevert reports whether the error was classified from a contract revert
func (e *AppError) IsContractRevert() bool {
	return e.Details != nil && e.Details["category"] == CategoryContractRevert
}

// From converts any error into an AppError. Unknown errors become INTERNAL_ERROR.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred").WithError(err)
}

// Error constructors

func InvalidArgument(message string) *AppError {
	return &AppError{
		Code:        CodeInvalidArgument,
		Message:     message,
		UserMessage: "Invalid request. Please try again.",
		StatusCode:  http.StatusBadRequest,
	}
}

func MissingField(fields ...string) *AppError {
	return &AppError{
		Code:        CodeMissingField,
		Message:     fmt.Sprintf("Missing required fields: %s", strings.Join(fields, ", ")),
		UserMessage: "Invalid request. Please try again.",
		StatusCode:  http.StatusBadRequest,
		Details: map[string]any{
			"missing": fields,
		},
	}
}

func MalformedSignature(err error) *AppError {
	return &AppError{
		Code:        CodeMalformedSignature,
		Message:     "Signature could not be decoded",
		UserMessage: "Invalid signature. Please try again.",
		StatusCode:  http.StatusBadRequest,
		Err:         err,
	}
}

func InvalidSignature() *AppError {
	return &AppError{
		Code:        CodeInvalidSignature,
		Message:     "Signature does not match the claimed address",
		UserMessage: "Invalid signature. Please try again.",
		StatusCode:  http.StatusUnauthorized,
	}
}

func ClaimInFlight() *AppError {
	return &AppError{
		Code:        CodeClaimInFlight,
		Message:     "A claim with this nonce is already being processed",
		UserMessage: "Your claim is already being processed. Please wait.",
		StatusCode:  http.StatusConflict,
	}
}

func RateLimited() *AppError {
	return &AppError{
		Code:        CodeRateLimited,
		Message:     "Too many requests",
		UserMessage: "Too many requests. Please slow down and try again.",
		StatusCode:  http.StatusTooManyRequests,
	}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:        CodeNotFound,
		Message:     fmt.Sprintf("%s not found", resource),
		UserMessage: "Not found.",
		StatusCode:  http.StatusNotFound,
	}
}

func UpstreamUnavailable(service string, err error) *AppError {
	return &AppError{
		Code:        CodeUpstreamUnavailable,
		Message:     fmt.Sprintf("%s is unavailable", service),
		UserMessage: "Network connection issue. Please try again later.",
		StatusCode:  http.StatusServiceUnavailable,
		Err:         err,
	}
}

// ContractRevert builds the error for a classified faucet revert. Reverts the
// user cannot resolve by retrying are reported as 503.
func ContractRevert(code, reason, userMessage string, actionable bool) *AppError {
	status := http.StatusUnprocessableEntity
	if !actionable {
		status = http.StatusServiceUnavailable
	}
	message := reason
	if message == "" {
		message = "Transaction reverted"
	}
	return &AppError{
		Code:        code,
		Message:     message,
		UserMessage: userMessage,
		StatusCode:  status,
		Details: map[string]any{
			"category":   CategoryContractRevert,
			"reason":     reason,
			"actionable": actionable,
		},
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Code:        CodeInternal,
		Message:     message,
		UserMessage: "Something went wrong. Please try again later.",
		StatusCode:  http.StatusInternalServerError,
	}
}
