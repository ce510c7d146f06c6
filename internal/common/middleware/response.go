package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ahwlsqja/coinflip-claim-engine/internal/common/errors"
)

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains error details. UserMessage is safe to show to end users.
type ErrorBody struct {
	Code        string         `json:"code" example:"INVALID_SIGNATURE"`
	Message     string         `json:"message" example:"Signature does not match the claimed address"`
	UserMessage string         `json:"user_message" example:"Invalid signature. Please try again."`
	RequestID   string         `json:"request_id,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

// SuccessResponse represents the standard success response format
type SuccessResponse struct {
	Data any `json:"data"`
}

// RespondSuccess sends a successful JSON response
func RespondSuccess(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, SuccessResponse{Data: data})
}

// RespondError sends an error JSON response.
// Errors that are not *errors.AppError are reported as INTERNAL_ERROR and
// recorded on the context so the Logger middleware can print the cause.
func RespondError(c *gin.Context, err error) {
	appErr := errors.From(err)
	if appErr.Code == errors.CodeInternal || appErr.Err != nil {
		_ = c.Error(err)
	}

	c.JSON(appErr.StatusCode, ErrorResponse{
		Error: ErrorBody{
			Code:        appErr.Code,
			Message:     appErr.Message,
			UserMessage: appErr.UserMessage,
			RequestID:   GetRequestID(c),
			Details:     appErr.Details,
		},
	})
}

// RespondCreated sends a 201 Created response
func RespondCreated(c *gin.Context, data any) {
	RespondSuccess(c, http.StatusCreated, data)
}

// RespondOK sends a 200 OK response
func RespondOK(c *gin.Context, data any) {
	RespondSuccess(c, http.StatusOK, data)
}

// NoRoute answers unknown paths with the standard error envelope
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		RespondError(c, errors.NotFound("Route"))
	}
}
