package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

// Response codes carried in the envelope, matching the service's wire
// contract: numeric strings, not HTTP status reuse.
const (
	CodeSuccess           = "200"
	CodeUnauthorized      = "401"
	CodeForbidden         = "403"
	CodeInvalidRequest    = "400"
	CodeInternalError     = "500"
	MessageLoginSuccess   = "Login successfully."
	MessageRefreshSuccess = "Refresh token successfully."
	MessageLogoutSuccess  = "Logout successfully."
	MessageUnauthorized   = "Unauthorized access."
	MessageInvalidRequest = "Invalid request."
	MessageInternalError  = "Something went wrong on our end. Please try again later."
)

// Envelope is the uniform response body for the auth endpoints
type Envelope struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Data    any    `json:"data"`
	Error   bool   `json:"error"`
}

// SuccessEnvelope wraps payload data in the success shape.
func SuccessEnvelope(message, code string, data any) Envelope {
	if data == nil {
		data = struct{}{}
	}
	return Envelope{
		Message: message,
		Code:    code,
		Data:    data,
		Error:   false,
	}
}

// FailureEnvelope is the error shape; data is always an empty object.
func FailureEnvelope(message, code string) Envelope {
	return Envelope{
		Message: message,
		Code:    code,
		Data:    struct{}{},
		Error:   true,
	}
}

// EnvelopeFromError converts an error into the failure envelope without
// leaking internals. Auth taxonomy errors keep their message; everything
// else collapses into the generic unauthorized shape, and internal errors
// into the 500 shape.
func EnvelopeFromError(err error) Envelope {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		switch rich.Category {
		case goerrors.CategoryAuth, goerrors.CategoryAuthz:
			return FailureEnvelope(rich.Message, CodeUnauthorized)
		case goerrors.CategoryValidation, goerrors.CategoryBadInput:
			return FailureEnvelope(rich.Message, CodeInvalidRequest)
		case goerrors.CategoryInternal:
			return FailureEnvelope(MessageInternalError, CodeInternalError)
		}
	}

	return FailureEnvelope(MessageUnauthorized, CodeUnauthorized)
}
