package types

import "fmt"

// CustomError carries the HTTP status and a machine-readable type alongside
// the user-facing message.
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// Constructors for the error taxonomy used across services and handlers.

func ValidationError(message string) *CustomError {
	return &CustomError{Code: 400, Message: message, Type: "validation"}
}

func AuthError(message string) *CustomError {
	return &CustomError{Code: 401, Message: message, Type: "auth"}
}

func ForbiddenError(message string) *CustomError {
	return &CustomError{Code: 403, Message: message, Type: "forbidden"}
}

func NotFoundError(message string) *CustomError {
	return &CustomError{Code: 404, Message: message, Type: "not_found"}
}

func ConflictError(message string) *CustomError {
	return &CustomError{Code: 409, Message: message, Type: "conflict"}
}

func UpstreamError(message string) *CustomError {
	return &CustomError{Code: 502, Message: message, Type: "upstream"}
}

// OTPError covers the invalid-or-expired code case for both signup and reset flows.
func OTPError(message string) *CustomError {
	return &CustomError{Code: 400, Message: message, Type: "otp.invalid_or_expired"}
}
