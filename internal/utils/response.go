package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/noteshare-io/noteshare/internal/types"
)

// Envelope is the uniform response shape for every API route.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SuccessResponse sends a standard success envelope
func SuccessResponse(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse sends a standard error envelope
func ErrorResponse(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(Envelope{
		Success: false,
		Message: message,
	})
}

// FailResponse maps a service error to an error envelope. CustomError carries
// its own status; anything else is reported as a generic 500 so upstream
// failure detail never leaks to the caller.
func FailResponse(c *fiber.Ctx, err error) error {
	var ce *types.CustomError
	if errors.As(err, &ce) {
		return ErrorResponse(c, ce.Code, ce.Message)
	}
	return ErrorResponse(c, fiber.StatusInternalServerError, "Something went wrong")
}
