package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"patientportal/internal/apperr"
	"patientportal/internal/http/middleware"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "VALIDATION_ERROR", "NOT_FOUND")
// - message: human-readable message
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// statusFor maps an error kind to its HTTP status and error code.
func statusFor(kind apperr.Kind) (int, string) {
	switch kind {
	case apperr.KindValidation:
		return fiber.StatusBadRequest, "VALIDATION_ERROR"
	case apperr.KindNotFound:
		return fiber.StatusNotFound, "NOT_FOUND"
	case apperr.KindFileMissing:
		return fiber.StatusNotFound, "FILE_NOT_FOUND"
	case apperr.KindStore:
		return fiber.StatusInternalServerError, "STORE_ERROR"
	case apperr.KindFilesystem:
		return fiber.StatusInternalServerError, "FILESYSTEM_ERROR"
	case apperr.KindPartialDelete:
		return fiber.StatusInternalServerError, "PARTIAL_DELETE"
	default:
		return fiber.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// writeAppError translates a service error into the error envelope. Client
// errors carry only the outermost message so storage keys and driver text stay
// server-side; server errors carry the full chain, prefixed with serverPrefix.
// The full error is left in locals for the request logger.
func writeAppError(c *fiber.Ctx, err error, serverPrefix string) error {
	c.Locals(middleware.ErrorLocalKey, err)
	status, code := statusFor(apperr.KindOf(err))

	if status < fiber.StatusInternalServerError {
		return writeError(c, status, code, apperr.MessageOf(err))
	}
	return writeError(c, status, code, serverPrefix+err.Error())
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return writeAppError(c, err, "")
		}

		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
