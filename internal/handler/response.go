// Package handler contains the echo HTTP handlers.  Every JSON response
// uses the envelope {success, ...} on success and
// {success: false, error: {code, message, details?}} on failure.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/lib/logger/sl"
)

const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeConflict   = "CONFLICT"
	CodeDatabase   = "DATABASE_ERROR"
	CodeInternal   = "INTERNAL_ERROR"

	msgInternalServer = "Internal server error"
	msgUnexpected     = "An unexpected error occurred"
)

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type failure struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

// statusFor maps an error code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func fail(c echo.Context, code, msg string, details map[string]any) error {
	return c.JSON(statusFor(code), failure{
		Error: errorBody{Code: code, Message: msg, Details: details},
	})
}

func invalidField(c echo.Context, field, msg string) error {
	return fail(c, CodeValidation, msg, map[string]any{"field": field})
}

// HTTPErrorHandler renders errors that escape handlers and middleware.
// Routing errors keep their status; anything else becomes a generic 500
// and is logged.
func HTTPErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
			code := CodeValidation
			switch he.Code {
			case http.StatusNotFound:
				code = CodeNotFound
			case http.StatusMethodNotAllowed:
				code = "METHOD_NOT_ALLOWED"
			case http.StatusUnauthorized:
				code = "UNAUTHORIZED"
			case http.StatusTooManyRequests:
				code = "RATE_LIMITED"
			}
			msg := http.StatusText(he.Code)
			if s, ok := he.Message.(string); ok {
				msg = s
			}
			_ = c.JSON(he.Code, failure{Error: errorBody{Code: code, Message: msg}})
			return
		}

		log.Error("unhandled error",
			slog.String("method", c.Request().Method),
			slog.String("path", c.Request().URL.Path),
			sl.Err(err),
		)
		_ = c.JSON(http.StatusInternalServerError, failure{
			Error: errorBody{Code: CodeInternal, Message: msgUnexpected},
		})
	}
}
