package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Body is the JSON error envelope returned to clients.
type Body struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(k Kind) int {
	switch k {
	case KindValidation, KindInvalidID, KindNoCandidate:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicate, KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Render converts err into a status code and response body.
func Render(err error) (int, Body) {
	var ae *Error
	if errors.As(err, &ae) {
		status := StatusOf(ae.Kind)
		msg := ae.Message
		if status == http.StatusInternalServerError {
			msg = "Something went wrong"
		}
		return status, Body{Error: ae.Kind.String(), Message: msg, Details: ae.Details}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := fmt.Sprintf("%v", he.Message)
		return he.Code, Body{Error: http.StatusText(he.Code), Message: msg}
	}

	return http.StatusInternalServerError, Body{Error: "Internal Server Error", Message: "Something went wrong"}
}

// HTTPErrorHandler returns an echo.HTTPErrorHandler that renders the error
// taxonomy and logs server-side failures.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := Render(err)
		if status == http.StatusNotFound && body.Error == http.StatusText(http.StatusNotFound) && body.Message == http.StatusText(http.StatusNotFound) {
			body.Message = fmt.Sprintf("Route %s %s not found", c.Request().Method, c.Request().URL.Path)
		}
		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("failed to write error response")
		}
	}
}
