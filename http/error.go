package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fwojciec/docindex"
	"github.com/labstack/echo/v4"
)

// codes maps application error codes to HTTP status codes.
var codes = map[string]int{
	docindex.EINVALID:      http.StatusBadRequest,
	docindex.ENOTFOUND:     http.StatusNotFound,
	docindex.EUNAUTHORIZED: http.StatusUnauthorized,
	docindex.ERATELIMIT:    http.StatusTooManyRequests,
	docindex.EUNAVAILABLE:  http.StatusBadGateway,
	docindex.EINTERNAL:     http.StatusInternalServerError,
}

// ErrorStatusCode returns the HTTP status code for an application error code.
func ErrorStatusCode(code string) int {
	if v, ok := codes[code]; ok {
		return v
	}
	return http.StatusInternalServerError
}

// errorHandler renders application errors with their mapped status code and
// defers everything else to echo's default handler. Internal errors are
// logged and their details hidden from the client.
func errorHandler(e *echo.Echo, logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var appErr *docindex.Error
		if !errors.As(err, &appErr) {
			var httpErr *echo.HTTPError
			if !errors.As(err, &httpErr) {
				logger.Error("http error", "uri", c.Request().RequestURI, "err", err)
			}
			e.DefaultHTTPErrorHandler(err, c)
			return
		}
		if c.Response().Committed {
			return
		}

		status := ErrorStatusCode(appErr.Code)
		if status >= http.StatusInternalServerError {
			logger.Error("http error", "uri", c.Request().RequestURI, "err", err)
		}
		_ = c.JSON(status, map[string]string{
			"code":  appErr.Code,
			"error": docindex.ErrorMessage(err),
		})
	}
}
