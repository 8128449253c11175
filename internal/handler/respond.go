package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/formation-market/internal/apperr"
)

// ErrorHandler renders every error as the JSON envelope
// {success:false, error, message, ...details}.
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	logger = logger.Named("http")
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := envelope(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", zap.String("route", c.Path()), zap.Error(err))
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Warn("write error response", zap.Error(err))
		}
	}
}

func envelope(err error) (int, echo.Map) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		return he.Code, echo.Map{"success": false, "error": codeFor(he.Code), "message": msg}
	}

	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError, echo.Map{"success": false, "error": apperr.KindInternal.String(), "message": "internal error"}
	}
	body := echo.Map{}
	for k, v := range ae.Details {
		body[k] = v
	}
	body["success"] = false
	body["error"] = ae.Kind.String()
	body["message"] = ae.Message
	if ae.Kind.Retryable() {
		body["retryable"] = true
	}
	return ae.Kind.HTTPStatus(), body
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return apperr.KindValidation.String()
	case http.StatusUnauthorized:
		return apperr.KindUnauthorized.String()
	case http.StatusForbidden:
		return apperr.KindPermission.String()
	case http.StatusNotFound:
		return apperr.KindNotFound.String()
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusTooManyRequests:
		return "too_many_requests"
	}
	return apperr.KindInternal.String()
}
