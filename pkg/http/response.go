package http

import (
	"errors"
	"net/http"

	"CryptoNotify/pkg/logger"

	"github.com/labstack/echo/v4"
)

// dataResponse writes API response with status and data.
func dataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

// SuccessResponse writes success response.
func SuccessResponse(c echo.Context, data interface{}) error {
	return dataResponse(c, http.StatusOK, data)
}

// CreatedResponse writes created response.
func CreatedResponse(c echo.Context, data interface{}) error {
	return dataResponse(c, http.StatusCreated, data)
}

// AcceptedResponse writes accepted response.
func AcceptedResponse(c echo.Context, data interface{}) error {
	return dataResponse(c, http.StatusAccepted, data)
}

// NoContentResponse writes no content response.
func NoContentResponse(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// BadRequestResponse writes bad request error.
func BadRequestResponse(c echo.Context, data interface{}) error {
	return dataResponse(c, http.StatusBadRequest, data)
}

// internalServerErrorResponse writes internal server error.
func internalServerErrorResponse(c echo.Context) error {
	return dataResponse(c, http.StatusInternalServerError, "Something went wrong")
}

// appErrorResponse writes application error response.
func appErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return dataResponse(c, appErr.Status, []*AppError{appErr})
	}
	return internalServerErrorResponse(c)
}

// ErrorHandler renders errors escaping handlers in the response envelope.
func ErrorHandler(l *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var appErr *AppError
		if errors.As(err, &appErr) {
			_ = appErrorResponse(c, appErr)
			return
		}
		status := StatusOf(err)
		if status < http.StatusInternalServerError {
			_ = dataResponse(c, status, http.StatusText(status))
			return
		}
		l.Error("unhandled request error",
			logger.String("path", c.Path()),
			logger.Error(err),
		)
		_ = internalServerErrorResponse(c)
	}
}
