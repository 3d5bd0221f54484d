package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CustomErrorHandler renders errors as JSON. Messages of non-HTTP errors are
// never exposed to the client.
func CustomErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Something went wrong. Please try again later."

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if msg, ok := he.Message.(string); ok && msg != "" {
			message = msg
		} else {
			message = http.StatusText(code)
		}
	}

	entry := logrus.WithFields(logrus.Fields{
		"method": c.Request().Method,
		"path":   c.Path(),
		"status": code,
	})
	if managerID := ManagerID(c); managerID != "" {
		entry = entry.WithField("manager_id", managerID)
	}
	if code >= http.StatusInternalServerError {
		entry.WithError(err).Error("Request failed")
	} else {
		entry.WithError(err).Debug("Request rejected")
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, ErrorResponse{Error: message})
	}
	if writeErr != nil {
		entry.WithError(writeErr).Error("Failed to write error response")
	}
}
