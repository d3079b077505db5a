package handler

import (
	"errors"
	"net/http"

	"replypilot/internal/service"

	"github.com/labstack/echo/v4"
)

// envelope is the response shape for every API route. A non-null Error marks
// a domain-level failure the client must check before trusting Data.
type envelope struct {
	Message string      `json:"message"`
	Error   *string     `json:"error"`
	Data    interface{} `json:"data"`
}

func respond(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, envelope{Message: message, Data: data})
}

func respondError(c echo.Context, status int, reason string) error {
	return c.JSON(status, envelope{Message: "request failed", Error: &reason})
}

// respondActionError maps a controller error onto the envelope: validation
// failures are the user's to fix, everything else is a gateway problem.
func respondActionError(c echo.Context, err error) error {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return respondError(c, http.StatusBadRequest, ve.Reason)
	}
	return respondError(c, http.StatusBadGateway, err.Error())
}
