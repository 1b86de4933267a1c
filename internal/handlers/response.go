package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/netai/social-api/internal/services"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func ok(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{Success: true, Message: message, Data: data})
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), Response{Success: false, Message: err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Message: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrUnauthorized),
		errors.Is(err, services.ErrThrottled):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConsistency):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// skipParam reads the "skip" query parameter, defaulting to 0.
func skipParam(c *gin.Context) (int, error) {
	raw := c.Query("skip")
	if raw == "" {
		return 0, nil
	}
	skip, err := strconv.Atoi(raw)
	if err != nil || skip < 0 {
		return 0, errors.New("skip must be a non-negative integer")
	}
	return skip, nil
}
