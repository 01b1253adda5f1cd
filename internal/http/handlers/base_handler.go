// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"maliride/internal/modules/cancellation"
	"maliride/internal/modules/driver"
	"maliride/internal/modules/trip"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeDomainError maps module sentinel errors to HTTP statuses. Anything
// unrecognized is logged and reported as a 500 without details.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, trip.ErrBadRequest), errors.Is(err, driver.ErrBadRequest), errors.Is(err, trip.ErrNoDriver):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, cancellation.ErrNotAssigned):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, trip.ErrNotFound), errors.Is(err, driver.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, trip.ErrInvalidState), errors.Is(err, trip.ErrConflict), errors.Is(err, driver.ErrDuplicate):
		writeError(c, http.StatusConflict, err.Error())
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
