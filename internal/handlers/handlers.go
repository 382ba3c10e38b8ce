package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rahulvalluru1-source/fieldtrack/internal/middleware"
	"github.com/rahulvalluru1-source/fieldtrack/internal/services"
)

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

// failErr maps service errors onto HTTP statuses. Anything unrecognised is a
// persistence or infrastructure failure: logged and reported as 500.
func failErr(c *gin.Context, lg *log.Logger, context string, err error) {
	switch {
	case errors.Is(err, services.ErrAlreadyCheckedIn),
		errors.Is(err, services.ErrNotCheckedIn),
		errors.Is(err, services.ErrAlreadyCheckedOut):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidCoordinates):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, err.Error())
	default:
		lg.Printf("error %s: %v", context, err)
		fail(c, http.StatusInternalServerError, "internal server error")
	}
}

func currentUser(c *gin.Context) uint {
	return c.GetUint(middleware.KeyUserID)
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "fieldtrack backend is running",
	})
}
