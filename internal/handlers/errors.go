package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playdrop/backend/internal/services"
)

// respondServiceError maps the service error taxonomy onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	var partial *services.PartialFailureError

	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrReferentialConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrShareExpired):
		c.JSON(http.StatusGone, gin.H{"error": "share link expired"})
	case errors.Is(err, services.ErrShareGate):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &partial):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "operation partially failed",
			"op":    partial.Op,
			"step":  partial.Step,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
