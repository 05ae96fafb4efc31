package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/fare"
	"carpool/internal/geocode"
	"carpool/internal/repository"
	"carpool/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRiderID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidPickup),
		errors.Is(err, service.ErrInvalidDropoff),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidName),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, fare.ErrInvalidDistance),
		errors.Is(err, fare.ErrOffsetOutOfRange),
		errors.Is(err, geocode.ErrAddressNotFound):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, fare.ErrCapacityExceeded),
		errors.Is(err, service.ErrRiderAlreadyOnTrip),
		errors.Is(err, service.ErrRiderNotOnTrip),
		errors.Is(err, service.ErrTripNotAvailable),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, repository.ErrVersionConflict):
		return http.StatusConflict

	// Forbidden/Business rule errors
	case errors.Is(err, service.ErrDriverNotAssigned):
		return http.StatusForbidden

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
