package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	driverService *service.DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService) *DriverHandler {
	return &DriverHandler{driverService: driverService}
}

// RegisterDriverRequest is the HTTP request body for registering a driver.
type RegisterDriverRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// DriverResponse is the HTTP representation of a driver.
type DriverResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
	Status string `json:"status"`
}

// UpdateLocationRequest is the HTTP request body for a location update.
type UpdateLocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func driverResponse(d *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:     d.ID,
		Name:   d.Name,
		Email:  d.Email,
		Phone:  d.Phone,
		Status: string(d.Status),
	}
}

// RegisterDriver handles POST /v1/drivers
func (h *DriverHandler) RegisterDriver(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driver, err := h.driverService.RegisterDriver(c.Request.Context(), service.RegisterDriverRequest{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, driverResponse(driver))
}

// GetDriver handles GET /v1/drivers/:id
func (h *DriverHandler) GetDriver(c *gin.Context) {
	driver, err := h.driverService.GetDriver(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, driverResponse(driver))
}

// UpdateLocation handles PUT /v1/drivers/:id/location
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err := h.driverService.UpdateLocation(c.Request.Context(), service.UpdateLocationRequest{
		DriverID: c.Param("id"),
		Location: domain.Coordinate{Lat: req.Lat, Lng: req.Lng},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"status": "location updated"})
}

// GoOffline handles POST /v1/drivers/:id/offline
func (h *DriverHandler) GoOffline(c *gin.Context) {
	if err := h.driverService.SetDriverOffline(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"status": "offline"})
}

// NearbyTrips handles GET /v1/drivers/:id/trips
func (h *DriverHandler) NearbyTrips(c *gin.Context) {
	var query struct {
		Lat float64 `form:"lat"`
		Lng float64 `form:"lng"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query parameters"})
		return
	}

	trips, err := h.driverService.NearbyTrips(c.Request.Context(), c.Param("id"),
		domain.Coordinate{Lat: query.Lat, Lng: query.Lng})
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]TripResponse, 0, len(trips))
	for _, t := range trips {
		out = append(out, tripResponse(t))
	}
	respondJSON(c, http.StatusOK, out)
}

// AcceptTrip handles POST /v1/drivers/:id/trips/:trip_id/accept
func (h *DriverHandler) AcceptTrip(c *gin.Context) {
	trip, err := h.driverService.AcceptTrip(c.Request.Context(), c.Param("id"), c.Param("trip_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, tripResponse(trip))
}

// RejectTrip handles POST /v1/drivers/:id/trips/:trip_id/reject
func (h *DriverHandler) RejectTrip(c *gin.Context) {
	if err := h.driverService.RejectTrip(c.Request.Context(), c.Param("id"), c.Param("trip_id")); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"status": "rejected"})
}

// CompleteTrip handles POST /v1/drivers/:id/trips/:trip_id/complete
func (h *DriverHandler) CompleteTrip(c *gin.Context) {
	trip, err := h.driverService.CompleteTrip(c.Request.Context(), c.Param("id"), c.Param("trip_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, tripResponse(trip))
}
