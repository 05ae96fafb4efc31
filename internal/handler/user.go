package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// UserHandler handles HTTP requests for riders.
type UserHandler struct {
	riderService *service.RiderService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(riderService *service.RiderService) *UserHandler {
	return &UserHandler{riderService: riderService}
}

// RegisterRiderRequest is the HTTP request body for registering a rider.
type RegisterRiderRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// RiderResponse is the HTTP representation of a rider.
type RiderResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

func riderResponse(r *domain.Rider) RiderResponse {
	return RiderResponse{
		ID:    r.ID,
		Name:  r.Name,
		Email: r.Email,
		Phone: r.Phone,
	}
}

// RegisterRider handles POST /v1/riders
func (h *UserHandler) RegisterRider(c *gin.Context) {
	var req RegisterRiderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	rider, err := h.riderService.RegisterRider(c.Request.Context(), service.RegisterRiderRequest{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, riderResponse(rider))
}

// GetRider handles GET /v1/riders/:id
func (h *UserHandler) GetRider(c *gin.Context) {
	rider, err := h.riderService.GetRider(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, riderResponse(rider))
}

// ListRiders handles GET /v1/riders
func (h *UserHandler) ListRiders(c *gin.Context) {
	riders, err := h.riderService.ListRiders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]RiderResponse, 0, len(riders))
	for _, r := range riders {
		out = append(out, riderResponse(r))
	}
	respondJSON(c, http.StatusOK, out)
}
