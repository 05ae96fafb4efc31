package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/geocode"
	"carpool/internal/service"
)

// RideHandler handles HTTP requests for pooled trips.
type RideHandler struct {
	bookingService *service.BookingService
	geocoder       geocode.Geocoder
}

// NewRideHandler creates a new RideHandler. geocoder may be nil, in
// which case address fields are rejected.
func NewRideHandler(bookingService *service.BookingService, geocoder geocode.Geocoder) *RideHandler {
	return &RideHandler{
		bookingService: bookingService,
		geocoder:       geocoder,
	}
}

// BookRideRequest is the HTTP request body for booking a ride. Each
// endpoint is given either as coordinates or as an address to geocode.
type BookRideRequest struct {
	RiderID        string   `json:"rider_id"`
	PickupLat      *float64 `json:"pickup_lat,omitempty"`
	PickupLng      *float64 `json:"pickup_lng,omitempty"`
	DropoffLat     *float64 `json:"dropoff_lat,omitempty"`
	DropoffLng     *float64 `json:"dropoff_lng,omitempty"`
	PickupAddress  string   `json:"pickup_address,omitempty"`
	DropoffAddress string   `json:"dropoff_address,omitempty"`
}

// JoinTripRequest is the HTTP request body for joining a specific trip.
type JoinTripRequest struct {
	RiderID   string  `json:"rider_id"`
	PickupLat float64 `json:"pickup_lat"`
	PickupLng float64 `json:"pickup_lng"`
}

// CancelRideRequest is the HTTP request body for leaving a trip.
type CancelRideRequest struct {
	RiderID string `json:"rider_id"`
}

// PassengerFareResponse is one rider's share in a trip response.
type PassengerFareResponse struct {
	Fare     float64 `json:"fare"`
	Distance float64 `json:"distance"`
	Shared   bool    `json:"shared"`
}

// TripResponse is the HTTP representation of a pooled trip.
type TripResponse struct {
	ID              string                           `json:"id"`
	DriverID        string                           `json:"driver_id,omitempty"`
	Status          string                           `json:"status"`
	Pickup          domain.Coordinate                `json:"pickup"`
	Dropoff         domain.Coordinate                `json:"dropoff"`
	Passengers      []PassengerResponse              `json:"passengers"`
	Fare            float64                          `json:"fare"`
	Breakdown       map[string]PassengerFareResponse `json:"breakdown"`
	RejectedDrivers []string                         `json:"rejected_drivers,omitempty"`
	Version         int64                            `json:"version"`
}

// PassengerResponse is one passenger in a trip response.
type PassengerResponse struct {
	RiderID string            `json:"rider_id"`
	Pickup  domain.Coordinate `json:"pickup"`
}

// BookRideResponse is the HTTP response for booking a ride.
type BookRideResponse struct {
	Trip   TripResponse          `json:"trip"`
	Joined bool                  `json:"joined"`
	Fare   PassengerFareResponse `json:"fare"`
}

// CancelRideResponse is the HTTP response for leaving a trip.
type CancelRideResponse struct {
	Trip    *TripResponse `json:"trip,omitempty"`
	Deleted bool          `json:"deleted"`
}

func tripResponse(trip *domain.Trip) TripResponse {
	passengers := make([]PassengerResponse, 0, len(trip.Passengers))
	for _, p := range trip.Passengers {
		passengers = append(passengers, PassengerResponse{
			RiderID: p.RiderID,
			Pickup:  p.Pickup,
		})
	}

	breakdown := make(map[string]PassengerFareResponse, len(trip.Breakdown))
	for riderID, f := range trip.Breakdown {
		breakdown[riderID] = PassengerFareResponse{
			Fare:     f.Fare,
			Distance: f.Distance,
			Shared:   f.Shared,
		}
	}

	return TripResponse{
		ID:              trip.ID,
		DriverID:        trip.DriverID,
		Status:          string(trip.Status),
		Pickup:          trip.Pickup,
		Dropoff:         trip.Dropoff,
		Passengers:      passengers,
		Fare:            trip.Fare,
		Breakdown:       breakdown,
		RejectedDrivers: trip.RejectedDrivers,
		Version:         trip.Version,
	}
}

// resolveEndpoint turns a lat/lng pair or an address into a coordinate.
func (h *RideHandler) resolveEndpoint(c *gin.Context, lat, lng *float64, address string) (domain.Coordinate, bool) {
	if lat != nil && lng != nil {
		return domain.Coordinate{Lat: *lat, Lng: *lng}, true
	}
	if address == "" {
		return domain.Coordinate{}, false
	}
	if h.geocoder == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "address lookup not configured"})
		return domain.Coordinate{}, false
	}
	coord, err := h.geocoder.Resolve(c.Request.Context(), address)
	if err != nil {
		respondError(c, err)
		return domain.Coordinate{}, false
	}
	return coord, true
}

// BookRide handles POST /v1/rides
func (h *RideHandler) BookRide(c *gin.Context) {
	var req BookRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	pickup, ok := h.resolveEndpoint(c, req.PickupLat, req.PickupLng, req.PickupAddress)
	if !ok {
		if !c.Writer.Written() {
			respondError(c, service.ErrInvalidPickup)
		}
		return
	}
	dropoff, ok := h.resolveEndpoint(c, req.DropoffLat, req.DropoffLng, req.DropoffAddress)
	if !ok {
		if !c.Writer.Written() {
			respondError(c, service.ErrInvalidDropoff)
		}
		return
	}

	result, err := h.bookingService.BookRide(c.Request.Context(), service.BookRideRequest{
		RiderID: req.RiderID,
		Pickup:  pickup,
		Dropoff: dropoff,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Joined {
		status = http.StatusOK
	}
	respondJSON(c, status, BookRideResponse{
		Trip:   tripResponse(result.Trip),
		Joined: result.Joined,
		Fare: PassengerFareResponse{
			Fare:     result.Fare.Fare,
			Distance: result.Fare.Distance,
			Shared:   result.Fare.Shared,
		},
	})
}

// JoinTrip handles POST /v1/rides/:id/join
func (h *RideHandler) JoinTrip(c *gin.Context) {
	tripID := c.Param("id")

	var req JoinTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	trip, err := h.bookingService.Join(c.Request.Context(), tripID, req.RiderID,
		domain.Coordinate{Lat: req.PickupLat, Lng: req.PickupLng})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, tripResponse(trip))
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	tripID := c.Param("id")

	var req CancelRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.bookingService.CancelRide(c.Request.Context(), req.RiderID, tripID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := CancelRideResponse{Deleted: result.Deleted}
	if result.Trip != nil {
		tr := tripResponse(result.Trip)
		resp.Trip = &tr
	}
	respondJSON(c, http.StatusOK, resp)
}

// GetTrip handles GET /v1/rides/:id
func (h *RideHandler) GetTrip(c *gin.Context) {
	trip, err := h.bookingService.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, tripResponse(trip))
}

// ListPending handles GET /v1/rides
func (h *RideHandler) ListPending(c *gin.Context) {
	trips, err := h.bookingService.ListPending(c.Request.Context())
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

// FindAvailable handles POST /v1/rides/available. Endpoints arrive as
// coordinates or as addresses to geocode, same as booking.
func (h *RideHandler) FindAvailable(c *gin.Context) {
	var req struct {
		PickupLat      *float64 `json:"pickup_lat,omitempty"`
		PickupLng      *float64 `json:"pickup_lng,omitempty"`
		DropoffLat     *float64 `json:"dropoff_lat,omitempty"`
		DropoffLng     *float64 `json:"dropoff_lng,omitempty"`
		PickupAddress  string   `json:"pickup_address,omitempty"`
		DropoffAddress string   `json:"dropoff_address,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	pickup, ok := h.resolveEndpoint(c, req.PickupLat, req.PickupLng, req.PickupAddress)
	if !ok {
		if !c.Writer.Written() {
			respondError(c, service.ErrInvalidPickup)
		}
		return
	}
	dropoff, ok := h.resolveEndpoint(c, req.DropoffLat, req.DropoffLng, req.DropoffAddress)
	if !ok {
		if !c.Writer.Written() {
			respondError(c, service.ErrInvalidDropoff)
		}
		return
	}

	trips, err := h.bookingService.FindAvailableRides(c.Request.Context(), pickup, dropoff)
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
