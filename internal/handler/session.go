package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/redis"
)

// SessionHandler handles the realtime presence registry. Connected
// clients register the delivery channel their events should be
// published on.
type SessionHandler struct {
	presence redis.PresenceStoreInterface
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(presence redis.PresenceStoreInterface) *SessionHandler {
	return &SessionHandler{presence: presence}
}

// ConnectRequest is the HTTP request body for registering a session.
type ConnectRequest struct {
	Role    string `json:"role"` // "rider" or "driver"
	ID      string `json:"id"`
	Channel string `json:"channel"`
}

// SessionResponse is the HTTP representation of a registered session.
type SessionResponse struct {
	Role    string `json:"role"`
	ID      string `json:"id"`
	Channel string `json:"channel"`
}

func parseRole(raw string) (redis.Role, bool) {
	switch redis.Role(raw) {
	case redis.RoleRider, redis.RoleDriver:
		return redis.Role(raw), true
	default:
		return "", false
	}
}

// Connect handles POST /v1/sessions
func (h *SessionHandler) Connect(c *gin.Context) {
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	role, ok := parseRole(req.Role)
	if !ok || req.ID == "" || req.Channel == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "role, id and channel are required"})
		return
	}

	if err := h.presence.Connect(c.Request.Context(), role, req.ID, req.Channel); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, SessionResponse{
		Role:    string(role),
		ID:      req.ID,
		Channel: req.Channel,
	})
}

// Disconnect handles DELETE /v1/sessions/:role/:id
func (h *SessionHandler) Disconnect(c *gin.Context) {
	role, ok := parseRole(c.Param("role"))
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown role"})
		return
	}

	if err := h.presence.Disconnect(c.Request.Context(), role, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"status": "disconnected"})
}

// Lookup handles GET /v1/sessions/:role/:id
func (h *SessionHandler) Lookup(c *gin.Context) {
	role, ok := parseRole(c.Param("role"))
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown role"})
		return
	}

	channel, found, err := h.presence.Lookup(c.Request.Context(), role, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
		return
	}

	respondJSON(c, http.StatusOK, SessionResponse{
		Role:    string(role),
		ID:      c.Param("id"),
		Channel: channel,
	})
}

// Online handles GET /v1/sessions/:role
func (h *SessionHandler) Online(c *gin.Context) {
	role, ok := parseRole(c.Param("role"))
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown role"})
		return
	}

	ids, err := h.presence.Online(c.Request.Context(), role)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"role": string(role), "online": ids})
}
