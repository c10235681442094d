package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/healthsync/healthsync/domain"
)

// LocationHandlers handles location capture HTTP requests
type LocationHandlers struct {
	locationSvc domain.LocationService
}

// NewLocationHandlers creates new location handlers
func NewLocationHandlers(locationSvc domain.LocationService) *LocationHandlers {
	return &LocationHandlers{locationSvc: locationSvc}
}

// UpdateLocationRequest represents a location capture submission
type UpdateLocationRequest struct {
	UserID    uint     `json:"userId" binding:"required"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address"`
	City      string   `json:"city" binding:"required"`
	State     string   `json:"state" binding:"required"`
	Country   string   `json:"country"`
	Pincode   string   `json:"pincode" binding:"required"`
}

// CheckLocationStatus reports whether a user still needs the first-time
// location capture step
func (h *LocationHandlers) CheckLocationStatus(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid user ID"})
		return
	}

	status, err := h.locationSvc.CheckStatus(c.Request.Context(), uint(userID))
	if err != nil {
		if err == domain.ErrUserNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to check location status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"needsLocationSetup": status.NeedsLocationSetup,
		"locationCaptured":   status.LocationCaptured,
		"hasLocation":        status.HasLocation,
	})
}

// UpdateLocation persists a captured location against the user
func (h *LocationHandlers) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	source := domain.LocationSourceManual
	if req.Latitude != nil && req.Longitude != nil {
		source = domain.LocationSourceGPS
	}

	loc := &domain.LocationRecord{
		Source:    source,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Address:   req.Address,
		City:      req.City,
		State:     req.State,
		Country:   req.Country,
		Pincode:   req.Pincode,
	}

	if _, err := h.locationSvc.UpdateLocation(c.Request.Context(), req.UserID, loc); err != nil {
		if err == domain.ErrUserNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update location"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "locationCaptured": true})
}
