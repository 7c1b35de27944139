package handler

import (
	"net/http"

	"accountability-service/internal/service"

	"github.com/gin-gonic/gin"
)

type TrackingHandler struct {
	trackingService *service.TrackingService
}

func NewTrackingHandler(trackingService *service.TrackingService) *TrackingHandler {
	return &TrackingHandler{trackingService: trackingService}
}

func (h *TrackingHandler) Timeline(c *gin.Context) {
	timeline, err := h.trackingService.Timeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaint_id": c.Param("id"), "timeline": timeline})
}

func (h *TrackingHandler) Track(c *gin.Context) {
	view, err := h.trackingService.Track(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
