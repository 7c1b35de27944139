package handler

import (
	"net/http"

	"accountability-service/internal/repository"
	"accountability-service/internal/service"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
	outbox           repository.OutboxStore
}

func NewDashboardHandler(dashboardService *service.DashboardService, outbox repository.OutboxStore) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, outbox: outbox}
}

func (h *DashboardHandler) Aggregates(c *gin.Context) {
	stats, err := h.dashboardService.Aggregates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *DashboardHandler) OutboxStats(c *gin.Context) {
	stats, err := h.outbox.OutboxStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
