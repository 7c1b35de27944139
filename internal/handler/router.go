package handler

import (
	"github.com/gin-gonic/gin"
)

func NewRouter(complaints *ComplaintHandler, tracking *TrackingHandler, dashboard *DashboardHandler) *gin.Engine {
	r := gin.Default()

	r.GET("/health", complaints.Health)
	r.GET("/categories", complaints.Categories)
	r.GET("/public", complaints.PublicFeed)
	r.GET("/dashboard", dashboard.Aggregates)
	r.GET("/track/:id", tracking.Track)

	c := r.Group("/complaints")
	{
		c.POST("", complaints.Submit)
		c.GET("/:id", complaints.Get)
		c.GET("/:id/timeline", tracking.Timeline)
		c.POST("/:id/transitions", complaints.Transition)
	}

	r.GET("/admin/outbox/stats", dashboard.OutboxStats)

	return r
}
