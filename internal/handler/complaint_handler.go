package handler

import (
	"net/http"
	"strconv"
	"strings"

	"accountability-service/internal/model"
	"accountability-service/internal/service"

	"github.com/gin-gonic/gin"
)

type ComplaintHandler struct {
	complaintService *service.ComplaintService
}

func NewComplaintHandler(complaintService *service.ComplaintService) *ComplaintHandler {
	return &ComplaintHandler{complaintService: complaintService}
}

// Handles POST /complaints. Identity headers are optional and dropped for
// anonymous submissions.
func (h *ComplaintHandler) Submit(c *gin.Context) {
	var req model.SubmitComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if userID := c.GetHeader("X-User-ID"); userID != "" {
		req.ReporterID = &userID
	}
	if userName := c.GetHeader("X-User-Name"); userName != "" {
		req.ReporterName = &userName
	}

	complaint, err := h.complaintService.Submit(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Complaint filed successfully",
		"complaint": complaint.Public(),
	})
}

func (h *ComplaintHandler) Get(c *gin.Context) {
	complaint, err := h.complaintService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

// Handles POST /complaints/:id/transitions.
func (h *ComplaintHandler) Transition(c *gin.Context) {
	var req model.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var expected *int64
	if v := strings.Trim(c.GetHeader("If-Match"), `" `); v != "" {
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "If-Match must be a complaint version"})
			return
		}
		expected = &version
	}

	complaint, err := h.complaintService.Transition(c.Request.Context(), c.Param("id"), req.Action, c.GetHeader("Authorization"), expected)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("ETag", strconv.FormatInt(complaint.Version, 10))
	c.JSON(http.StatusOK, gin.H{
		"message":   "Complaint status updated",
		"complaint": complaint,
	})
}

// Handles GET /public - anonymized feed with optional filters.
func (h *ComplaintHandler) PublicFeed(c *gin.Context) {
	var filter model.PublicFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	complaints, err := h.complaintService.PublicFeed(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.ComplaintListResponse{
		Complaints: complaints,
		Total:      len(complaints),
	})
}

func (h *ComplaintHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.complaintService.Categories()})
}

func (h *ComplaintHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
