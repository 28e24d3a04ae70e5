package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type announcementResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

func (h HandlerSet) ListAnnouncements(c *gin.Context) {
	announcements, err := h.residence.ListAnnouncements(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]announcementResponse, 0, len(announcements))
	for _, item := range announcements {
		items = append(items, announcementResponse{
			ID:          item.ID,
			Title:       item.Title,
			Description: item.Description,
			Date:        item.Date,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type postAnnouncementRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
}

func (h HandlerSet) PostAnnouncement(c *gin.Context) {
	var req postAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	announcement, err := h.residence.PostAnnouncement(c.Request.Context(), req.Title, req.Description)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"announcement": announcementResponse{
		ID:          announcement.ID,
		Title:       announcement.Title,
		Description: announcement.Description,
		Date:        announcement.Date,
	}})
}
