package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type memberResponse struct {
	ID    string `json:"id"`
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h HandlerSet) ListMembers(c *gin.Context) {
	members, err := h.engine.ListMembers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]memberResponse, 0, len(members))
	for _, member := range members {
		items = append(items, memberResponse{
			ID:    member.ID,
			UID:   member.UID,
			Name:  member.Name,
			Email: member.Email,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// DemoteMember resets an account to a plain user and clears its
// tenancy. Idempotent.
func (h HandlerSet) DemoteMember(c *gin.Context) {
	if err := h.engine.Demote(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "member removed"})
}
