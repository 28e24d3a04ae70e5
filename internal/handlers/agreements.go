package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"skyview/api/internal/middleware"
	"skyview/api/internal/models"
)

type submitAgreementRequest struct {
	ApartmentID string `json:"apartmentId" binding:"required"`
}

type agreementResponse struct {
	ID          string    `json:"id"`
	UserName    string    `json:"userName"`
	UserEmail   string    `json:"userEmail"`
	Floor       int       `json:"floor"`
	Block       string    `json:"block"`
	ApartmentNo int       `json:"apartmentNo"`
	Rent        float64   `json:"rent"`
	Status      string    `json:"status"`
	RequestDate time.Time `json:"requestDate"`
}

func toAgreementResponse(r models.AgreementRequest) agreementResponse {
	return agreementResponse{
		ID:          r.ID,
		UserName:    r.UserName,
		UserEmail:   r.UserEmail,
		Floor:       r.Floor,
		Block:       r.Block,
		ApartmentNo: r.ApartmentNo,
		Rent:        r.Rent,
		Status:      string(r.Status),
		RequestDate: r.RequestDate,
	}
}

func (h HandlerSet) SubmitAgreement(c *gin.Context) {
	account, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req submitAgreementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	apartment, err := h.residence.GetApartment(c.Request.Context(), req.ApartmentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "apartment not found"})
		return
	}

	request, err := h.engine.SubmitRequest(c.Request.Context(), account, apartment)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"request": toAgreementResponse(request)})
}

func (h HandlerSet) ListPendingAgreements(c *gin.Context) {
	pending, err := h.engine.ListPending(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]agreementResponse, 0, len(pending))
	for _, request := range pending {
		items = append(items, toAgreementResponse(request))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type decisionRequest struct {
	Outcome string `json:"outcome" binding:"required,oneof=accept reject"`
}

func (h HandlerSet) DecideAgreement(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.engine.Decide(c.Request.Context(), c.Param("id"), models.Decision(req.Outcome))
	if err != nil {
		h.respondError(c, err)
		return
	}

	message := "request rejected"
	if req.Outcome == string(models.DecisionAccept) {
		message = "request accepted, user promoted to member"
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}
