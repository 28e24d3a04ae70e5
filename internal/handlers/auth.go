package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"skyview/api/internal/middleware"
	"skyview/api/internal/models"
	"skyview/api/internal/service"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	PhotoURL string `json:"photoURL"`
}

type authResponse struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	SessionID    string          `json:"sessionId"`
	User         accountResponse `json:"user"`
}

type accountResponse struct {
	UID             string                  `json:"uid"`
	Name            string                  `json:"name"`
	Email           string                  `json:"email"`
	PhotoURL        string                  `json:"photoURL,omitempty"`
	Role            string                  `json:"role"`
	AgreementDate   *time.Time              `json:"agreementDate,omitempty"`
	RentedApartment *models.RentedApartment `json:"rentedApartment,omitempty"`
}

func toAccountResponse(account models.UserAccount) accountResponse {
	return accountResponse{
		UID:             account.UID,
		Name:            account.Name,
		Email:           account.Email,
		PhotoURL:        account.PhotoURL,
		Role:            string(account.Role),
		AgreementDate:   account.AgreementDate,
		RentedApartment: account.RentedApartment,
	}
}

func (h HandlerSet) RegisterAccount(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		PhotoURL: req.PhotoURL,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	sendAuthResponse(c, result)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	sendAuthResponse(c, result)
}

type refreshRequest struct {
	SessionID    string `json:"sessionId" binding:"required"`
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (h HandlerSet) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), service.RefreshInput{
		SessionID:    req.SessionID,
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	sendAuthResponse(c, result)
}

type logoutRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

func (h HandlerSet) Logout(c *gin.Context) {
	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.auth.Logout(c.Request.Context(), req.SessionID); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) Me(c *gin.Context) {
	account, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toAccountResponse(account)})
}

func sendAuthResponse(c *gin.Context, result service.AuthResult) {
	c.JSON(http.StatusOK, authResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		SessionID:    result.SessionID,
		User:         toAccountResponse(result.Account),
	})
}
