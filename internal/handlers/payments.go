package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"skyview/api/internal/billing"
	"skyview/api/internal/middleware"
)

type quoteRequest struct {
	CouponCode string `json:"couponCode"`
}

type quoteResponse struct {
	Rent        float64 `json:"rent"`
	Discount    float64 `json:"discount"`
	FinalAmount float64 `json:"finalAmount"`
	CouponValid bool    `json:"couponValid"`
}

// QuotePayment previews what the member would pay with an optional
// coupon applied. A code that resolves to nothing yields couponValid
// false and the full rent, so the client can tell "invalid coupon"
// apart from a genuine 0% coupon.
func (h HandlerSet) QuotePayment(c *gin.Context) {
	account, ok := middleware.CurrentUser(c)
	if !ok || account.RentedApartment == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "no rented apartment"})
		return
	}

	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	discount, found, err := h.billing.ResolveCoupon(c.Request.Context(), req.CouponCode)
	if err != nil {
		h.respondError(c, err)
		return
	}

	rent := account.RentedApartment.Rent
	final, err := billing.ComputeFinalAmount(rent, discount)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, quoteResponse{
		Rent:        rent,
		Discount:    discount,
		FinalAmount: final,
		CouponValid: found,
	})
}

type payRequest struct {
	Month      string `json:"month" binding:"required"`
	CouponCode string `json:"couponCode"`
}

type paymentResponse struct {
	Month         string    `json:"month"`
	Rent          float64   `json:"rent"`
	Discount      float64   `json:"discount"`
	FinalAmount   float64   `json:"finalAmount"`
	Date          time.Time `json:"date"`
	TransactionID string    `json:"transactionId"`
}

func (h HandlerSet) Pay(c *gin.Context) {
	account, ok := middleware.CurrentUser(c)
	if !ok || account.RentedApartment == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "no rented apartment"})
		return
	}

	var req payRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	discount, _, err := h.billing.ResolveCoupon(c.Request.Context(), req.CouponCode)
	if err != nil {
		h.respondError(c, err)
		return
	}

	payment, err := h.billing.RecordPayment(c.Request.Context(), account.Email, req.Month, account.RentedApartment.Rent, discount)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"payment": paymentResponse{
		Month:         payment.Month,
		Rent:          payment.Rent,
		Discount:      payment.Discount,
		FinalAmount:   payment.FinalAmount,
		Date:          payment.Date,
		TransactionID: payment.TransactionID,
	}})
}

func (h HandlerSet) PaymentHistory(c *gin.Context) {
	account, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	payments, err := h.billing.ListPayments(c.Request.Context(), account.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]paymentResponse, 0, len(payments))
	for _, payment := range payments {
		items = append(items, paymentResponse{
			Month:         payment.Month,
			Rent:          payment.Rent,
			Discount:      payment.Discount,
			FinalAmount:   payment.FinalAmount,
			Date:          payment.Date,
			TransactionID: payment.TransactionID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
