package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skyview/api/internal/models"
)

type couponResponse struct {
	ID          string  `json:"id"`
	Code        string  `json:"code"`
	Discount    float64 `json:"discount"`
	Description string  `json:"description"`
	IsAvailable bool    `json:"isAvailable"`
}

func toCouponResponses(coupons []models.Coupon) []couponResponse {
	items := make([]couponResponse, 0, len(coupons))
	for _, coupon := range coupons {
		items = append(items, couponResponse{
			ID:          coupon.ID,
			Code:        coupon.Code,
			Discount:    coupon.Discount,
			Description: coupon.Description,
			IsAvailable: coupon.IsAvailable,
		})
	}
	return items
}

// ListAvailableCoupons feeds the public offers section.
func (h HandlerSet) ListAvailableCoupons(c *gin.Context) {
	coupons, err := h.billing.ListCoupons(c.Request.Context(), false)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toCouponResponses(coupons)})
}

func (h HandlerSet) ListAllCoupons(c *gin.Context) {
	coupons, err := h.billing.ListCoupons(c.Request.Context(), true)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toCouponResponses(coupons)})
}

type createCouponRequest struct {
	Code        string  `json:"code" binding:"required"`
	Discount    float64 `json:"discount" binding:"min=0,max=100"`
	Description string  `json:"description" binding:"required"`
}

func (h HandlerSet) CreateCoupon(c *gin.Context) {
	var req createCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coupon, err := h.billing.CreateCoupon(c.Request.Context(), req.Code, req.Discount, req.Description)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"coupon": couponResponse{
		ID:          coupon.ID,
		Code:        coupon.Code,
		Discount:    coupon.Discount,
		Description: coupon.Description,
		IsAvailable: coupon.IsAvailable,
	}})
}

type availabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

func (h HandlerSet) SetCouponAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.billing.SetAvailability(c.Request.Context(), c.Param("id"), *req.Available); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "coupon updated"})
}
