package models

import "time"

// Coupon codes are stored upper-cased. Coupons are never hard-deleted;
// admins flip IsAvailable instead.
type Coupon struct {
	ID          string  `json:"-"`
	Code        string  `json:"code"`
	Discount    float64 `json:"discount"`
	Description string  `json:"description"`
	IsAvailable bool    `json:"isAvailable"`
}

// PaymentRecord is append-only; one record per successful payment.
type PaymentRecord struct {
	ID            string    `json:"-"`
	MemberEmail   string    `json:"memberEmail"`
	Month         string    `json:"month"`
	Rent          float64   `json:"rent"`
	Discount      float64   `json:"discount"`
	FinalAmount   float64   `json:"finalAmount"`
	Date          time.Time `json:"date"`
	TransactionID string    `json:"transactionId"`
}
