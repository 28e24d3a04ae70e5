package models

import "time"

type AgreementStatus string

const (
	AgreementStatusPending AgreementStatus = "pending"
	AgreementStatusChecked AgreementStatus = "checked"
)

// AgreementRequest is a tenant's application to rent a specific
// apartment. Apartment fields are copied at submission time. The status
// moves pending -> checked exactly once and never back.
type AgreementRequest struct {
	ID          string          `json:"-"`
	UserID      string          `json:"userId"`
	UserName    string          `json:"userName"`
	UserEmail   string          `json:"userEmail"`
	Floor       int             `json:"floor"`
	Block       string          `json:"block"`
	ApartmentNo int             `json:"apartmentNo"`
	Rent        float64         `json:"rent"`
	Status      AgreementStatus `json:"status"`
	RequestDate time.Time       `json:"requestDate"`
}

// Decision is an admin's verdict on a pending request.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)
