package models

// Logical collection names in the record store. They match the document
// collections the web client reads.
const (
	CollectionUsers         = "users"
	CollectionApartments    = "apartments"
	CollectionAgreements    = "agreements"
	CollectionCoupons       = "coupons"
	CollectionPayments      = "payments"
	CollectionAnnouncements = "announcements"
)
