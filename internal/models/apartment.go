package models

// Apartment is immutable reference data seeded once. Only the image
// reference may be attached after seeding.
type Apartment struct {
	ID          string  `json:"-"`
	Floor       int     `json:"floor"`
	Block       string  `json:"block"`
	ApartmentNo int     `json:"apartmentNo"`
	Rent        float64 `json:"rent"`
	ImageURL    string  `json:"image,omitempty"`
}

// RentedApartment is the snapshot copied onto a UserAccount when an
// agreement is accepted. It deliberately does not reference the
// apartment document: a later rent change must not affect the tenant.
type RentedApartment struct {
	Floor       int     `json:"floor"`
	Block       string  `json:"block"`
	ApartmentNo int     `json:"apartmentNo"`
	Rent        float64 `json:"rent"`
}
