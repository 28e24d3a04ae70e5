package models

import "time"

type Role string

const (
	RoleUser   Role = "user"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// UserAccount is the profile document kept alongside the auth identity.
// Role is member if and only if RentedApartment and AgreementDate are
// both set; promotion and demotion touch the three fields together.
type UserAccount struct {
	ID              string           `json:"-"`
	UID             string           `json:"uid"`
	Name            string           `json:"name"`
	Email           string           `json:"email"`
	PasswordHash    []byte           `json:"passwordHash,omitempty"`
	PhotoURL        string           `json:"photoURL,omitempty"`
	Role            Role             `json:"role"`
	AgreementDate   *time.Time       `json:"agreementDate"`
	RentedApartment *RentedApartment `json:"rentedApartment"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// IsMember reports whether the account currently rents an apartment.
func (u UserAccount) IsMember() bool {
	return u.Role == RoleMember && u.RentedApartment != nil && u.AgreementDate != nil
}
