package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles understood by the lending API.
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// Claims is the token payload. For customer tokens CustomerID identifies the
// borrower the caller acts as.
type Claims struct {
	jwt.RegisteredClaims
	CustomerID uuid.UUID `json:"customer_id"`
	Roles      []string  `json:"roles"`
}

// HasRole reports whether role was granted.
func (c Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// CanActFor reports whether the caller may read or pay loans owned by
// customerID. Admins may act for anyone; customers only for themselves.
func (c Claims) CanActFor(customerID uuid.UUID) bool {
	if c.HasRole(RoleAdmin) {
		return true
	}
	return c.HasRole(RoleCustomer) && c.CustomerID != uuid.Nil && c.CustomerID == customerID
}
