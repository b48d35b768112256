package auth

import "github.com/golang-jwt/jwt/v5"

// AccessTokenPayload captures the data available when minting a customer token.
type AccessTokenPayload struct {
	CustomerID int64
	Email      string
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to storefront customers.
type AccessTokenClaims struct {
	CustomerID int64  `json:"customer_id"`
	Email      string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
