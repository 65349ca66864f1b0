package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	Principal string
	Admin     bool
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to clients. The
// principal is the ledger account string the caller acts as.
type AccessTokenClaims struct {
	Principal string `json:"principal"`
	Admin     bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}
