package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pwvale/panel-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	AccountID uint64
	Name      string
	Role      enums.AccountRole
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	AccountID uint64            `json:"account_id"`
	Name      string            `json:"name"`
	Role      enums.AccountRole `json:"role"`
	jwt.RegisteredClaims
}
