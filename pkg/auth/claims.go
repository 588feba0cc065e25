package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/souqline/souqline-backend/pkg/enums"
)

// AccessTokenClaims is the typed JWT minted by the external auth layer. The
// marketplace core only consumes it to identify the acting account.
type AccessTokenClaims struct {
	AccountID uuid.UUID       `json:"account_id"`
	Role      enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
