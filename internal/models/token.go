package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind discriminates access tokens from refresh tokens so one can
// never be presented where the other is expected.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims defines the structure of the JWT claims.
type Claims struct {
	UserID   string    `json:"id"`
	Username string    `json:"username"`
	Kind     TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// TokenPair is the response body for every successful token issuance.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Alg          string `json:"alg"`
	Typ          string `json:"typ"`
}

// RefreshTokenInfo is the single-slot record of a user's current refresh
// token. Only the argon2 hash of the token is stored.
type RefreshTokenInfo struct {
	UserID       uuid.UUID `db:"user_id"`
	RefreshToken string    `db:"refresh_token"`
	Created      time.Time `db:"created"`
}

// IDInfo is the decoded payload of a Google ID token. Signature
// verification against the provider's key set is the OAuth client's
// concern; audience, issuer and expiry are re-checked by the service.
type IDInfo struct {
	Aud        string
	Iss        string
	Sub        string
	Iat        time.Time
	Exp        time.Time
	Email      string
	Name       string
	GivenName  string
	FamilyName string
	Picture    string
	Locale     string
}
