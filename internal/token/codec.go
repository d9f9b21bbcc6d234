package token

import (
	"errors"
	"fmt"
	"time"

	"backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every decode failure: bad signature, malformed
// input, expiry in the past, or a token of the wrong kind.
var ErrInvalidToken = errors.New("invalid token")

// Codec signs and verifies the service's own access and refresh tokens.
// The signing key and algorithm come from configuration, loaded once at
// startup.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
}

func NewCodec(secret string, algorithm string) (*Codec, error) {
	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("signing algorithm %q is not an HMAC method", algorithm)
	}
	if secret == "" {
		return nil, errors.New("signing secret must not be empty")
	}
	return &Codec{secret: []byte(secret), method: method}, nil
}

// Algorithm returns the configured signing algorithm name, e.g. "HS256".
func (c *Codec) Algorithm() string {
	return c.method.Alg()
}

// Encode issues a signed token for the user expiring ttl from now.
func (c *Codec) Encode(userID, username string, kind models.TokenKind, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &models.Claims{
		UserID:   userID,
		Username: username,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies signature, expiry and kind, and returns the claims.
func (c *Codec) Decode(tokenString string, kind models.TokenKind) (*models.Claims, error) {
	claims := &models.Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return c.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: token kind %q where %q expected", ErrInvalidToken, claims.Kind, kind)
	}
	return claims, nil
}
