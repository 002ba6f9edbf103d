// Package auth issues and verifies the capability tokens handed out when a
// device creates or joins a room. A token binds (role, device, room); it is
// the only credential required for subsequent calls acting on that identity.
package auth

import (
	"time"

	"signal-relay/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the data carried inside a capability token.
type Claims struct {
	Role     string `json:"role"`
	DeviceID string `json:"device_id"`
	RoomID   string `json:"room_id"`
	jwt.RegisteredClaims
}

type Tokens struct {
	secret []byte
	ttl    time.Duration
}

// NewTokens builds a token issuer. The secret is loaded from configuration;
// every relay instance sharing a store must share the secret.
func NewTokens(secret []byte, ttl time.Duration) *Tokens {
	return &Tokens{secret: secret, ttl: ttl}
}

// Issue creates a signed token for the given identity, valid for the
// configured ttl.
func (t *Tokens) Issue(role domain.Role, deviceID, roomID string) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		Role:     string(role),
		DeviceID: deviceID,
		RoomID:   roomID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    "signal-relay",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	// HS256: HMAC with SHA256, same shared secret verifies.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse validates the signature and expiration of a token string and returns
// its claims. Field-level checks (does the room match, is the role host) are
// the caller's decision.
func (t *Tokens) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}
