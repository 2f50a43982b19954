package suppression

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is how long an unsubscribe link stays valid.
const DefaultTokenTTL = 30 * 24 * time.Hour

// Claims identify the pair an unsubscribe link suppresses.
type Claims struct {
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256-signed unsubscribe tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token codec. A non-positive ttl uses DefaultTokenTTL.
func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("unsubscribe secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for the pair.
func (t *Tokens) Issue(senderID, recipientID string) (string, error) {
	now := t.now()
	claims := Claims{
		SenderID:    senderID,
		RecipientID: recipientID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign unsubscribe token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry and returns the claims.
// Every failure wraps ErrInvalidToken.
func (t *Tokens) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.SenderID == "" || claims.RecipientID == "" {
		return nil, fmt.Errorf("%w: missing pair", ErrInvalidToken)
	}
	return claims, nil
}
