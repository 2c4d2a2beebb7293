package utils

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"

	"go-storefront/models"
)

const (
	PurposeAccess = "access"
	PurposeReset  = "reset"
)

// Claims represents the JWT claims
type Claims struct {
	UserID  string `json:"uid"`
	Email   string `json:"email,omitempty"`
	Purpose string `json:"purpose"`
	jwt.StandardClaims
}

// TokenIssuer signs and verifies HS256 tokens with a single secret.
type TokenIssuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{key: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateJWT issues an access token for a user.
func (t *TokenIssuer) GenerateJWT(userID, email string) (string, error) {
	now := t.now()
	claims := &Claims{
		UserID:  userID,
		Email:   email,
		Purpose: PurposeAccess,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(t.ttl).Unix(),
		},
	}
	return t.sign(claims)
}

// GenerateResetToken issues a single-purpose password reset token. The
// returned claims carry the token id used to make it single-use.
func (t *TokenIssuer) GenerateResetToken(userID string, ttl time.Duration) (string, *Claims, error) {
	now := t.now()
	claims := &Claims{
		UserID:  userID,
		Purpose: PurposeReset,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
	token, err := t.sign(claims)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

func (t *TokenIssuer) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseJWT verifies the signature, expiry and purpose of a token.
func (t *TokenIssuer) ParseJWT(tokenStr, purpose string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.key, nil
	})
	if err != nil || !token.Valid {
		return nil, models.ErrInvalidToken
	}
	if claims.Purpose != purpose || claims.UserID == "" {
		return nil, models.ErrInvalidToken
	}
	return claims, nil
}

// ExpiresAtTime returns the expiry of the claims as a time.
func (c *Claims) ExpiresAtTime() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}
