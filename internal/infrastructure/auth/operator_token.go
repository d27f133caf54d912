package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/retailops/backend/internal/infrastructure/config"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrMissingOperator  = errors.New("missing operator_id in claims")
)

// OperatorClaims identifies the cashier or manager behind a settlement
// request. The operator ID ends up on settlement events and approvals, so a
// token without one is rejected outright.
type OperatorClaims struct {
	jwt.RegisteredClaims
	OperatorID string   `json:"operator_id"`
	Name       string   `json:"name,omitempty"`
	Roles      []string `json:"roles,omitempty"`
}

// OperatorUUID parses the operator ID from the claims
func (c *OperatorClaims) OperatorUUID() (uuid.UUID, error) {
	return uuid.Parse(c.OperatorID)
}

// HasRole checks if the claims carry a specific role
func (c *OperatorClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenService issues and validates operator session tokens. Tokens are
// HMAC-signed and live for one shift; there is no refresh flow, the operator
// signs in again.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewTokenService creates a new TokenService
func NewTokenService(cfg config.AuthConfig) *TokenService {
	return &TokenService{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TokenTTL,
		issuer: cfg.Issuer,
	}
}

// Issue creates a signed session token for an operator
func (s *TokenService) Issue(operatorID uuid.UUID, name string, roles []string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)

	claims := &OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   operatorID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OperatorID: operatorID.String(),
		Name:       name,
		Roles:      roles,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate checks a session token's signature and lifetime and returns its
// claims
func (s *TokenService) Validate(tokenString string) (*OperatorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*OperatorClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.OperatorID == "" {
		return nil, ErrMissingOperator
	}
	if _, err := claims.OperatorUUID(); err != nil {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}
