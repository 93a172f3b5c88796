// Package auth signs checkout completion tokens and checks shared route secrets.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
)

// DefaultCheckoutTokenExpiry covers the time a customer spends in the hosted flow
const DefaultCheckoutTokenExpiry = time.Hour

// CheckoutClaims bind a browser completion callback to the order it started for
type CheckoutClaims struct {
	jwt.RegisteredClaims
	OrderID string `json:"order_id"`
}

// CheckoutTokenManager issues HS256 tokens for checkout completion
type CheckoutTokenManager struct {
	key    []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

var _ ports.CheckoutTokens = (*CheckoutTokenManager)(nil)

// NewCheckoutTokenManager creates a token manager. An expiry of zero uses
// DefaultCheckoutTokenExpiry.
func NewCheckoutTokenManager(key []byte, issuer string, expiry time.Duration) (*CheckoutTokenManager, error) {
	if len(key) < 32 {
		return nil, fmt.Errorf("checkout token key must be at least 32 bytes")
	}
	if expiry <= 0 {
		expiry = DefaultCheckoutTokenExpiry
	}
	return &CheckoutTokenManager{
		key:    key,
		issuer: issuer,
		expiry: expiry,
		now:    time.Now,
	}, nil
}

// WithClock overrides the time source
func (m *CheckoutTokenManager) WithClock(now func() time.Time) *CheckoutTokenManager {
	m.now = now
	return m
}

// Issue signs a token for the order
func (m *CheckoutTokenManager) Issue(orderID string) (string, error) {
	now := m.now()
	claims := CheckoutClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   orderID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		OrderID: orderID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign checkout token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, expiry and that the token was issued for orderID
func (m *CheckoutTokenManager) Verify(tokenString, orderID string) error {
	if tokenString == "" {
		return domain.NewDomainError(domain.ErrorCodeValidationMissingField, "security token is required")
	}

	token, err := jwt.ParseWithClaims(tokenString, &CheckoutClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.key, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.WrapError(domain.ErrorCodeValidationFailed, "security token expired", err)
		}
		return domain.WrapError(domain.ErrorCodeValidationFailed, "invalid security token", err)
	}

	claims, ok := token.Claims.(*CheckoutClaims)
	if !ok || !token.Valid {
		return domain.NewDomainError(domain.ErrorCodeValidationFailed, "invalid security token")
	}
	if claims.OrderID != orderID {
		return domain.NewDomainError(domain.ErrorCodeOrderMismatch, "security token was issued for another order")
	}
	return nil
}
