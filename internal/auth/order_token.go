package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const orderLinkAudience = "order-link"

var ErrOrderTokenMismatch = errors.New("token was issued for another order")

// IssueOrderToken signs a customer token scoped to one order. The POST /orders
// response carries it so the customer can reopen the WhatsApp link later.
func IssueOrderToken(secret []byte, orderID string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty signing secret")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   orderID,
		Audience:  jwt.ClaimStrings{orderLinkAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign order token: %w", err)
	}
	return signed, nil
}

// VerifyOrderToken checks signature, expiry and that the token names orderID.
func VerifyOrderToken(secret []byte, rawToken, orderID string) error {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(rawToken, &claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(orderLinkAudience),
	)
	if err != nil {
		return fmt.Errorf("invalid order token: %w", err)
	}
	if claims.Subject != orderID {
		return ErrOrderTokenMismatch
	}
	return nil
}
