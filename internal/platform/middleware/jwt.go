package middleware

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// HMACValidator validates HS256 agent tokens issued by the coordination
// backend. Claims: sub = agent UUID, org = issuing organization.
type HMACValidator struct {
	signingKey []byte
}

// NewHMACValidator builds a validator over a shared signing key.
func NewHMACValidator(signingKey string) *HMACValidator {
	return &HMACValidator{signingKey: []byte(signingKey)}
}

type agentClaims struct {
	Org string `json:"org"`
	jwt.RegisteredClaims
}

// ValidateToken parses and verifies the token, returning the agent claims.
func (v *HMACValidator) ValidateToken(tokenString string) (*JWTClaims, error) {
	var claims agentClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token missing subject")
	}
	return &JWTClaims{AgentID: claims.Subject, Org: claims.Org}, nil
}
