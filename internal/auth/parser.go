package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"trip-integrity-service/internal/model"
)

type Claims struct {
	SessionID uuid.UUID      `json:"sid"`
	UserID    uuid.UUID      `json:"sub"`
	OrgID     uuid.UUID      `json:"org_id"`
	Role      model.UserRole `json:"role"`
	DriverID  *uuid.UUID     `json:"driver_id,omitempty"`
	jwt.RegisteredClaims
}

func (c Claims) Principal() model.Principal {
	return model.Principal{
		UserID:   c.UserID,
		OrgID:    c.OrgID,
		Role:     c.Role,
		DriverID: c.DriverID,
	}
}

type Parser struct {
	secret []byte
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret)}
}

func (p *Parser) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.OrgID == uuid.Nil {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// Sign issues an HS256 token for principal. Used by tooling and tests; the auth service owns real issuance.
func (p *Parser) Sign(principal model.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		SessionID: uuid.New(),
		UserID:    principal.UserID,
		OrgID:     principal.OrgID,
		Role:      principal.Role,
		DriverID:  principal.DriverID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}
