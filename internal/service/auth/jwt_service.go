// Package auth verifies the bearer tokens that identify learners.
//
// Tokens are HS256-signed JWTs carrying the learner id in the "uid" claim
// and the token type in "type". Issuing tokens for real users belongs to
// the identity provider; GenerateToken exists for operators and tests.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccessTokenType is the only token type accepted by ValidateToken.
const AccessTokenType = "access"

// JWTService defines operations for JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed access token for the learner.
	GenerateToken(ctx context.Context, learnerID uuid.UUID) (string, error)

	// ValidateToken validates the provided access token string and extracts the claims.
	// Returns ErrExpiredToken, ErrTokenNotYetValid, ErrWrongTokenType or
	// ErrInvalidToken when validation fails.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the verified content of a token.
type Claims struct {
	// LearnerID is the unique identifier of the learner the token was issued for.
	LearnerID uuid.UUID `json:"uid,omitempty"`

	// TokenType indicates the purpose of the token.
	TokenType string `json:"type,omitempty"`

	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
