// Package identity verifies bearer tokens issued by the external identity
// service. Token issuance, registration and credential storage are not this
// service's concern; it only resolves a token to {subject, role}.
package identity

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"volunteerhub/internal/platform/middleware"
	"volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
)

// Claims are the JWT claims the identity service puts in access tokens.
type Claims struct {
	SubjectID string `json:"subject_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 access tokens against the shared signing key.
type Verifier struct {
	signingKey []byte
}

// NewVerifier constructs a Verifier for the given signing key.
func NewVerifier(signingKey string) *Verifier {
	return &Verifier{signingKey: []byte(signingKey)}
}

// Verify parses and validates a token, returning the resolved identity.
func (v *Verifier) Verify(tokenString string) (*middleware.Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	subject, err := uuid.Parse(claims.SubjectID)
	if err != nil || subject == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	role := domain.Role(claims.Role)
	if !role.Valid() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token role")
	}

	return &middleware.Identity{SubjectID: subject, Role: role}, nil
}
