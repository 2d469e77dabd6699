// Package session mints short-lived JWT access tokens for users holding a
// still-valid verification proof. The JWT is an application session
// credential; the proof itself stays server-side.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
	dErrors "github.com/dragoonbuster/MeatSocial/pkg/domain-errors"
)

// Claims carries the verification context alongside the registered claims.
// ProofHash ties the session back to the ceremony that authorized it.
type Claims struct {
	UserID    string `json:"user_id"`
	NodeID    string `json:"node_id"`
	ProofHash string `json:"proof_hash"`
	jwt.RegisteredClaims
}

// JWTService signs and validates session tokens with a shared HS256 key.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey, issuer, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// IssueFromProof mints a session token for the holder of a valid proof. The
// token never outlives the proof: expiresIn is trimmed to the proof's
// remaining validity.
func (s *JWTService) IssueFromProof(p models.VerificationProof, expiresIn time.Duration) (string, error) {
	now := time.Now()
	if p.Expired(now) {
		return "", dErrors.New(dErrors.CodeExpiredProof, "verification proof has expired")
	}
	if remaining := p.ExpiresAt.Sub(now); expiresIn > remaining {
		expiresIn = remaining
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    p.UserID,
		NodeID:    p.NodeID,
		ProofHash: p.ProofHash,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken parses and verifies a session token.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "session has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session claims")
	}
	return claims, nil
}

// ExtractUserID is a convenience for middleware that only needs the subject.
func (s *JWTService) ExtractUserID(tokenString string) (string, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}
