package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
	dErrors "github.com/dragoonbuster/MeatSocial/pkg/domain-errors"
)

var jwtService = NewJWTService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)

func validProof() models.VerificationProof {
	now := time.Now()
	return models.VerificationProof{
		UserID:    "user-1",
		NodeID:    "node-1",
		Timestamp: now,
		ExpiresAt: now.Add(models.ValidityWindow),
		ProofHash: "abc123",
	}
}

func Test_IssueFromProof(t *testing.T) {
	token, err := jwtService.IssueFromProof(validProof(), time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "node-1", claims.NodeID)
	assert.Equal(t, "abc123", claims.ProofHash)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_IssueFromProof_ExpiredProof(t *testing.T) {
	p := validProof()
	p.Timestamp = time.Now().Add(-models.ValidityWindow - time.Hour)
	p.ExpiresAt = time.Now().Add(-time.Hour)

	_, err := jwtService.IssueFromProof(p, time.Hour)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeExpiredProof, "verification proof has expired"))
}

func Test_IssueFromProof_SessionNeverOutlivesProof(t *testing.T) {
	p := validProof()
	p.ExpiresAt = time.Now().Add(30 * time.Minute)

	token, err := jwtService.IssueFromProof(p, time.Hour)
	require.NoError(t, err)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.WithinDuration(t, p.ExpiresAt, claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid session token"))
}

func Test_ValidateToken_ExpiredSession(t *testing.T) {
	p := validProof()
	token, err := jwtService.IssueFromProof(p, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "session has expired"))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewJWTService("different-key", "test-issuer", "test-audience")
	token, err := other.IssueFromProof(validProof(), time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid session token"))
}

func Test_ExtractUserID(t *testing.T) {
	token, err := jwtService.IssueFromProof(validProof(), time.Hour)
	require.NoError(t, err)

	userID, err := jwtService.ExtractUserID(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}
