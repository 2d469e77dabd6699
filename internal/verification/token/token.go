// Package token packages a verification proof into a compact, tamper-evident
// bearer credential. Tokens validate stateless-ly: no storage lookup, only
// the server secret.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
	dErrors "github.com/dragoonbuster/MeatSocial/pkg/domain-errors"
)

const separator = "."

// Codec mints and validates proof bearer tokens. The clock is injected so
// expiry behavior is testable.
type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret), now: time.Now}
}

// NewCodecWithClock builds a codec with a fixed clock source for tests.
func NewCodecWithClock(secret string, now func() time.Time) *Codec {
	return &Codec{secret: []byte(secret), now: now}
}

// Create serializes the token payload subset of the proof and appends an
// HMAC over the encoded payload. The proof signature is deliberately left
// out: a leaked token must not be replayable as a fully signed proof.
func (c *Codec) Create(p models.VerificationProof) (string, error) {
	payload := models.TokenPayload{
		UserID:    p.UserID,
		NodeID:    p.NodeID,
		Timestamp: p.Timestamp,
		ExpiresAt: p.ExpiresAt,
		ProofHash: p.ProofHash,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "encode token payload")
	}
	encoded := base64.RawURLEncoding.EncodeToString(raw)
	return encoded + separator + c.mac(encoded), nil
}

// Validate checks structure, MAC and expiry, in that order, and reconstructs
// a partial proof on success. The returned proof has an empty signature;
// callers must not treat it as equivalent to a stored, signed proof.
func (c *Codec) Validate(token string) (models.VerificationProof, error) {
	parts := strings.Split(token, separator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return models.VerificationProof{}, dErrors.New(dErrors.CodeMalformedToken, "token must be payload.mac")
	}
	encoded, gotMAC := parts[0], parts[1]

	// constant-time comparison; the MAC is the only secret-dependent content
	if !hmac.Equal([]byte(c.mac(encoded)), []byte(gotMAC)) {
		return models.VerificationProof{}, dErrors.New(dErrors.CodeInvalidSignature, "token MAC mismatch")
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return models.VerificationProof{}, dErrors.New(dErrors.CodeMalformedToken, "token payload is not valid base64")
	}
	var payload models.TokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return models.VerificationProof{}, dErrors.New(dErrors.CodeMalformedToken, "token payload is not valid JSON")
	}

	if c.now().After(payload.ExpiresAt) {
		return models.VerificationProof{}, dErrors.New(dErrors.CodeExpiredProof, "token expired")
	}

	return models.VerificationProof{
		UserID:    payload.UserID,
		NodeID:    payload.NodeID,
		Timestamp: payload.Timestamp,
		ExpiresAt: payload.ExpiresAt,
		ProofHash: payload.ProofHash,
	}, nil
}

func (c *Codec) mac(encodedPayload string) string {
	h := hmac.New(sha256.New, c.secret)
	h.Write([]byte(encodedPayload))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
