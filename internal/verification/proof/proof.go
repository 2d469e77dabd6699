// Package proof builds and verifies the cryptographic claims produced by a
// verification ceremony. Everything here is a pure function over immutable
// inputs; persistence and transport live elsewhere.
package proof

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dragoonbuster/MeatSocial/internal/verification/keys"
	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
	dErrors "github.com/dragoonbuster/MeatSocial/pkg/domain-errors"
)

// Reason classifies why a proof failed validation. Internal only; the API
// layer collapses all of these into a generic "verification invalid" message.
type Reason string

const (
	ReasonExpired          Reason = "expired"
	ReasonInvalidSignature Reason = "invalid signature"
	ReasonMalformed        Reason = "malformed"
)

// Result is the outcome of proof validation. Validation failures are data,
// not errors: callers decide user-facing messaging.
type Result struct {
	Valid  bool
	Reason Reason
}

// Engine generates and validates verification proofs. The clock is injected
// so expiry behavior is testable; production uses time.Now.
type Engine struct {
	now func() time.Time
}

func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// NewEngineWithClock builds an engine with a fixed clock source for tests.
func NewEngineWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// Generate builds the canonical payload for the ceremony, digests it, signs
// the digest with the node's private key and returns the assembled proof.
//
// The ceremony's biometric hash participates in the digest but is not part of
// the returned proof; callers must discard the ceremony input immediately
// after this call and never persist its raw fields.
func (e *Engine) Generate(ceremony models.CeremonyInput, nodePrivateKey string) (models.VerificationProof, error) {
	if ceremony.UserID == "" || ceremony.NodeID == "" {
		return models.VerificationProof{}, dErrors.New(dErrors.CodeInvalidInput, "ceremony requires user and node ids")
	}
	if ceremony.DocumentHash == "" || ceremony.BiometricHash == "" {
		return models.VerificationProof{}, dErrors.New(dErrors.CodeInvalidInput, "ceremony requires document and biometric hashes")
	}

	priv, err := keys.DecodePrivateKey(nodePrivateKey)
	if err != nil {
		return models.VerificationProof{}, err
	}

	now := e.now().UTC()
	expiresAt := now.Add(models.ValidityWindow)

	digest := canonicalDigest(map[string]string{
		"version":       models.ProofVersion,
		"userId":        ceremony.UserID,
		"nodeId":        ceremony.NodeID,
		"timestamp":     now.Format(time.RFC3339Nano),
		"expiresAt":     expiresAt.Format(time.RFC3339Nano),
		"documentHash":  ceremony.DocumentHash,
		"biometricHash": ceremony.BiometricHash,
		"operatorId":    ceremony.OperatorID,
	})

	signature := ed25519.Sign(priv, digest)

	return models.VerificationProof{
		UserID:    ceremony.UserID,
		NodeID:    ceremony.NodeID,
		Timestamp: now,
		ExpiresAt: expiresAt,
		ProofHash: hex.EncodeToString(digest),
		Signature: base64.StdEncoding.EncodeToString(signature),
		Metadata: map[string]string{
			"version":    models.ProofVersion,
			"operatorId": ceremony.OperatorID,
		},
	}, nil
}

// Validate checks a proof against the issuing node's public key. A proof is
// valid only if the embedded expiry has not passed, the proof is no older
// than the validity window, and the signature over the embedded digest
// verifies. The age check is independent of the stored expiry: expiresAt is
// part of the signed payload and so only trustworthy once the signature has
// verified, which makes the age bound the backstop against a forged
// extension.
func (e *Engine) Validate(p models.VerificationProof, nodePublicKey string) Result {
	now := e.now()
	if p.Expired(now) {
		return Result{Reason: ReasonExpired}
	}
	if now.Sub(p.Timestamp) > models.ValidityWindow {
		return Result{Reason: ReasonExpired}
	}

	pub, err := keys.DecodePublicKey(nodePublicKey)
	if err != nil {
		return Result{Reason: ReasonMalformed}
	}
	digest, err := hex.DecodeString(p.ProofHash)
	if err != nil || len(digest) != sha256.Size {
		return Result{Reason: ReasonMalformed}
	}
	sig, err := base64.StdEncoding.DecodeString(p.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return Result{Reason: ReasonInvalidSignature}
	}
	if !ed25519.Verify(pub, digest, sig) {
		return Result{Reason: ReasonInvalidSignature}
	}
	return Result{Valid: true}
}

// canonicalDigest serializes fields in sorted key order and hashes the
// result. The ordering is part of the wire contract: the digest must be
// reproducible by any party holding the same fields.
func canonicalDigest(fields map[string]string) []byte {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, fmt.Sprintf("%s=%s", name, fields[name]))
	}
	sum := sha256.Sum256([]byte(strings.Join(pairs, "|")))
	return sum[:]
}
