// Package models holds the data types of the human verification proof system.
// CeremonyInput is the only type here that must never reach durable storage
// in raw form; everything else is persisted or derived.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ValidityWindow is the fixed duration a proof remains acceptable after
// issuance. ExpiresAt is always Timestamp + ValidityWindow at creation.
const ValidityWindow = 90 * 24 * time.Hour

// ProofVersion tags the canonical payload so the digest stays reproducible
// across protocol revisions.
const ProofVersion = "1"

// VerificationNode is a physical verification location with its own signing
// keypair. The public key never changes after issuance; rotation requires a
// new node id. Nodes are deactivated when retired, never deleted.
type VerificationNode struct {
	ID              string
	Name            string
	Latitude        float64
	Longitude       float64
	PublicKey       string // base64-encoded ed25519 public key
	OperatorContact string
	Active          bool
	Verifications   int64 // lifetime ceremony counter
	CreatedAt       time.Time
}

// CeremonyInput is the ephemeral input of a single verification ceremony.
// The document and biometric hashes arrive already computed upstream; the
// raw material they were derived from never enters this system. Instances
// are consumed by the proof engine and discarded within the same operation.
type CeremonyInput struct {
	UserID        string
	NodeID        string
	OperatorID    string
	DocumentHash  string // hex-encoded SHA-256 of the identity document
	BiometricHash string // hex-encoded SHA-256 of the biometric capture
	DocumentType  string
	Timestamp     time.Time
}

// VerificationProof is the durable cryptographic claim binding a user to a
// completed ceremony. ProofHash is a digest over the canonical payload;
// Signature is a detached ed25519 signature over that digest by the node key.
type VerificationProof struct {
	UserID    string            `json:"userId"`
	NodeID    string            `json:"nodeId"`
	Timestamp time.Time         `json:"timestamp"`
	ExpiresAt time.Time         `json:"expiresAt"`
	ProofHash string            `json:"proofHash"`          // hex-encoded SHA-256, 64 chars
	Signature string            `json:"verifierSignature"`  // base64-encoded
	Metadata  map[string]string `json:"metadata,omitempty"` // open map, protocol metadata only
}

// Expired reports whether the proof's embedded expiry has passed at now.
func (p VerificationProof) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// VerificationEvent pairs a proof with its storage-side validity flag.
// At most one event per user has IsValid=true; renewal flips the old one
// and inserts the new one atomically. Events are never physically deleted.
type VerificationEvent struct {
	ID        uuid.UUID
	UserID    string
	NodeID    string
	Proof     VerificationProof
	IsValid   bool
	CreatedAt time.Time
}

// TokenPayload is the subset of a proof embedded in a bearer token. The
// signature is deliberately excluded so a leaked token cannot stand in for
// a fully signed proof.
type TokenPayload struct {
	UserID    string    `json:"userId"`
	NodeID    string    `json:"nodeId"`
	Timestamp time.Time `json:"timestamp"`
	ExpiresAt time.Time `json:"expiresAt"`
	ProofHash string    `json:"proofHash"`
}

// SocialStats are the follower-graph inputs to trust scoring.
type SocialStats struct {
	Followers int
	Following int
}

// TrustScore is a derived, recomputable value. It is never authoritative;
// caches must treat it as reconstructible from current inputs.
type TrustScore struct {
	UserID       string    `json:"userId"`
	Verification int       `json:"verification"`
	Social       int       `json:"social"`
	Behavior     int       `json:"behavior"`
	Final        int       `json:"final"` // clamped to [0,100]
	ComputedAt   time.Time `json:"computedAt"`
}
