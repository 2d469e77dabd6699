// Package audit captures the append-only trail of verification activity.
// Entries are emitted from domain logic and persisted alongside the events
// they describe; they are never updated or deleted.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action names the audited operation.
type Action string

const (
	ActionCeremonyCompleted Action = "ceremony_completed"
	ActionCeremonyRejected  Action = "ceremony_rejected"
	ActionProofRenewed      Action = "proof_renewed"
	ActionProofRevoked      Action = "proof_revoked"
	ActionNodeOnboarded     Action = "node_onboarded"
	ActionNodeDeactivated   Action = "node_deactivated"
)

// Entry is a single audit record. Reason carries the internal rejection
// detail that user-facing responses deliberately omit.
type Entry struct {
	ID         uuid.UUID
	Timestamp  time.Time
	UserID     string
	NodeID     string
	OperatorID string
	Action     Action
	Reason     string
	ProofHash  string
}
