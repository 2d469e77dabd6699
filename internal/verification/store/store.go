// Package store persists verification events, the duplicate-identity index
// and the per-user "exactly one active event" invariant. Stores are
// interface-driven so the orchestrator can be tested against the in-memory
// implementation.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/dragoonbuster/MeatSocial/internal/audit"
	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
)

// Store is the persistence port the ceremony orchestrator requires.
//
// InTx runs fn inside a single transactional scope serialized per user:
// concurrent ceremonies for different users proceed independently, but two
// transactions for the same user never interleave. Everything fn writes
// commits together or not at all.
type Store interface {
	// GetActiveNode returns the node if it exists and is active.
	// sentinel.ErrNotFound for unknown ids, sentinel.ErrNodeInactive for
	// retired nodes.
	GetActiveNode(ctx context.Context, nodeID string) (models.VerificationNode, error)

	// ActiveEvent returns the user's single active verification event, or
	// sentinel.ErrNoActiveEvent.
	ActiveEvent(ctx context.Context, userID string) (models.VerificationEvent, error)

	// UserByDocumentHash resolves the duplicate-identity index, returning
	// the user currently bound to the document hash or sentinel.ErrNotFound.
	UserByDocumentHash(ctx context.Context, documentHash string) (string, error)

	InTx(ctx context.Context, userID string, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the write surface available inside a ceremony transaction.
type Tx interface {
	// InsertVerificationEvent appends the event. Inserting a valid event
	// for a user who already has one fails with sentinel.ErrConflict.
	InsertVerificationEvent(ctx context.Context, event models.VerificationEvent) error

	// InvalidateActiveEvent flips is_valid on the user's active event.
	// expected guards against lost renewals: if the active event is not the
	// one the caller read, the call fails with sentinel.ErrConflict; if no
	// active event exists, sentinel.ErrNoActiveEvent.
	InvalidateActiveEvent(ctx context.Context, userID string, expected uuid.UUID) error

	// BindDocumentHash records documentHash -> userID in the identity
	// index. A hash already bound to another user fails with
	// sentinel.ErrConflict.
	BindDocumentHash(ctx context.Context, documentHash, userID string) error

	IncrementNodeCounter(ctx context.Context, nodeID string) error

	InsertAuditEntry(ctx context.Context, entry audit.Entry) error
}
