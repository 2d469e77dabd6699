// Package noderegistry owns the lifecycle of verification nodes: onboarding,
// key custody and retirement. Nodes are deactivated when retired, never
// deleted, and a node's public key never changes after issuance.
package noderegistry

import (
	"context"

	"github.com/dragoonbuster/MeatSocial/internal/verification/keys"
	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
)

// Record pairs a node with its encrypted signing key. The private key is
// sealed under the service key passphrase before it ever reaches a store.
type Record struct {
	Node         models.VerificationNode
	EncryptedKey keys.EncryptedKey
}

// Store is the persistence port for the node registry.
type Store interface {
	Save(ctx context.Context, rec Record) error
	FindByID(ctx context.Context, id string) (Record, error)
	Deactivate(ctx context.Context, id string) error
	IncrementCounter(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.VerificationNode, error)
}
