package noderegistry

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dragoonbuster/MeatSocial/internal/audit"
	"github.com/dragoonbuster/MeatSocial/internal/verification/keys"
	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
	dErrors "github.com/dragoonbuster/MeatSocial/pkg/domain-errors"
	"github.com/dragoonbuster/MeatSocial/pkg/platform/sentinel"
)

// Service handles node onboarding and retirement. It holds the key
// passphrase used to seal node private keys at rest; the plaintext key only
// exists transiently during onboarding and ceremony signing.
type Service struct {
	store         Store
	auditlog      *audit.Publisher
	keyPassphrase string
	log           *log.Logger
}

func NewService(store Store, auditlog *audit.Publisher, keyPassphrase string, logger *log.Logger) *Service {
	return &Service{store: store, auditlog: auditlog, keyPassphrase: keyPassphrase, log: logger}
}

// OnboardRequest carries the operator-supplied facts about a new location.
type OnboardRequest struct {
	Name            string
	Latitude        float64
	Longitude       float64
	OperatorContact string
}

// Onboard issues a fresh signing keypair for the location, seals the private
// key under the service passphrase and registers the node as active.
func (s *Service) Onboard(ctx context.Context, req OnboardRequest) (models.VerificationNode, error) {
	if req.Name == "" {
		return models.VerificationNode{}, dErrors.New(dErrors.CodeInvalidInput, "node name is required")
	}

	pub, priv, err := keys.GenerateSigningKeyPair()
	if err != nil {
		return models.VerificationNode{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate node keypair")
	}
	enc, err := keys.EncryptPrivateKey(priv, s.keyPassphrase)
	if err != nil {
		return models.VerificationNode{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not seal node key")
	}

	node := models.VerificationNode{
		ID:              uuid.NewString(),
		Name:            req.Name,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		PublicKey:       pub,
		OperatorContact: req.OperatorContact,
		Active:          true,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.Save(ctx, Record{Node: node, EncryptedKey: enc}); err != nil {
		return models.VerificationNode{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not register node")
	}

	if err := s.auditlog.Emit(ctx, audit.Entry{
		NodeID: node.ID,
		Action: audit.ActionNodeOnboarded,
	}); err != nil {
		s.log.Printf("audit emit failed for node onboarding %s: %v", node.ID, err)
	}
	return node, nil
}

// Deactivate retires a node. The record stays; only the active flag flips,
// so old proofs remain verifiable against the node's public key.
func (s *Service) Deactivate(ctx context.Context, nodeID string) error {
	if err := s.store.Deactivate(ctx, nodeID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "unknown node")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not deactivate node")
	}
	if err := s.auditlog.Emit(ctx, audit.Entry{
		NodeID: nodeID,
		Action: audit.ActionNodeDeactivated,
	}); err != nil {
		s.log.Printf("audit emit failed for node deactivation %s: %v", nodeID, err)
	}
	return nil
}

// Node returns the node record for display; the encrypted key never leaves
// this package.
func (s *Service) Node(ctx context.Context, nodeID string) (models.VerificationNode, error) {
	rec, err := s.store.FindByID(ctx, nodeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.VerificationNode{}, dErrors.New(dErrors.CodeNotFound, "unknown node")
		}
		return models.VerificationNode{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not load node")
	}
	return rec.Node, nil
}

// List returns every registered node, active or not.
func (s *Service) List(ctx context.Context) ([]models.VerificationNode, error) {
	return s.store.List(ctx)
}

// SigningKey unseals the node's private key for ceremony signing. The
// verification orchestrator is the only intended caller.
func (s *Service) SigningKey(ctx context.Context, nodeID string) (string, error) {
	rec, err := s.store.FindByID(ctx, nodeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeInvalidNode, "unknown node")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not load node key")
	}
	return keys.DecryptPrivateKey(rec.EncryptedKey, s.keyPassphrase)
}
