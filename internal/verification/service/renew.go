package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dragoonbuster/MeatSocial/internal/audit"
	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
	"github.com/dragoonbuster/MeatSocial/internal/verification/store"
	dErrors "github.com/dragoonbuster/MeatSocial/pkg/domain-errors"
	"github.com/dragoonbuster/MeatSocial/pkg/platform/sentinel"
)

// Renew runs the renewal state machine:
//
//	RenewalRequested -> OldEventInvalidated -> NewProofGenerated -> Persisted
//
// The invalidate-then-insert swap happens inside one transaction guarded by
// a compare-and-swap on the previously active event, so there is never a
// window with zero or two active events for the user. Of two simultaneous
// renewals, exactly one commits; the loser gets a conflict.
func (s *Service) Renew(ctx context.Context, input models.CeremonyInput) (models.VerificationProof, error) {
	current, err := s.store.ActiveEvent(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNoActiveEvent) {
			return models.VerificationProof{}, dErrors.New(dErrors.CodeNotFound, "no active verification to renew")
		}
		return models.VerificationProof{}, dErrors.Wrap(err, dErrors.CodeInternal, "active event lookup failed")
	}

	// renewal is still a ceremony: the node and identity gates apply
	node, err := s.store.GetActiveNode(ctx, input.NodeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrNodeInactive) {
			return models.VerificationProof{}, s.reject(ctx, input, "invalid node")
		}
		return models.VerificationProof{}, dErrors.Wrap(err, dErrors.CodeInternal, "node lookup failed")
	}
	boundUser, err := s.store.UserByDocumentHash(ctx, input.DocumentHash)
	switch {
	case err == nil && boundUser != input.UserID:
		return models.VerificationProof{}, s.reject(ctx, input, "duplicate identity")
	case err != nil && !errors.Is(err, sentinel.ErrNotFound):
		return models.VerificationProof{}, dErrors.Wrap(err, dErrors.CodeInternal, "identity index lookup failed")
	}

	signingKey, err := s.nodes.SigningKey(ctx, node.ID)
	if err != nil {
		return models.VerificationProof{}, err
	}
	p, err := s.engine.Generate(input, signingKey)
	if err != nil {
		return models.VerificationProof{}, err
	}

	event := models.VerificationEvent{
		ID:        uuid.New(),
		UserID:    input.UserID,
		NodeID:    input.NodeID,
		Proof:     p,
		IsValid:   true,
		CreatedAt: p.Timestamp,
	}

	err = s.store.InTx(ctx, input.UserID, func(ctx context.Context, tx store.Tx) error {
		if err := tx.InvalidateActiveEvent(ctx, input.UserID, current.ID); err != nil {
			return err
		}
		if err := tx.BindDocumentHash(ctx, input.DocumentHash, input.UserID); err != nil {
			return err
		}
		if err := tx.InsertVerificationEvent(ctx, event); err != nil {
			return err
		}
		if err := tx.IncrementNodeCounter(ctx, input.NodeID); err != nil {
			return err
		}
		return tx.InsertAuditEntry(ctx, audit.Entry{
			ID:         uuid.New(),
			Timestamp:  p.Timestamp,
			UserID:     input.UserID,
			NodeID:     input.NodeID,
			OperatorID: input.OperatorID,
			Action:     audit.ActionProofRenewed,
			ProofHash:  p.ProofHash,
		})
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return models.VerificationProof{}, dErrors.Wrap(err, dErrors.CodeConflict, "concurrent renewal in progress")
		}
		if errors.Is(err, sentinel.ErrNoActiveEvent) {
			return models.VerificationProof{}, dErrors.Wrap(err, dErrors.CodeConflict, "verification was revoked during renewal")
		}
		return models.VerificationProof{}, dErrors.Wrap(err, dErrors.CodeTransactionAborted, "renewal transaction failed")
	}

	s.metrics.RenewalsCompleted.Inc()
	return p, nil
}

// Revoke invalidates the user's active verification without a replacement.
// The event row stays for the audit trail.
func (s *Service) Revoke(ctx context.Context, userID, reason string) error {
	current, err := s.store.ActiveEvent(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNoActiveEvent) {
			return dErrors.New(dErrors.CodeNotFound, "no active verification to revoke")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "active event lookup failed")
	}

	err = s.store.InTx(ctx, userID, func(ctx context.Context, tx store.Tx) error {
		if err := tx.InvalidateActiveEvent(ctx, userID, current.ID); err != nil {
			return err
		}
		return tx.InsertAuditEntry(ctx, audit.Entry{
			ID:        uuid.New(),
			Timestamp: time.Now().UTC(),
			UserID:    userID,
			NodeID:    current.NodeID,
			Action:    audit.ActionProofRevoked,
			Reason:    reason,
			ProofHash: current.Proof.ProofHash,
		})
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeTransactionAborted, "revocation transaction failed")
	}
	return nil
}
