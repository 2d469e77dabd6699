// Package service sequences verification ceremonies end to end: gate checks,
// proof generation and the transactional persistence of the verification
// event, node counter and audit entry.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dragoonbuster/MeatSocial/internal/audit"
	"github.com/dragoonbuster/MeatSocial/internal/platform/metrics"
	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
	"github.com/dragoonbuster/MeatSocial/internal/verification/proof"
	"github.com/dragoonbuster/MeatSocial/internal/verification/store"
	dErrors "github.com/dragoonbuster/MeatSocial/pkg/domain-errors"
	"github.com/dragoonbuster/MeatSocial/pkg/platform/sentinel"
)

// NodeDirectory resolves node key material. The node registry service
// implements it; tests substitute fakes.
type NodeDirectory interface {
	SigningKey(ctx context.Context, nodeID string) (string, error)
	Node(ctx context.Context, nodeID string) (models.VerificationNode, error)
}

// Service is the ceremony orchestrator. All collaborators are injected;
// there is no process-global state.
type Service struct {
	store    store.Store
	nodes    NodeDirectory
	engine   *proof.Engine
	auditlog *audit.Publisher
	metrics  *metrics.Metrics
	log      *log.Logger
}

func NewService(st store.Store, nodes NodeDirectory, engine *proof.Engine,
	auditlog *audit.Publisher, m *metrics.Metrics, logger *log.Logger) *Service {
	return &Service{
		store:    st,
		nodes:    nodes,
		engine:   engine,
		auditlog: auditlog,
		metrics:  m,
		log:      logger,
	}
}

// PerformCeremony runs a first-time verification:
//
//	Received -> NodeValidated -> DuplicateChecked -> ProofGenerated -> Persisted -> Completed
//
// Any gate failure exits early with a typed rejection. The persistence phase
// is a single transaction: the verification event, the identity binding, the
// node counter bump and the audit entry commit together or not at all.
//
// The ceremony input is consumed here; its hashes feed the proof digest and
// nothing else. Raw ceremony fields are never persisted.
func (s *Service) PerformCeremony(ctx context.Context, input models.CeremonyInput) (models.VerificationProof, error) {
	// Gate 1: node must exist and be active.
	node, err := s.store.GetActiveNode(ctx, input.NodeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrNodeInactive) {
			return models.VerificationProof{}, s.reject(ctx, input, "invalid node")
		}
		return models.VerificationProof{}, dErrors.Wrap(err, dErrors.CodeInternal, "node lookup failed")
	}

	// Gate 2: one physical identity, one account.
	boundUser, err := s.store.UserByDocumentHash(ctx, input.DocumentHash)
	switch {
	case err == nil && boundUser != input.UserID:
		return models.VerificationProof{}, s.reject(ctx, input, "duplicate identity")
	case err != nil && !errors.Is(err, sentinel.ErrNotFound):
		return models.VerificationProof{}, dErrors.Wrap(err, dErrors.CodeInternal, "identity index lookup failed")
	}
	if _, err := s.store.ActiveEvent(ctx, input.UserID); err == nil {
		// already verified; renewal is the right path
		return models.VerificationProof{}, s.reject(ctx, input, "user already verified")
	} else if !errors.Is(err, sentinel.ErrNoActiveEvent) {
		return models.VerificationProof{}, dErrors.Wrap(err, dErrors.CodeInternal, "active event lookup failed")
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
			Action:     audit.ActionCeremonyCompleted,
			ProofHash:  p.ProofHash,
		})
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// lost a race on the identity binding or the active event
			return models.VerificationProof{}, s.reject(ctx, input, "duplicate identity")
		}
		s.metrics.CeremoniesRejected.WithLabelValues(string(dErrors.CodeTransactionAborted)).Inc()
		return models.VerificationProof{}, dErrors.Wrap(err, dErrors.CodeTransactionAborted, "ceremony transaction failed")
	}

	s.metrics.CeremoniesCompleted.Inc()
	return p, nil
}

// reject logs the specific internal reason, audits it best-effort and
// returns the typed rejection. User-facing callers translate every rejection
// into the same generic message.
func (s *Service) reject(ctx context.Context, input models.CeremonyInput, reason string) error {
	s.log.Printf("ceremony rejected for user %s at node %s: %s", input.UserID, input.NodeID, reason)
	if err := s.auditlog.Emit(ctx, audit.Entry{
		UserID:     input.UserID,
		NodeID:     input.NodeID,
		OperatorID: input.OperatorID,
		Action:     audit.ActionCeremonyRejected,
		Reason:     reason,
	}); err != nil {
		s.log.Printf("audit emit failed for rejected ceremony: %v", err)
	}

	var code dErrors.Code
	switch reason {
	case "invalid node":
		code = dErrors.CodeInvalidNode
	case "duplicate identity":
		code = dErrors.CodeDuplicateIdentity
	default:
		code = dErrors.CodeConflict
	}
	s.metrics.CeremoniesRejected.WithLabelValues(string(code)).Inc()
	return dErrors.New(code, reason)
}

// ValidateUser checks the user's current active proof against the issuing
// node's public key. Node deactivation does not invalidate existing proofs;
// the node's key stays resolvable after retirement.
func (s *Service) ValidateUser(ctx context.Context, userID string) (proof.Result, models.VerificationProof, error) {
	event, err := s.store.ActiveEvent(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNoActiveEvent) {
			return proof.Result{}, models.VerificationProof{}, dErrors.New(dErrors.CodeNotFound, "no active verification")
		}
		return proof.Result{}, models.VerificationProof{}, dErrors.Wrap(err, dErrors.CodeInternal, "active event lookup failed")
	}
	node, err := s.nodes.Node(ctx, event.NodeID)
	if err != nil {
		return proof.Result{}, models.VerificationProof{}, err
	}
	res := s.engine.Validate(event.Proof, node.PublicKey)
	if !res.Valid {
		s.log.Printf("proof validation failed for user %s (proof age %dd): %s",
			userID, proof.DaysSince(event.Proof, time.Now().UTC()), res.Reason)
	}
	return res, event.Proof, nil
}

// ActiveProof returns the user's current proof without validating it.
func (s *Service) ActiveProof(ctx context.Context, userID string) (models.VerificationProof, error) {
	event, err := s.store.ActiveEvent(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNoActiveEvent) {
			return models.VerificationProof{}, dErrors.New(dErrors.CodeNotFound, "no active verification")
		}
		return models.VerificationProof{}, dErrors.Wrap(err, dErrors.CodeInternal, "active event lookup failed")
	}
	return event.Proof, nil
}
