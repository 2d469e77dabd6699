package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dragoonbuster/MeatSocial/internal/audit"
	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
	"github.com/dragoonbuster/MeatSocial/pkg/platform/sentinel"
	txcontext "github.com/dragoonbuster/MeatSocial/pkg/platform/tx"
)

// PostgresStore persists verification state in PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE verification_events (
//	    id          UUID PRIMARY KEY,
//	    user_id     TEXT NOT NULL,
//	    node_id     TEXT NOT NULL,
//	    timestamp   TIMESTAMPTZ NOT NULL,
//	    expires_at  TIMESTAMPTZ NOT NULL,
//	    proof_hash  TEXT NOT NULL,
//	    signature   TEXT NOT NULL,
//	    metadata    JSONB NOT NULL DEFAULT '{}',
//	    is_valid    BOOLEAN NOT NULL,
//	    created_at  TIMESTAMPTZ NOT NULL
//	);
//	-- exactly one active event per user, enforced by the database
//	CREATE UNIQUE INDEX one_active_event_per_user
//	    ON verification_events (user_id) WHERE is_valid;
//
//	CREATE TABLE identity_index (
//	    document_hash TEXT PRIMARY KEY,
//	    user_id       TEXT NOT NULL
//	);
//
// The audit_entries table is owned by the audit package; its store joins
// ceremony transactions through the context.
type PostgresStore struct {
	db     *sql.DB
	audits *audit.PostgresStore
}

func NewPostgres(db *sql.DB, audits *audit.PostgresStore) *PostgresStore {
	return &PostgresStore{db: db, audits: audits}
}

func (s *PostgresStore) GetActiveNode(ctx context.Context, nodeID string) (models.VerificationNode, error) {
	const q = `
		SELECT id, name, latitude, longitude, public_key, operator_contact,
		       active, verifications, created_at
		FROM verification_nodes WHERE id = $1`
	var n models.VerificationNode
	err := s.db.QueryRowContext(ctx, q, nodeID).Scan(
		&n.ID, &n.Name, &n.Latitude, &n.Longitude, &n.PublicKey,
		&n.OperatorContact, &n.Active, &n.Verifications, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.VerificationNode{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.VerificationNode{}, fmt.Errorf("get node: %w", err)
	}
	if !n.Active {
		return models.VerificationNode{}, sentinel.ErrNodeInactive
	}
	return n, nil
}

func (s *PostgresStore) ActiveEvent(ctx context.Context, userID string) (models.VerificationEvent, error) {
	return scanEvent(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, node_id, timestamp, expires_at, proof_hash, signature, metadata, is_valid, created_at
		FROM verification_events WHERE user_id = $1 AND is_valid`, userID))
}

func (s *PostgresStore) UserByDocumentHash(ctx context.Context, documentHash string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM identity_index WHERE document_hash = $1`, documentHash).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup identity index: %w", err)
	}
	return userID, nil
}

// InTx opens a transaction, takes a per-user advisory lock so renewals on
// the same user serialize, and stashes the transaction in the context so the
// audit store's writes join it.
func (s *PostgresStore) InTx(ctx context.Context, userID string, fn func(ctx context.Context, tx Tx) error) error {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ceremony tx: %w", err)
	}

	// released automatically at commit/rollback
	if _, err := dbtx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		_ = dbtx.Rollback()
		return fmt.Errorf("acquire user lock: %w", err)
	}

	txCtx := txcontext.WithTx(ctx, dbtx)
	if err := fn(txCtx, &pgTx{tx: dbtx, audits: s.audits}); err != nil {
		_ = dbtx.Rollback()
		return err
	}
	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit ceremony tx: %w", err)
	}
	return nil
}

type pgTx struct {
	tx     *sql.Tx
	audits *audit.PostgresStore
}

func (t *pgTx) InsertVerificationEvent(ctx context.Context, event models.VerificationEvent) error {
	metadata, err := marshalMetadata(event.Proof.Metadata)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO verification_events
			(id, user_id, node_id, timestamp, expires_at, proof_hash, signature, metadata, is_valid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = t.tx.ExecContext(ctx, q,
		event.ID, event.UserID, event.NodeID,
		event.Proof.Timestamp, event.Proof.ExpiresAt,
		event.Proof.ProofHash, event.Proof.Signature, metadata,
		event.IsValid, event.CreatedAt)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert verification event: %w", err)
	}
	return nil
}

func (t *pgTx) InvalidateActiveEvent(ctx context.Context, userID string, expected uuid.UUID) error {
	var currentID uuid.UUID
	err := t.tx.QueryRowContext(ctx, `
		SELECT id FROM verification_events
		WHERE user_id = $1 AND is_valid FOR UPDATE`, userID).Scan(&currentID)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNoActiveEvent
	}
	if err != nil {
		return fmt.Errorf("lock active event: %w", err)
	}
	if currentID != expected {
		return sentinel.ErrConflict
	}
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE verification_events SET is_valid = FALSE WHERE id = $1`, currentID); err != nil {
		return fmt.Errorf("invalidate active event: %w", err)
	}
	return nil
}

func (t *pgTx) BindDocumentHash(ctx context.Context, documentHash, userID string) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO identity_index (document_hash, user_id) VALUES ($1, $2)
		ON CONFLICT (document_hash) DO NOTHING`,
		documentHash, userID)
	if err != nil {
		return fmt.Errorf("bind document hash: %w", err)
	}
	var bound string
	if err := t.tx.QueryRowContext(ctx,
		`SELECT user_id FROM identity_index WHERE document_hash = $1`, documentHash).Scan(&bound); err != nil {
		return fmt.Errorf("confirm document hash binding: %w", err)
	}
	if bound != userID {
		return sentinel.ErrConflict
	}
	return nil
}

func (t *pgTx) IncrementNodeCounter(ctx context.Context, nodeID string) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE verification_nodes SET verifications = verifications + 1 WHERE id = $1`, nodeID)
	if err != nil {
		return fmt.Errorf("increment node counter: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (t *pgTx) InsertAuditEntry(ctx context.Context, entry audit.Entry) error {
	// the tx already lives in ctx, so the audit store joins it
	return t.audits.Append(ctx, entry)
}

func scanEvent(row *sql.Row) (models.VerificationEvent, error) {
	var ev models.VerificationEvent
	var metadata []byte
	err := row.Scan(&ev.ID, &ev.UserID, &ev.NodeID,
		&ev.Proof.Timestamp, &ev.Proof.ExpiresAt,
		&ev.Proof.ProofHash, &ev.Proof.Signature, &metadata,
		&ev.IsValid, &ev.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.VerificationEvent{}, sentinel.ErrNoActiveEvent
	}
	if err != nil {
		return models.VerificationEvent{}, fmt.Errorf("scan verification event: %w", err)
	}
	ev.Proof.UserID = ev.UserID
	ev.Proof.NodeID = ev.NodeID
	if err := unmarshalMetadata(metadata, &ev.Proof.Metadata); err != nil {
		return models.VerificationEvent{}, err
	}
	return ev, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}
