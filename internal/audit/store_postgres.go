package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	txcontext "github.com/dragoonbuster/MeatSocial/pkg/platform/tx"
)

// PostgresStore persists audit entries in PostgreSQL. When a transaction is
// present in the context the append joins it, so a ceremony's audit row
// commits or rolls back together with its verification event.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	const q = `
		INSERT INTO audit_entries (id, created_at, user_id, node_id, operator_id, action, reason, proof_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.execer(ctx).ExecContext(ctx, q,
		entry.ID, entry.Timestamp, entry.UserID, entry.NodeID,
		entry.OperatorID, string(entry.Action), entry.Reason, entry.ProofHash)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Entry, error) {
	const q = `
		SELECT id, created_at, user_id, node_id, operator_id, action, reason, proof_hash
		FROM audit_entries WHERE user_id = $1 ORDER BY created_at`
	rows, err := s.execer(ctx).QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var action string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.UserID, &e.NodeID,
			&e.OperatorID, &action, &e.Reason, &e.ProofHash); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = Action(action)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
