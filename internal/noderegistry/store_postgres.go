package noderegistry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
	"github.com/dragoonbuster/MeatSocial/pkg/platform/sentinel"
	txcontext "github.com/dragoonbuster/MeatSocial/pkg/platform/tx"
)

// PostgresStore persists node records in PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE verification_nodes (
//	    id             TEXT PRIMARY KEY,
//	    name           TEXT NOT NULL,
//	    latitude       DOUBLE PRECISION NOT NULL,
//	    longitude      DOUBLE PRECISION NOT NULL,
//	    public_key     TEXT NOT NULL,
//	    operator_contact TEXT NOT NULL DEFAULT '',
//	    active         BOOLEAN NOT NULL DEFAULT TRUE,
//	    verifications  BIGINT NOT NULL DEFAULT 0,
//	    created_at     TIMESTAMPTZ NOT NULL,
//	    key_ciphertext BYTEA NOT NULL,
//	    key_salt       BYTEA NOT NULL,
//	    key_nonce      BYTEA NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	const q = `
		INSERT INTO verification_nodes
			(id, name, latitude, longitude, public_key, operator_contact,
			 active, verifications, created_at, key_ciphertext, key_salt, key_nonce)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := s.execer(ctx).ExecContext(ctx, q,
		rec.Node.ID, rec.Node.Name, rec.Node.Latitude, rec.Node.Longitude,
		rec.Node.PublicKey, rec.Node.OperatorContact, rec.Node.Active,
		rec.Node.Verifications, rec.Node.CreatedAt,
		rec.EncryptedKey.Ciphertext, rec.EncryptedKey.Salt, rec.EncryptedKey.Nonce)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("save node: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (Record, error) {
	const q = `
		SELECT id, name, latitude, longitude, public_key, operator_contact,
		       active, verifications, created_at, key_ciphertext, key_salt, key_nonce
		FROM verification_nodes WHERE id = $1`
	var rec Record
	err := s.execer(ctx).QueryRowContext(ctx, q, id).Scan(
		&rec.Node.ID, &rec.Node.Name, &rec.Node.Latitude, &rec.Node.Longitude,
		&rec.Node.PublicKey, &rec.Node.OperatorContact, &rec.Node.Active,
		&rec.Node.Verifications, &rec.Node.CreatedAt,
		&rec.EncryptedKey.Ciphertext, &rec.EncryptedKey.Salt, &rec.EncryptedKey.Nonce)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("find node: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, id string) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE verification_nodes SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate node: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) IncrementCounter(ctx context.Context, id string) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE verification_nodes SET verifications = verifications + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment node counter: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.VerificationNode, error) {
	const q = `
		SELECT id, name, latitude, longitude, public_key, operator_contact,
		       active, verifications, created_at
		FROM verification_nodes ORDER BY created_at`
	rows, err := s.execer(ctx).QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	var nodes []models.VerificationNode
	for rows.Next() {
		var n models.VerificationNode
		if err := rows.Scan(&n.ID, &n.Name, &n.Latitude, &n.Longitude,
			&n.PublicKey, &n.OperatorContact, &n.Active, &n.Verifications, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}
