//go:build integration

package containers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schema bootstraps every table the verification service owns. Kept in one
// place so integration suites and local development start from the same
// shape.
const schema = `
CREATE TABLE verification_nodes (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL,
    latitude       DOUBLE PRECISION NOT NULL,
    longitude      DOUBLE PRECISION NOT NULL,
    public_key     TEXT NOT NULL,
    operator_contact TEXT NOT NULL DEFAULT '',
    active         BOOLEAN NOT NULL DEFAULT TRUE,
    verifications  BIGINT NOT NULL DEFAULT 0,
    created_at     TIMESTAMPTZ NOT NULL,
    key_ciphertext BYTEA NOT NULL,
    key_salt       BYTEA NOT NULL,
    key_nonce      BYTEA NOT NULL
);

CREATE TABLE verification_events (
    id          UUID PRIMARY KEY,
    user_id     TEXT NOT NULL,
    node_id     TEXT NOT NULL,
    timestamp   TIMESTAMPTZ NOT NULL,
    expires_at  TIMESTAMPTZ NOT NULL,
    proof_hash  TEXT NOT NULL,
    signature   TEXT NOT NULL,
    metadata    JSONB NOT NULL DEFAULT '{}',
    is_valid    BOOLEAN NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX one_active_event_per_user
    ON verification_events (user_id) WHERE is_valid;

CREATE TABLE identity_index (
    document_hash TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL
);

CREATE TABLE audit_entries (
    id          UUID PRIMARY KEY,
    created_at  TIMESTAMPTZ NOT NULL,
    user_id     TEXT NOT NULL DEFAULT '',
    node_id     TEXT NOT NULL DEFAULT '',
    operator_id TEXT NOT NULL DEFAULT '',
    action      TEXT NOT NULL,
    reason      TEXT NOT NULL DEFAULT '',
    proof_hash  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE user_social_stats (
    user_id   TEXT PRIMARY KEY,
    followers INTEGER NOT NULL DEFAULT 0,
    following INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE user_reports (
    id               UUID PRIMARY KEY,
    reported_user_id TEXT NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX user_reports_reported_user_idx ON user_reports (reported_user_id);
`

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// service schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	URL       string
	DB        *sql.DB
}

// NewPostgresContainer starts a PostgreSQL container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("verification"),
		tcpostgres.WithUsername("verification"),
		tcpostgres.WithPassword("verification"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{Container: container, URL: url, DB: db}
}

// Truncate clears all tables between tests.
func (p *PostgresContainer) Truncate(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `
		TRUNCATE verification_nodes, verification_events, identity_index,
		         audit_entries, user_social_stats, user_reports`)
	return err
}
