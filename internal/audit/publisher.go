package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence port for audit entries. Implementations are
// append-only.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByUser(ctx context.Context, userID string) ([]Entry, error)
}

// Publisher captures structured audit entries. It uses the storage layer for
// persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, entry Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	return p.store.Append(ctx, entry)
}

func (p *Publisher) List(ctx context.Context, userID string) ([]Entry, error) {
	return p.store.ListByUser(ctx, userID)
}
