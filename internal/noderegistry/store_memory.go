package noderegistry

import (
	"context"
	"sync"

	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
	"github.com/dragoonbuster/MeatSocial/pkg/platform/sentinel"
)

// InMemoryStore keeps node records in process memory. It intentionally
// favors clarity over performance.
type InMemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nodes: make(map[string]Record)}
}

func (s *InMemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.nodes[rec.Node.ID]; ok && existing.Node.PublicKey != rec.Node.PublicKey {
		// public keys are immutable after issuance
		return sentinel.ErrConflict
	}
	s.nodes[rec.Node.ID] = rec
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.nodes[id]
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}
	return rec, nil
}

func (s *InMemoryStore) Deactivate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.nodes[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	rec.Node.Active = false
	s.nodes[id] = rec
	return nil
}

func (s *InMemoryStore) IncrementCounter(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.nodes[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	rec.Node.Verifications++
	s.nodes[id] = rec
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]models.VerificationNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nodes := make([]models.VerificationNode, 0, len(s.nodes))
	for _, rec := range s.nodes {
		nodes = append(nodes, rec.Node)
	}
	return nodes, nil
}
