package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dragoonbuster/MeatSocial/internal/audit"
	"github.com/dragoonbuster/MeatSocial/internal/noderegistry"
	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
	"github.com/dragoonbuster/MeatSocial/pkg/platform/sentinel"
)

// InMemoryStore keeps verification state in process memory. Transactions are
// staged and applied atomically under one lock, which serializes all
// transactions; that is stricter than the per-user serialization the
// interface promises, and correct.
type InMemoryStore struct {
	mu           sync.RWMutex
	nodes        *noderegistry.InMemoryStore
	audits       audit.Store
	events       map[uuid.UUID]models.VerificationEvent
	activeByUser map[string]uuid.UUID
	docIndex     map[string]string
}

// NewInMemoryStore shares the node registry store and audit store so that
// ceremony transactions see the same state as the registry service and the
// audit publisher.
func NewInMemoryStore(nodes *noderegistry.InMemoryStore, audits audit.Store) *InMemoryStore {
	return &InMemoryStore{
		nodes:        nodes,
		audits:       audits,
		events:       make(map[uuid.UUID]models.VerificationEvent),
		activeByUser: make(map[string]uuid.UUID),
		docIndex:     make(map[string]string),
	}
}

func (s *InMemoryStore) GetActiveNode(ctx context.Context, nodeID string) (models.VerificationNode, error) {
	rec, err := s.nodes.FindByID(ctx, nodeID)
	if err != nil {
		return models.VerificationNode{}, err
	}
	if !rec.Node.Active {
		return models.VerificationNode{}, sentinel.ErrNodeInactive
	}
	return rec.Node, nil
}

func (s *InMemoryStore) ActiveEvent(_ context.Context, userID string) (models.VerificationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.activeByUser[userID]
	if !ok {
		return models.VerificationEvent{}, sentinel.ErrNoActiveEvent
	}
	return s.events[id], nil
}

func (s *InMemoryStore) UserByDocumentHash(_ context.Context, documentHash string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.docIndex[documentHash]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return userID, nil
}

// InTx stages writes and applies them only if fn succeeds. fn must touch
// state exclusively through the Tx it receives; calling the store's read
// methods inside fn would deadlock.
func (s *InMemoryStore) InTx(ctx context.Context, _ string, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.apply(ctx)
	return nil
}

type memTx struct {
	store *InMemoryStore

	inserted      []models.VerificationEvent
	invalidated   []uuid.UUID
	bindings      map[string]string
	nodeCounters  []string
	auditEntries  []audit.Entry
	stagedActives map[string]uuid.UUID // userID -> active event after staged ops
}

func (t *memTx) activeFor(userID string) (uuid.UUID, bool) {
	if t.stagedActives != nil {
		if id, ok := t.stagedActives[userID]; ok {
			return id, id != uuid.Nil
		}
	}
	id, ok := t.store.activeByUser[userID]
	return id, ok
}

func (t *memTx) setStagedActive(userID string, id uuid.UUID) {
	if t.stagedActives == nil {
		t.stagedActives = make(map[string]uuid.UUID)
	}
	t.stagedActives[userID] = id
}

func (t *memTx) InsertVerificationEvent(_ context.Context, event models.VerificationEvent) error {
	if event.IsValid {
		if _, active := t.activeFor(event.UserID); active {
			return sentinel.ErrConflict
		}
		t.setStagedActive(event.UserID, event.ID)
	}
	t.inserted = append(t.inserted, event)
	return nil
}

func (t *memTx) InvalidateActiveEvent(_ context.Context, userID string, expected uuid.UUID) error {
	id, active := t.activeFor(userID)
	if !active {
		return sentinel.ErrNoActiveEvent
	}
	if id != expected {
		return sentinel.ErrConflict
	}
	t.invalidated = append(t.invalidated, id)
	t.setStagedActive(userID, uuid.Nil)
	return nil
}

func (t *memTx) BindDocumentHash(_ context.Context, documentHash, userID string) error {
	if bound, ok := t.store.docIndex[documentHash]; ok && bound != userID {
		return sentinel.ErrConflict
	}
	if bound, ok := t.bindings[documentHash]; ok && bound != userID {
		return sentinel.ErrConflict
	}
	if t.bindings == nil {
		t.bindings = make(map[string]string)
	}
	t.bindings[documentHash] = userID
	return nil
}

func (t *memTx) IncrementNodeCounter(_ context.Context, nodeID string) error {
	t.nodeCounters = append(t.nodeCounters, nodeID)
	return nil
}

func (t *memTx) InsertAuditEntry(_ context.Context, entry audit.Entry) error {
	t.auditEntries = append(t.auditEntries, entry)
	return nil
}

func (t *memTx) apply(ctx context.Context) {
	s := t.store
	for _, id := range t.invalidated {
		ev := s.events[id]
		ev.IsValid = false
		s.events[id] = ev
		delete(s.activeByUser, ev.UserID)
	}
	for _, ev := range t.inserted {
		s.events[ev.ID] = ev
		if ev.IsValid {
			s.activeByUser[ev.UserID] = ev.ID
		}
	}
	for hash, userID := range t.bindings {
		s.docIndex[hash] = userID
	}
	for _, nodeID := range t.nodeCounters {
		_ = s.nodes.IncrementCounter(ctx, nodeID)
	}
	for _, entry := range t.auditEntries {
		_ = s.audits.Append(ctx, entry)
	}
}

// EventsByUser returns the user's full append-only event history, newest
// last. Used by audit tooling and tests.
func (s *InMemoryStore) EventsByUser(_ context.Context, userID string) []models.VerificationEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.VerificationEvent
	for _, ev := range s.events {
		if ev.UserID == userID {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
