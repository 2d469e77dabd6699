package trust

import (
	"context"
	"sync"

	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
)

// InMemoryStats is the development StatsProvider. Users without recorded
// stats score as newcomers: no followers, no reports.
type InMemoryStats struct {
	mu      sync.RWMutex
	social  map[string]models.SocialStats
	reports map[string]int
}

func NewInMemoryStats() *InMemoryStats {
	return &InMemoryStats{
		social:  make(map[string]models.SocialStats),
		reports: make(map[string]int),
	}
}

func (s *InMemoryStats) SocialStats(_ context.Context, userID string) (models.SocialStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.social[userID], nil
}

func (s *InMemoryStats) ReportsReceived(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reports[userID], nil
}

func (s *InMemoryStats) SetSocialStats(userID string, stats models.SocialStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.social[userID] = stats
}

func (s *InMemoryStats) AddReport(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[userID]++
}
