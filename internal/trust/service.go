package trust

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dragoonbuster/MeatSocial/internal/platform/metrics"
	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
	"github.com/dragoonbuster/MeatSocial/internal/verification/proof"
	dErrors "github.com/dragoonbuster/MeatSocial/pkg/domain-errors"
)

// ProofSource yields the user's current proof. The ceremony orchestrator
// implements it.
type ProofSource interface {
	ActiveProof(ctx context.Context, userID string) (models.VerificationProof, error)
}

// StatsProvider supplies the social-graph and moderation inputs. These live
// outside this service; the provider is expected to be cheap or cached on
// its own side.
type StatsProvider interface {
	SocialStats(ctx context.Context, userID string) (models.SocialStats, error)
	ReportsReceived(ctx context.Context, userID string) (int, error)
}

// Scorer computes trust scores on demand, deduplicating concurrent requests
// for the same user and caching results.
type Scorer struct {
	proofs  ProofSource
	stats   StatsProvider
	engine  *proof.Engine
	cache   *Cache
	group   singleflight.Group
	metrics *metrics.Metrics
	log     *log.Logger
	now     func() time.Time
}

func NewScorer(proofs ProofSource, stats StatsProvider, engine *proof.Engine,
	cache *Cache, m *metrics.Metrics, logger *log.Logger) *Scorer {
	return &Scorer{
		proofs:  proofs,
		stats:   stats,
		engine:  engine,
		cache:   cache,
		metrics: m,
		log:     logger,
		now:     time.Now,
	}
}

// Score returns the user's trust score, serving from cache when possible.
// Concurrent calls for the same user share one computation.
func (s *Scorer) Score(ctx context.Context, userID string) (models.TrustScore, error) {
	if cached, ok := s.cache.Get(ctx, userID); ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(userID, func() (any, error) {
		return s.compute(ctx, userID)
	})
	if err != nil {
		s.log.Printf("trust score computation failed for user %s: %v", userID, err)
		return models.TrustScore{}, err
	}

	score := v.(models.TrustScore)
	s.cache.Set(ctx, score)
	return score, nil
}

// Invalidate drops the user's cached score. Callers invoke it after
// ceremonies, renewals and revocations.
func (s *Scorer) Invalidate(ctx context.Context, userID string) {
	s.cache.Invalidate(ctx, userID)
}

func (s *Scorer) compute(ctx context.Context, userID string) (models.TrustScore, error) {
	verification := 0
	p, err := s.proofs.ActiveProof(ctx, userID)
	switch {
	case err == nil:
		if !p.Expired(s.now()) {
			verification = s.engine.VerificationTrustScore(p)
		}
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		// unverified users still get a score from the other components
	default:
		return models.TrustScore{}, err
	}

	social, err := s.stats.SocialStats(ctx, userID)
	if err != nil {
		return models.TrustScore{}, dErrors.Wrap(err, dErrors.CodeInternal, "social stats lookup failed")
	}
	reports, err := s.stats.ReportsReceived(ctx, userID)
	if err != nil {
		return models.TrustScore{}, dErrors.Wrap(err, dErrors.CodeInternal, "report count lookup failed")
	}

	socialScore := SocialScore(social)
	behaviorScore := BehaviorScore(reports)

	score := models.TrustScore{
		UserID:       userID,
		Verification: verification,
		Social:       socialScore,
		Behavior:     behaviorScore,
		Final:        Aggregate(verification, socialScore, behaviorScore),
		ComputedAt:   s.now().UTC(),
	}
	s.metrics.TrustScoresComputed.Inc()
	return score, nil
}
