package trust

import (
	"context"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/dragoonbuster/MeatSocial/internal/platform/metrics"
	"github.com/dragoonbuster/MeatSocial/internal/verification/keys"
	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
	"github.com/dragoonbuster/MeatSocial/internal/verification/proof"
	dErrors "github.com/dragoonbuster/MeatSocial/pkg/domain-errors"
)

var testMetrics = metrics.New()

type fakeProofs struct {
	proofs map[string]models.VerificationProof
	err    error

	calls int64
	gate  chan struct{} // when set, ActiveProof blocks until closed
}

func (f *fakeProofs) ActiveProof(_ context.Context, userID string) (models.VerificationProof, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return models.VerificationProof{}, f.err
	}
	p, ok := f.proofs[userID]
	if !ok {
		return models.VerificationProof{}, dErrors.New(dErrors.CodeNotFound, "no active verification")
	}
	return p, nil
}

type fakeStats struct {
	social  models.SocialStats
	reports int
	err     error
}

func (f *fakeStats) SocialStats(context.Context, string) (models.SocialStats, error) {
	return f.social, f.err
}

func (f *fakeStats) ReportsReceived(context.Context, string) (int, error) {
	return f.reports, f.err
}

type ScorerSuite struct {
	suite.Suite

	now    time.Time
	engine *proof.Engine
	proofs *fakeProofs
	stats  *fakeStats
	scorer *Scorer
}

func (s *ScorerSuite) SetupTest() {
	s.now = time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
	s.engine = proof.NewEngineWithClock(func() time.Time { return s.now })
	s.proofs = &fakeProofs{proofs: map[string]models.VerificationProof{}}
	s.stats = &fakeStats{social: models.SocialStats{Followers: 300, Following: 100}}
	s.scorer = NewScorer(s.proofs, s.stats, s.engine, nil, testMetrics,
		log.New(io.Discard, "", 0))
	s.scorer.now = func() time.Time { return s.now }
}

// proofAgedDays issues a real signed proof whose timestamp sits the given
// number of days in the past.
func (s *ScorerSuite) proofAgedDays(userID string, days int) models.VerificationProof {
	_, priv, err := keys.GenerateSigningKeyPair()
	s.Require().NoError(err)

	issued := s.now.Add(-time.Duration(days) * 24 * time.Hour)
	engine := proof.NewEngineWithClock(func() time.Time { return issued })
	p, err := engine.Generate(models.CeremonyInput{
		UserID:        userID,
		NodeID:        "node-1",
		OperatorID:    "op-1",
		DocumentHash:  "doc",
		BiometricHash: "bio",
	}, priv)
	s.Require().NoError(err)
	return p
}

func (s *ScorerSuite) TestScore() {
	ctx := context.Background()

	s.Run("fresh verification dominates the score", func() {
		s.proofs.proofs["alice"] = s.proofAgedDays("alice", 0)
		score, err := s.scorer.Score(ctx, "alice")
		s.Require().NoError(err)
		s.Equal(100, score.Verification)
		s.Equal(30, score.Social)
		s.Equal(30, score.Behavior)
		s.Equal(100, score.Final) // 50+100+30+30 clamps to 100
	})

	s.Run("unverified user scores on social and behavior alone", func() {
		score, err := s.scorer.Score(ctx, "bob")
		s.Require().NoError(err)
		s.Equal(0, score.Verification)
		s.Equal(100, score.Final) // 50+0+30+30 clamps
	})

	s.Run("aged verification decays", func() {
		s.proofs.proofs["carol"] = s.proofAgedDays("carol", 60)
		score, err := s.scorer.Score(ctx, "carol")
		s.Require().NoError(err)
		s.Equal(70, score.Verification)
	})

	s.Run("expired proof contributes nothing", func() {
		s.proofs.proofs["dave"] = s.proofAgedDays("dave", 120)
		score, err := s.scorer.Score(ctx, "dave")
		s.Require().NoError(err)
		s.Equal(0, score.Verification)
	})

	s.Run("reported user loses the behavior component", func() {
		s.stats.reports = 6
		s.stats.social = models.SocialStats{Followers: 10, Following: 100}
		score, err := s.scorer.Score(ctx, "erin")
		s.Require().NoError(err)
		s.Equal(5, score.Social)
		s.Equal(-10, score.Behavior)
		s.Equal(45, score.Final)
	})

	s.Run("stats provider failure surfaces as internal", func() {
		s.stats.err = dErrors.New(dErrors.CodeInternal, "graph service down")
		_, err := s.scorer.Score(ctx, "frank")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.stats.err = nil
	})
}

func (s *ScorerSuite) TestConcurrentRequestsShareOneComputation() {
	ctx := context.Background()
	s.proofs.proofs["judy"] = s.proofAgedDays("judy", 10)
	s.proofs.gate = make(chan struct{})

	const callers = 5
	var wg sync.WaitGroup
	scores := make(chan models.TrustScore, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			score, err := s.scorer.Score(ctx, "judy")
			s.NoError(err)
			scores <- score
		}()
	}

	// wait for the first computation to enter the provider, give the rest
	// time to join the flight, then release
	s.Require().Eventually(func() bool {
		return atomic.LoadInt64(&s.proofs.calls) >= 1
	}, time.Second, time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	close(s.proofs.gate)
	wg.Wait()
	close(scores)

	s.Equal(int64(1), atomic.LoadInt64(&s.proofs.calls))
	for score := range scores {
		s.Equal(95, score.Verification) // 100 - 10*0.5
	}
}

func TestScorerSuite(t *testing.T) {
	suite.Run(t, new(ScorerSuite))
}
