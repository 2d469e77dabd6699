package proof

import (
	"math"
	"time"

	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
)

const (
	recencyFloor    = 10
	recencyCeiling  = 100
	freshBonus      = 10
	freshWindowDays = 7
	decayPerDay     = 0.5
)

// VerificationTrustScore computes the recency component of a user's trust
// score from their current proof. The score starts at 100 and decays half a
// point per day, floored at 10. Verifications no older than seven days earn
// a flat bonus applied after the floor, so a fresh verification can sit above
// the floor even late in the decay curve. The result is capped at 100.
func (e *Engine) VerificationTrustScore(p models.VerificationProof) int {
	days := e.now().Sub(p.Timestamp).Hours() / 24
	if days < 0 {
		days = 0
	}

	score := recencyCeiling - decayPerDay*days
	if score < recencyFloor {
		score = recencyFloor
	}
	if days <= freshWindowDays {
		score += freshBonus
	}
	if score > recencyCeiling {
		score = recencyCeiling
	}
	return int(math.Round(score))
}

// DaysSince exposes the age of a proof in whole days, mainly for logging.
func DaysSince(p models.VerificationProof, now time.Time) int {
	return int(now.Sub(p.Timestamp).Hours() / 24)
}
