// Package trust computes the bounded trust score for a user from
// verification recency, social graph shape and report history. Scores are
// derived values: recomputable on demand, cacheable, never authoritative.
package trust

import "github.com/dragoonbuster/MeatSocial/internal/verification/models"

const (
	baseScore = 50
	minScore  = 0
	maxScore  = 100
)

// SocialScore maps the follower/following ratio onto monotonic buckets.
// The ratio is undefined when the user follows nobody; that case scores 0
// regardless of follower count.
func SocialScore(stats models.SocialStats) int {
	if stats.Following == 0 {
		return 0
	}
	ratio := float64(stats.Followers) / float64(stats.Following)
	switch {
	case ratio > 2:
		return 30
	case ratio > 1:
		return 20
	case ratio > 0.5:
		return 10
	default:
		return 5
	}
}

// BehaviorScore keys on the number of reports received. More than five
// reports goes negative; the aggregate clamp handles the floor.
func BehaviorScore(reportsReceived int) int {
	switch {
	case reportsReceived == 0:
		return 30
	case reportsReceived <= 2:
		return 20
	case reportsReceived <= 5:
		return 10
	default:
		return -10
	}
}

// Aggregate combines the three components over the base score and clamps the
// result to [0,100]. Same inputs always yield the same output.
func Aggregate(verification, social, behavior int) int {
	score := baseScore + verification + social + behavior
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}
