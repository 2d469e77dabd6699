package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
)

func TestSocialScoreBuckets(t *testing.T) {
	tests := []struct {
		name      string
		followers int
		following int
		want      int
	}{
		{"following zero is undefined ratio", 1000, 0, 0},
		{"following zero with zero followers", 0, 0, 0},
		{"ratio above two", 50, 10, 30},
		{"ratio exactly two stays in lower bucket", 20, 10, 20},
		{"ratio above one", 15, 10, 20},
		{"ratio exactly one", 10, 10, 10},
		{"ratio above half", 6, 10, 10},
		{"ratio exactly half", 5, 10, 5},
		{"ratio below half", 1, 10, 5},
		{"zero followers", 0, 10, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SocialScore(models.SocialStats{Followers: tt.followers, Following: tt.following})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBehaviorScoreBuckets(t *testing.T) {
	assert.Equal(t, 30, BehaviorScore(0))
	assert.Equal(t, 20, BehaviorScore(1))
	assert.Equal(t, 20, BehaviorScore(2))
	assert.Equal(t, 10, BehaviorScore(3))
	assert.Equal(t, 10, BehaviorScore(5))
	assert.Equal(t, -10, BehaviorScore(6))
	assert.Equal(t, -10, BehaviorScore(100))
}

func TestAggregateClamps(t *testing.T) {
	assert.Equal(t, 100, Aggregate(100, 30, 30))
	assert.Equal(t, 0, Aggregate(-100, 0, -10))
	assert.Equal(t, 50, Aggregate(0, 0, 0))
	assert.Equal(t, 90, Aggregate(40, 10, -10))
}

func TestAggregateIdempotent(t *testing.T) {
	first := Aggregate(55, 20, 30)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Aggregate(55, 20, 30))
	}
}
