package proof

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
)

func scoreAt(daysSince float64) int {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	now := t0.Add(time.Duration(daysSince * 24 * float64(time.Hour)))
	engine := NewEngineWithClock(func() time.Time { return now })
	return engine.VerificationTrustScore(models.VerificationProof{
		Timestamp: t0,
		ExpiresAt: t0.Add(models.ValidityWindow),
	})
}

func TestVerificationTrustScoreFreshIsHundred(t *testing.T) {
	assert.Equal(t, 100, scoreAt(0))
}

func TestVerificationTrustScoreFreshBonusWindow(t *testing.T) {
	// inside the 7-day window the bonus offsets decay but never exceeds 100
	assert.Equal(t, 100, scoreAt(3))
	assert.Equal(t, 100, scoreAt(7))
	// just outside the window the bonus disappears
	assert.Equal(t, 96, scoreAt(8))
}

func TestVerificationTrustScoreDecay(t *testing.T) {
	assert.Equal(t, 85, scoreAt(30))
	assert.Equal(t, 70, scoreAt(60))
	assert.Equal(t, 55, scoreAt(90))
}

func TestVerificationTrustScoreFloor(t *testing.T) {
	assert.Equal(t, 10, scoreAt(180))
	assert.Equal(t, 10, scoreAt(365))
	assert.Equal(t, 10, scoreAt(10000))
}

func TestVerificationTrustScoreMonotonicBeyondBonusWindow(t *testing.T) {
	prev := scoreAt(8)
	for days := 9.0; days <= 200; days++ {
		cur := scoreAt(days)
		assert.LessOrEqual(t, cur, prev, "score increased at day %v", days)
		assert.GreaterOrEqual(t, cur, 10)
		prev = cur
	}
}

func TestVerificationTrustScoreClockSkewClampsToZeroDays(t *testing.T) {
	// proof timestamped slightly in the future scores as brand new
	assert.Equal(t, 100, scoreAt(-0.5))
}

func TestDaysSinceTruncatesToWholeDays(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := models.VerificationProof{Timestamp: t0}

	assert.Equal(t, 0, DaysSince(p, t0.Add(23*time.Hour)))
	assert.Equal(t, 1, DaysSince(p, t0.Add(25*time.Hour)))
	assert.Equal(t, 90, DaysSince(p, t0.Add(90*24*time.Hour)))
}
