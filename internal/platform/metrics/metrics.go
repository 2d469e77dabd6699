package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the verification service.
type Metrics struct {
	CeremoniesCompleted prometheus.Counter
	CeremoniesRejected  *prometheus.CounterVec
	RenewalsCompleted   prometheus.Counter
	TokensValidated     *prometheus.CounterVec
	TrustScoresComputed prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CeremoniesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "meatsocial_ceremonies_completed_total",
			Help: "Total number of verification ceremonies completed successfully",
		}),
		CeremoniesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "meatsocial_ceremonies_rejected_total",
			Help: "Total number of verification ceremonies rejected, by reason code",
		}, []string{"reason"}),
		RenewalsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "meatsocial_renewals_completed_total",
			Help: "Total number of verification renewals completed successfully",
		}),
		TokensValidated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "meatsocial_proof_tokens_validated_total",
			Help: "Total number of proof token validations, by outcome",
		}, []string{"outcome"}),
		TrustScoresComputed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "meatsocial_trust_scores_computed_total",
			Help: "Total number of trust score recomputations",
		}),
	}
}
