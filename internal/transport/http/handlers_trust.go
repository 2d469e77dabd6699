package httptransport

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
)

// TrustService computes trust scores on demand.
type TrustService interface {
	Score(ctx context.Context, userID string) (models.TrustScore, error)
}

type TrustHandler struct {
	scorer TrustService
	logger *log.Logger
}

func NewTrustHandler(scorer TrustService, logger *log.Logger) *TrustHandler {
	return &TrustHandler{scorer: scorer, logger: logger}
}

func (h *TrustHandler) Register(r chi.Router) {
	r.Get("/users/{userID}/trust-score", h.handleScore)
}

func (h *TrustHandler) handleScore(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	score, err := h.scorer.Score(r.Context(), userID)
	if err != nil {
		h.logger.Printf("trust score failed for user %s (request_id=%s): %v",
			userID, GetRequestID(r.Context()), err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}
