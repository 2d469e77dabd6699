package httptransport

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"github.com/dragoonbuster/MeatSocial/internal/platform/metrics"
	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
	"github.com/dragoonbuster/MeatSocial/internal/verification/proof"
	dErrors "github.com/dragoonbuster/MeatSocial/pkg/domain-errors"
)

// CeremonyService defines the orchestrator operations the HTTP layer needs.
type CeremonyService interface {
	PerformCeremony(ctx context.Context, input models.CeremonyInput) (models.VerificationProof, error)
	Renew(ctx context.Context, input models.CeremonyInput) (models.VerificationProof, error)
	Revoke(ctx context.Context, userID, reason string) error
	ValidateUser(ctx context.Context, userID string) (proof.Result, models.VerificationProof, error)
}

// ProofTokenCodec mints and checks opaque proof tokens.
type ProofTokenCodec interface {
	Create(p models.VerificationProof) (string, error)
	Validate(token string) (models.VerificationProof, error)
}

// VerificationHandler serves the ceremony, renewal and token endpoints.
type VerificationHandler struct {
	svc             CeremonyService
	tokens          ProofTokenCodec
	metrics         *metrics.Metrics
	logger          *log.Logger
	ceremonyTimeout time.Duration
}

func NewVerificationHandler(svc CeremonyService, tokens ProofTokenCodec, m *metrics.Metrics,
	logger *log.Logger, ceremonyTimeout time.Duration) *VerificationHandler {
	return &VerificationHandler{
		svc:             svc,
		tokens:          tokens,
		metrics:         m,
		logger:          logger,
		ceremonyTimeout: ceremonyTimeout,
	}
}

// Register registers the verification routes with the chi router.
func (h *VerificationHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(Timeout(h.ceremonyTimeout))
		r.Post("/verification/ceremony", h.handleCeremony)
		r.Post("/verification/renew", h.handleRenew)
	})
	r.Post("/verification/revoke", h.handleRevoke)
	r.Post("/verification/token/validate", h.handleValidateToken)
	r.Get("/verification/users/{userID}/status", h.handleStatus)
}

type ceremonyRequest struct {
	UserID        string `json:"userId"`
	NodeID        string `json:"nodeId"`
	OperatorID    string `json:"operatorId"`
	DocumentHash  string `json:"documentHash"`
	BiometricHash string `json:"biometricHash"`
	DocumentType  string `json:"documentType"`
}

type ceremonyResponse struct {
	Proof models.VerificationProof `json:"proof"`
	Token string                   `json:"token"`
}

func (h *VerificationHandler) handleCeremony(w http.ResponseWriter, r *http.Request) {
	h.runCeremony(w, r, h.svc.PerformCeremony, http.StatusCreated)
}

func (h *VerificationHandler) handleRenew(w http.ResponseWriter, r *http.Request) {
	h.runCeremony(w, r, h.svc.Renew, http.StatusOK)
}

func (h *VerificationHandler) runCeremony(w http.ResponseWriter, r *http.Request,
	perform func(context.Context, models.CeremonyInput) (models.VerificationProof, error), okStatus int) {
	var req ceremonyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if err := validateCeremonyRequest(req); err != nil {
		writeError(w, err)
		return
	}

	p, err := perform(r.Context(), models.CeremonyInput{
		UserID:        req.UserID,
		NodeID:        req.NodeID,
		OperatorID:    req.OperatorID,
		DocumentHash:  req.DocumentHash,
		BiometricHash: req.BiometricHash,
		DocumentType:  req.DocumentType,
	})
	if err != nil {
		if isRejection(err) {
			writeRejection(w)
			return
		}
		h.logger.Printf("ceremony failed (request_id=%s): %v", GetRequestID(r.Context()), err)
		writeError(w, err)
		return
	}

	token, err := h.tokens.Create(p)
	if err != nil {
		h.logger.Printf("proof token minting failed (request_id=%s): %v", GetRequestID(r.Context()), err)
		writeError(w, err)
		return
	}
	writeJSON(w, okStatus, ceremonyResponse{Proof: p, Token: token})
}

type revokeRequest struct {
	UserID string `json:"userId"`
	Reason string `json:"reason"`
}

func (h *VerificationHandler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if req.UserID == "" {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "userId is required"))
		return
	}
	if err := h.svc.Revoke(r.Context(), req.UserID, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type validateTokenRequest struct {
	Token string `json:"token"`
}

type validateTokenResponse struct {
	Valid bool                `json:"valid"`
	Proof models.TokenPayload `json:"proof"`
}

func (h *VerificationHandler) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	var req validateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "token is required"))
		return
	}
	p, err := h.tokens.Validate(req.Token)
	if err != nil {
		h.metrics.TokensValidated.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
		// malformed, forged and expired tokens all read the same to callers
		writeJSON(w, http.StatusUnauthorized, map[string]any{"valid": false})
		return
	}
	h.metrics.TokensValidated.WithLabelValues("valid").Inc()
	writeJSON(w, http.StatusOK, validateTokenResponse{
		Valid: true,
		Proof: models.TokenPayload{
			UserID:    p.UserID,
			NodeID:    p.NodeID,
			Timestamp: p.Timestamp,
			ExpiresAt: p.ExpiresAt,
			ProofHash: p.ProofHash,
		},
	})
}

type statusResponse struct {
	UserID    string    `json:"userId"`
	Verified  bool      `json:"verified"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

func (h *VerificationHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	res, p, err := h.svc.ValidateUser(r.Context(), userID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			writeJSON(w, http.StatusOK, statusResponse{UserID: userID, Verified: false})
			return
		}
		writeError(w, err)
		return
	}
	resp := statusResponse{UserID: userID, Verified: res.Valid}
	if res.Valid {
		resp.ExpiresAt = p.ExpiresAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func validateCeremonyRequest(req ceremonyRequest) error {
	if !govalidator.StringLength(req.UserID, "1", "100") {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid userId")
	}
	if !govalidator.StringLength(req.NodeID, "1", "100") {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid nodeId")
	}
	if !govalidator.StringLength(req.OperatorID, "1", "100") {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid operatorId")
	}
	if !govalidator.IsSHA256(req.DocumentHash) {
		return dErrors.New(dErrors.CodeInvalidInput, "documentHash must be a hex sha-256 digest")
	}
	if !govalidator.IsSHA256(req.BiometricHash) {
		return dErrors.New(dErrors.CodeInvalidInput, "biometricHash must be a hex sha-256 digest")
	}
	if !govalidator.StringLength(req.DocumentType, "1", "50") {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid documentType")
	}
	return nil
}
