package httptransport

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
	dErrors "github.com/dragoonbuster/MeatSocial/pkg/domain-errors"
)

// SessionIssuer mints session tokens from verification proofs.
type SessionIssuer interface {
	IssueFromProof(p models.VerificationProof, expiresIn time.Duration) (string, error)
}

// SessionHandler exchanges a proof bearer token for a session JWT and serves
// the authenticated self-service routes.
type SessionHandler struct {
	svc       CeremonyService
	tokens    ProofTokenCodec
	sessions  SessionIssuer
	validator SessionValidator
	ttl       time.Duration
	logger    *log.Logger
}

func NewSessionHandler(svc CeremonyService, tokens ProofTokenCodec, sessions SessionIssuer,
	validator SessionValidator, ttl time.Duration, logger *log.Logger) *SessionHandler {
	return &SessionHandler{svc: svc, tokens: tokens, sessions: sessions, validator: validator, ttl: ttl, logger: logger}
}

func (h *SessionHandler) Register(r chi.Router) {
	r.Post("/session/token", h.handleIssue)
	r.Group(func(r chi.Router) {
		r.Use(RequireSession(h.validator, h.logger))
		r.Get("/me/verification", h.handleMyVerification)
	})
}

type sessionRequest struct {
	ProofToken string `json:"proofToken"`
}

type sessionResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
}

// handleIssue exchanges a proof bearer token, handed out only at ceremony
// time, for a session JWT. The token is the credential; the user id comes
// from its validated payload, never from the request. Every failure past
// basic input validation reads the same so the endpoint confirms nothing
// about who is verified.
func (h *SessionHandler) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProofToken == "" {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "proofToken is required"))
		return
	}

	claimed, err := h.tokens.Validate(req.ProofToken)
	if err != nil {
		h.logger.Printf("session issuance refused, proof token invalid (request_id=%s): %v",
			GetRequestID(r.Context()), err)
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "verification could not be confirmed"))
		return
	}

	// The token alone is not enough: the proof behind it must still be the
	// user's current, valid one. A revoked or renewed proof leaves stale
	// tokens unable to mint sessions.
	res, p, err := h.svc.ValidateUser(r.Context(), claimed.UserID)
	if err != nil || !res.Valid || p.ProofHash != claimed.ProofHash {
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "verification could not be confirmed"))
		return
	}

	token, err := h.sessions.IssueFromProof(p, h.ttl)
	if err != nil {
		h.logger.Printf("session issuance failed for user %s (request_id=%s): %v",
			claimed.UserID, GetRequestID(r.Context()), err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{AccessToken: token, TokenType: "Bearer"})
}

type myVerificationResponse struct {
	UserID    string    `json:"userId"`
	Verified  bool      `json:"verified"`
	NodeID    string    `json:"nodeId,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

// handleMyVerification returns the caller's own verification state, derived
// from the session token. No user id in the URL, no enumeration surface.
func (h *SessionHandler) handleMyVerification(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		writeError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	res, p, err := h.svc.ValidateUser(r.Context(), userID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			writeJSON(w, http.StatusOK, myVerificationResponse{UserID: userID})
			return
		}
		writeError(w, err)
		return
	}
	resp := myVerificationResponse{UserID: userID, Verified: res.Valid}
	if res.Valid {
		resp.NodeID = p.NodeID
		resp.Timestamp = p.Timestamp
		resp.ExpiresAt = p.ExpiresAt
	}
	writeJSON(w, http.StatusOK, resp)
}
