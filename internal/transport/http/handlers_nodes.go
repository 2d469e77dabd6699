package httptransport

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"github.com/dragoonbuster/MeatSocial/internal/audit"
	"github.com/dragoonbuster/MeatSocial/internal/noderegistry"
	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
	dErrors "github.com/dragoonbuster/MeatSocial/pkg/domain-errors"
)

// NodeService covers node lifecycle operations.
type NodeService interface {
	Onboard(ctx context.Context, req noderegistry.OnboardRequest) (models.VerificationNode, error)
	Deactivate(ctx context.Context, nodeID string) error
	Node(ctx context.Context, nodeID string) (models.VerificationNode, error)
	List(ctx context.Context) ([]models.VerificationNode, error)
}

// AuditReader lists the audit trail for a user.
type AuditReader interface {
	List(ctx context.Context, userID string) ([]audit.Entry, error)
}

type NodeHandler struct {
	nodes  NodeService
	audits AuditReader
	logger *log.Logger
}

func NewNodeHandler(nodes NodeService, audits AuditReader, logger *log.Logger) *NodeHandler {
	return &NodeHandler{nodes: nodes, audits: audits, logger: logger}
}

func (h *NodeHandler) Register(r chi.Router) {
	r.Post("/nodes", h.handleOnboard)
	r.Get("/nodes", h.handleList)
	r.Get("/nodes/{nodeID}", h.handleGet)
	r.Post("/nodes/{nodeID}/deactivate", h.handleDeactivate)
	r.Get("/users/{userID}/audit", h.handleAudit)
}

type onboardRequest struct {
	Name            string  `json:"name"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	OperatorContact string  `json:"operatorContact"`
}

func (h *NodeHandler) handleOnboard(w http.ResponseWriter, r *http.Request) {
	var req onboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if !govalidator.StringLength(req.Name, "1", "200") {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid node name"))
		return
	}
	if !govalidator.InRangeFloat64(req.Latitude, -90, 90) ||
		!govalidator.InRangeFloat64(req.Longitude, -180, 180) {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid coordinates"))
		return
	}

	node, err := h.nodes.Onboard(r.Context(), noderegistry.OnboardRequest{
		Name:            req.Name,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		OperatorContact: req.OperatorContact,
	})
	if err != nil {
		h.logger.Printf("node onboarding failed (request_id=%s): %v", GetRequestID(r.Context()), err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

func (h *NodeHandler) handleList(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.nodes.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (h *NodeHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	node, err := h.nodes.Node(r.Context(), chi.URLParam(r, "nodeID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (h *NodeHandler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.nodes.Deactivate(r.Context(), chi.URLParam(r, "nodeID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NodeHandler) handleAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.audits.List(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
