package httptransport

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/dragoonbuster/MeatSocial/internal/audit"
	"github.com/dragoonbuster/MeatSocial/internal/noderegistry"
	"github.com/dragoonbuster/MeatSocial/internal/platform/metrics"
	"github.com/dragoonbuster/MeatSocial/internal/session"
	"github.com/dragoonbuster/MeatSocial/internal/trust"
	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
	"github.com/dragoonbuster/MeatSocial/internal/verification/proof"
	"github.com/dragoonbuster/MeatSocial/internal/verification/service"
	"github.com/dragoonbuster/MeatSocial/internal/verification/store"
	"github.com/dragoonbuster/MeatSocial/internal/verification/token"
)

var testMetrics = metrics.New()

type staticStats struct{}

func (staticStats) SocialStats(context.Context, string) (models.SocialStats, error) {
	return models.SocialStats{Followers: 200, Following: 150}, nil
}

func (staticStats) ReportsReceived(context.Context, string) (int, error) { return 0, nil }

// HandlerSuite exercises the HTTP surface against real services wired over
// the in-memory stores, the same shape main assembles.
type HandlerSuite struct {
	suite.Suite

	router http.Handler
	nodeID string
}

func (s *HandlerSuite) SetupTest() {
	logger := log.New(io.Discard, "", 0)
	nodeStore := noderegistry.NewInMemoryStore()
	auditStore := audit.NewInMemoryStore()
	publisher := audit.NewPublisher(auditStore)
	registry := noderegistry.NewService(nodeStore, publisher, "test-passphrase", logger)
	eventStore := store.NewInMemoryStore(nodeStore, auditStore)
	engine := proof.NewEngine()
	orchestrator := service.NewService(eventStore, registry, engine, publisher, testMetrics, logger)
	codec := token.NewCodec("test-token-secret")
	scorer := trust.NewScorer(orchestrator, staticStats{}, engine, nil, testMetrics, logger)
	jwtService := session.NewJWTService("test-signing-key", "meatsocial", "meatsocial-api")

	s.router = NewRouter(logger, nil,
		NewVerificationHandler(orchestrator, codec, testMetrics, logger, 30*time.Second),
		NewNodeHandler(registry, publisher, logger),
		NewTrustHandler(scorer, logger),
		NewSessionHandler(orchestrator, codec, jwtService, jwtService, time.Hour, logger),
	)

	node, err := registry.Onboard(context.Background(), noderegistry.OnboardRequest{
		Name:            "Downtown Kiosk",
		Latitude:        40.7,
		Longitude:       -74.0,
		OperatorContact: "ops@example.org",
	})
	s.Require().NoError(err)
	s.nodeID = node.ID
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func hexHash(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

func (s *HandlerSuite) ceremonyBody(userID string) map[string]any {
	return map[string]any{
		"userId":        userID,
		"nodeId":        s.nodeID,
		"operatorId":    "op-1",
		"documentHash":  hexHash("doc-" + userID),
		"biometricHash": hexHash("bio-" + userID),
		"documentType":  "passport",
	}
}

func (s *HandlerSuite) TestCeremonyEndpoint() {
	s.Run("valid ceremony returns proof and token", func() {
		w := s.do(http.MethodPost, "/verification/ceremony", s.ceremonyBody("alice"))
		s.Require().Equal(http.StatusCreated, w.Code)

		var resp struct {
			Proof models.VerificationProof `json:"proof"`
			Token string                   `json:"token"`
		}
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Equal("alice", resp.Proof.UserID)
		s.NotEmpty(resp.Proof.Signature)
		s.NotEmpty(resp.Token)
	})

	s.Run("missing hashes fail validation", func() {
		body := s.ceremonyBody("bob")
		body["documentHash"] = "not-a-digest"
		w := s.do(http.MethodPost, "/verification/ceremony", body)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("rejections share one generic response", func() {
		unknown := s.ceremonyBody("carol")
		unknown["nodeId"] = "node-unknown"
		wUnknown := s.do(http.MethodPost, "/verification/ceremony", unknown)

		w := s.do(http.MethodPost, "/verification/ceremony", s.ceremonyBody("dave"))
		s.Require().Equal(http.StatusCreated, w.Code)
		duplicate := s.ceremonyBody("dave-clone")
		duplicate["documentHash"] = hexHash("doc-dave")
		wDuplicate := s.do(http.MethodPost, "/verification/ceremony", duplicate)

		s.Equal(http.StatusUnprocessableEntity, wUnknown.Code)
		s.Equal(http.StatusUnprocessableEntity, wDuplicate.Code)
		// identical bodies: the endpoint must not reveal which gate failed
		s.JSONEq(wUnknown.Body.String(), wDuplicate.Body.String())
	})
}

func (s *HandlerSuite) TestRenewAndRevoke() {
	w := s.do(http.MethodPost, "/verification/ceremony", s.ceremonyBody("erin"))
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/verification/renew", s.ceremonyBody("erin"))
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/verification/revoke", map[string]any{
		"userId": "erin", "reason": "operator request",
	})
	s.Require().Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/verification/users/erin/status", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var status struct {
		Verified bool `json:"verified"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &status))
	s.False(status.Verified)
}

func (s *HandlerSuite) TestTokenValidation() {
	w := s.do(http.MethodPost, "/verification/ceremony", s.ceremonyBody("frank"))
	s.Require().Equal(http.StatusCreated, w.Code)
	var created struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))

	s.Run("minted token validates", func() {
		w := s.do(http.MethodPost, "/verification/token/validate", map[string]string{"token": created.Token})
		s.Require().Equal(http.StatusOK, w.Code)
		var resp struct {
			Valid bool `json:"valid"`
			Proof struct {
				UserID string `json:"userId"`
			} `json:"proof"`
		}
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.True(resp.Valid)
		s.Equal("frank", resp.Proof.UserID)
	})

	s.Run("tampered token reads as invalid", func() {
		w := s.do(http.MethodPost, "/verification/token/validate", map[string]string{"token": created.Token + "x"})
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("garbage token reads as invalid", func() {
		w := s.do(http.MethodPost, "/verification/token/validate", map[string]string{"token": "garbage"})
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

func (s *HandlerSuite) TestSessionIssuance() {
	w := s.do(http.MethodPost, "/verification/ceremony", s.ceremonyBody("grace"))
	s.Require().Equal(http.StatusCreated, w.Code)
	var ceremony struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &ceremony))

	s.Run("proof token exchanges for a bearer token", func() {
		w := s.do(http.MethodPost, "/session/token", map[string]string{"proofToken": ceremony.Token})
		s.Require().Equal(http.StatusOK, w.Code)
		var resp struct {
			AccessToken string `json:"accessToken"`
			TokenType   string `json:"tokenType"`
		}
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.NotEmpty(resp.AccessToken)
		s.Equal("Bearer", resp.TokenType)
	})

	s.Run("knowing a verified user id mints nothing", func() {
		w := s.do(http.MethodPost, "/session/token", map[string]string{"userId": "grace"})
		s.Require().Equal(http.StatusBadRequest, w.Code)
		s.NotContains(w.Body.String(), "accessToken")
	})

	s.Run("tampered proof token is refused", func() {
		w := s.do(http.MethodPost, "/session/token", map[string]string{"proofToken": ceremony.Token + "x"})
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("revoked verification kills its proof token", func() {
		w := s.do(http.MethodPost, "/verification/ceremony", s.ceremonyBody("heidi"))
		s.Require().Equal(http.StatusCreated, w.Code)
		var issued struct {
			Token string `json:"token"`
		}
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &issued))

		w = s.do(http.MethodPost, "/verification/revoke", map[string]any{
			"userId": "heidi", "reason": "operator request",
		})
		s.Require().Equal(http.StatusNoContent, w.Code)

		w = s.do(http.MethodPost, "/session/token", map[string]string{"proofToken": issued.Token})
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("session token authorizes the self-service route", func() {
		w := s.do(http.MethodPost, "/session/token", map[string]string{"proofToken": ceremony.Token})
		s.Require().Equal(http.StatusOK, w.Code)
		var issued struct {
			AccessToken string `json:"accessToken"`
		}
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &issued))

		req := httptest.NewRequest(http.MethodGet, "/me/verification", nil)
		req.Header.Set("Authorization", "Bearer "+issued.AccessToken)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Require().Equal(http.StatusOK, rec.Code)

		var me struct {
			UserID   string `json:"userId"`
			Verified bool   `json:"verified"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &me))
		s.Equal("grace", me.UserID)
		s.True(me.Verified)
	})

	s.Run("missing bearer token is unauthorized", func() {
		w := s.do(http.MethodGet, "/me/verification", nil)
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

func (s *HandlerSuite) TestTrustScoreEndpoint() {
	w := s.do(http.MethodPost, "/verification/ceremony", s.ceremonyBody("holly"))
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/users/holly/trust-score", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var score models.TrustScore
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &score))
	s.Equal("holly", score.UserID)
	s.Equal(100, score.Verification)
	s.Equal(100, score.Final)
}

func (s *HandlerSuite) TestNodeEndpoints() {
	s.Run("onboard rejects bad coordinates", func() {
		w := s.do(http.MethodPost, "/nodes", map[string]any{
			"name": "Nowhere", "latitude": 120.0, "longitude": 0.0,
		})
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("list includes the seeded node", func() {
		w := s.do(http.MethodGet, "/nodes", nil)
		s.Require().Equal(http.StatusOK, w.Code)
		var nodes []models.VerificationNode
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &nodes))
		s.Require().Len(nodes, 1)
		s.Equal(s.nodeID, nodes[0].ID)
		s.NotEmpty(nodes[0].PublicKey)
	})

	s.Run("audit trail lists ceremony entries", func() {
		w := s.do(http.MethodPost, "/verification/ceremony", s.ceremonyBody("judy"))
		s.Require().Equal(http.StatusCreated, w.Code)

		w = s.do(http.MethodGet, "/users/judy/audit", nil)
		s.Require().Equal(http.StatusOK, w.Code)
		var entries []audit.Entry
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &entries))
		s.Require().Len(entries, 1)
		s.Equal(audit.ActionCeremonyCompleted, entries[0].Action)
	})

	s.Run("deactivated node refuses ceremonies", func() {
		w := s.do(http.MethodPost, "/nodes/"+s.nodeID+"/deactivate", nil)
		s.Require().Equal(http.StatusNoContent, w.Code)

		w = s.do(http.MethodPost, "/verification/ceremony", s.ceremonyBody("ivan"))
		s.Equal(http.StatusUnprocessableEntity, w.Code)
	})
}

func (s *HandlerSuite) TestHealthz() {
	w := s.do(http.MethodGet, "/healthz", nil)
	s.Equal(http.StatusOK, w.Code)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}
