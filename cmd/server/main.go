package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/lib/pq"

	"github.com/dragoonbuster/MeatSocial/internal/audit"
	"github.com/dragoonbuster/MeatSocial/internal/noderegistry"
	"github.com/dragoonbuster/MeatSocial/internal/platform/config"
	"github.com/dragoonbuster/MeatSocial/internal/platform/httpserver"
	"github.com/dragoonbuster/MeatSocial/internal/platform/logger"
	"github.com/dragoonbuster/MeatSocial/internal/platform/metrics"
	redisplatform "github.com/dragoonbuster/MeatSocial/internal/platform/redis"
	"github.com/dragoonbuster/MeatSocial/internal/session"
	httptransport "github.com/dragoonbuster/MeatSocial/internal/transport/http"
	"github.com/dragoonbuster/MeatSocial/internal/trust"
	"github.com/dragoonbuster/MeatSocial/internal/verification/proof"
	"github.com/dragoonbuster/MeatSocial/internal/verification/service"
	"github.com/dragoonbuster/MeatSocial/internal/verification/store"
	"github.com/dragoonbuster/MeatSocial/internal/verification/token"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	checks := map[string]httptransport.HealthChecker{}

	var (
		nodeStore  noderegistry.Store
		auditStore audit.Store
		eventStore store.Store
		stats      trust.StatsProvider
	)
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Fatalf("postgres open failed: %v", err)
		}
		if err := db.Ping(); err != nil {
			log.Fatalf("postgres ping failed: %v", err)
		}
		defer db.Close()

		pgAudits := audit.NewPostgres(db)
		auditStore = pgAudits
		nodeStore = noderegistry.NewPostgres(db)
		eventStore = store.NewPostgres(db, pgAudits)
		stats = trust.NewPostgresStats(db)
		checks["postgres"] = dbHealth{db}
		log.Printf("using postgres-backed stores")
	} else {
		memNodes := noderegistry.NewInMemoryStore()
		memAudits := audit.NewInMemoryStore()
		nodeStore = memNodes
		auditStore = memAudits
		eventStore = store.NewInMemoryStore(memNodes, memAudits)
		stats = trust.NewInMemoryStats()
		log.Printf("using in-memory stores; state is lost on restart")
	}

	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		log.Fatalf("redis setup failed: %v", err)
	}

	publisher := audit.NewPublisher(auditStore)
	registry := noderegistry.NewService(nodeStore, publisher, cfg.KeyPassphrase, log)
	engine := proof.NewEngine()
	orchestrator := service.NewService(eventStore, registry, engine, publisher, m, log)
	codec := token.NewCodec(cfg.TokenSecret)
	scorer := trust.NewScorer(orchestrator, stats, engine,
		trust.NewCache(redisClient, cfg.Redis.TrustScoreTTL), m, log)
	jwtService := session.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	if redisClient != nil {
		checks["redis"] = redisClient
	}

	router := httptransport.NewRouter(log, checks,
		httptransport.NewVerificationHandler(orchestrator, codec, m, log, cfg.CeremonyTimeout),
		httptransport.NewNodeHandler(registry, publisher, log),
		httptransport.NewTrustHandler(scorer, log),
		httptransport.NewSessionHandler(orchestrator, codec, jwtService, jwtService, time.Hour, log),
	)

	srv := httpserver.New(cfg.Addr, router)

	log.Printf("starting verification service on %s", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}

type dbHealth struct{ db *sql.DB }

func (h dbHealth) Health(ctx context.Context) error { return h.db.PingContext(ctx) }
