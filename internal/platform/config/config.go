package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process level configuration for the verification service.
type Server struct {
	Addr string

	// TokenSecret protects proof bearer tokens (HMAC). Must be overridden
	// outside development.
	TokenSecret string

	// KeyPassphrase seals node private keys at rest.
	KeyPassphrase string

	// JWTSigningKey signs session tokens issued against a valid proof.
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// PostgresURL is optional; stores fall back to in-memory when empty.
	PostgresURL string

	Redis Redis

	// CeremonyTimeout bounds the whole ceremony transaction at the caller
	// boundary. Timeout means failed ceremony, no partial commit.
	CeremonyTimeout time.Duration
}

// Redis holds trust-score cache settings. An empty URL disables the cache.
type Redis struct {
	URL           string
	TrustScoreTTL time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("MEATSOCIAL_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	tokenSecret := os.Getenv("PROOF_TOKEN_SECRET")
	if tokenSecret == "" {
		// Use a default for development - should be overridden in production
		tokenSecret = "dev-proof-secret-change-in-production"
	}

	keyPassphrase := os.Getenv("NODE_KEY_PASSPHRASE")
	if keyPassphrase == "" {
		keyPassphrase = "dev-node-key-passphrase-change-in-production"
	}

	jwtKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtKey == "" {
		jwtKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          addr,
		TokenSecret:   tokenSecret,
		KeyPassphrase: keyPassphrase,
		JWTSigningKey: jwtKey,
		JWTIssuer:     envOr("JWT_ISSUER", "meatsocial"),
		JWTAudience:   envOr("JWT_AUDIENCE", "meatsocial-api"),
		PostgresURL:   os.Getenv("POSTGRES_URL"),
		Redis: Redis{
			URL:           os.Getenv("REDIS_URL"),
			TrustScoreTTL: durationOr("TRUST_SCORE_CACHE_TTL", 5*time.Minute),
		},
		CeremonyTimeout: durationOr("CEREMONY_TIMEOUT", 10*time.Second),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return fallback
}
