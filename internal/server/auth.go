package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/habitlens/habitlens/internal/config"
)

// KeyStore resolves a hashed API key to its account.
type KeyStore interface {
	LookupAPIKey(ctx context.Context, keyHash string) (string, error)
}

// Authenticator validates API keys (Redis-cached) and applies a
// per-account request rate limit.
type Authenticator struct {
	keys  KeyStore
	redis *redis.Client
	cfg   config.RateLimitConfig
}

func NewAuthenticator(keys KeyStore, rdb *redis.Client, cfg config.RateLimitConfig) *Authenticator {
	return &Authenticator{keys: keys, redis: rdb, cfg: cfg}
}

func (a *Authenticator) ValidateAPIKey(ctx context.Context, apiKey string) (string, error) {
	if len(apiKey) < 12 {
		return "", errors.New("invalid API key format")
	}

	// Check cache first
	cacheKey := "apikey:" + apiKey[:12]
	if a.redis != nil {
		if accountID, err := a.redis.Get(ctx, cacheKey).Result(); err == nil {
			return accountID, nil
		}
	}

	hash := sha256.Sum256([]byte(apiKey))
	keyHash := hex.EncodeToString(hash[:])

	accountID, err := a.keys.LookupAPIKey(ctx, keyHash)
	if err != nil {
		return "", errors.New("invalid API key")
	}

	// Cache for 5 minutes
	if a.redis != nil {
		a.redis.Set(ctx, cacheKey, accountID, 5*time.Minute)
	}

	return accountID, nil
}

func (a *Authenticator) CheckRateLimit(accountID string) bool {
	if a.redis == nil {
		return true
	}
	ctx := context.Background()
	key := "ratelimit:" + accountID

	count, err := a.redis.Incr(ctx, key).Result()
	if err != nil {
		return true // Allow on error
	}
	if count == 1 {
		a.redis.Expire(ctx, key, time.Second)
	}
	return count <= int64(a.cfg.RequestsPerSecond)
}

// Middleware enforces the API key and rate limit on every route.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID, err := a.ValidateAPIKey(r.Context(), r.Header.Get("X-API-Key"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		if !a.CheckRateLimit(accountID) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
