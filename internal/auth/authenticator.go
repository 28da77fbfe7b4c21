// Package auth resolves ingest API keys to the agency they are scoped to.
//
// Resolution is layered: static keys from config grant unscoped access,
// then an in-memory cache, then Redis, where keys seeded by an agency
// onboarding flow map to that agency.
package auth

import (
	"context"
	"sync"
	"time"

	"fleet-insight/internal/config"
	"fleet-insight/internal/store"
)

// ScopeAll marks a key that may submit events for any agency.
const ScopeAll = "*"

type cacheEntry struct {
	agency    string
	expiresAt time.Time
}

type Authenticator struct {
	cache      sync.Map // apiKey -> cacheEntry
	redis      *store.RedisStore
	ttl        time.Duration
	staticKeys map[string]struct{}
}

func NewAuthenticator(cfg *config.Config, redis *store.RedisStore) *Authenticator {
	staticKeys := make(map[string]struct{}, len(cfg.ValidAPIKeys))
	for _, k := range cfg.ValidAPIKeys {
		if k != "" {
			staticKeys[k] = struct{}{}
		}
	}

	return &Authenticator{
		redis:      redis,
		ttl:        time.Duration(cfg.AuthCacheTTLSeconds) * time.Second,
		staticKeys: staticKeys,
	}
}

// Authorize resolves apiKey to its agency scope. Static config keys are
// unscoped (ScopeAll); Redis-backed keys are scoped to the agency they
// were issued for. ok is false for unknown keys.
func (a *Authenticator) Authorize(ctx context.Context, apiKey string) (agency string, ok bool) {
	if _, static := a.staticKeys[apiKey]; static {
		return ScopeAll, true
	}

	if raw, hit := a.cache.Load(apiKey); hit {
		entry := raw.(cacheEntry)
		if time.Now().Before(entry.expiresAt) {
			return entry.agency, true
		}
		a.cache.Delete(apiKey)
	}

	if a.redis == nil {
		return "", false
	}
	agency, err := a.redis.GetAPIKey(ctx, apiKey)
	if err != nil || agency == "" {
		return "", false
	}

	a.cache.Store(apiKey, cacheEntry{
		agency:    agency,
		expiresAt: time.Now().Add(a.ttl),
	})
	return agency, true
}
