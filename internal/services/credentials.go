package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Cyvadra/stockwatch/internal/logger"
	"github.com/Cyvadra/stockwatch/provider"
	"golang.org/x/sync/singleflight"
)

// DefaultTokenTTL is how long a provider token is trusted without a refresh
const DefaultTokenTTL = time.Hour

// CredentialCache holds the provider session token. Concurrent refreshes
// collapse into a single login.
type CredentialCache struct {
	provider    provider.Provider
	credentials provider.Credentials
	ttl         time.Duration
	now         func() time.Time
	logger      *slog.Logger

	mu         sync.RWMutex
	token      string
	obtainedAt time.Time

	group singleflight.Group
}

// NewCredentialCache creates a new credential cache
func NewCredentialCache(p provider.Provider, credentials provider.Credentials, ttl time.Duration, log *slog.Logger) *CredentialCache {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &CredentialCache{
		provider:    p,
		credentials: credentials,
		ttl:         ttl,
		now:         time.Now,
		logger:      logger.OrDefault(log),
	}
}

// SetClock replaces the time source
func (c *CredentialCache) SetClock(now func() time.Time) {
	c.now = now
}

// Token returns a usable token, logging in when the cached one is absent,
// older than the TTL, or forceRefresh is set.
func (c *CredentialCache) Token(ctx context.Context, forceRefresh bool) (string, error) {
	if !forceRefresh {
		if token, ok := c.cached(); ok {
			return token, nil
		}
	}

	key := "login"
	if forceRefresh {
		key = "refresh"
	}
	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		if !forceRefresh {
			if token, ok := c.cached(); ok {
				return token, nil
			}
		}
		return c.login(ctx)
	})
	if err != nil {
		return "", err
	}
	if shared {
		c.logger.Debug("joined in-flight provider login")
	}
	return v.(string), nil
}

// Invalidate drops the cached token
func (c *CredentialCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.obtainedAt = time.Time{}
}

func (c *CredentialCache) cached() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" || c.now().Sub(c.obtainedAt) >= c.ttl {
		return "", false
	}
	return c.token, true
}

func (c *CredentialCache) login(ctx context.Context) (string, error) {
	creds := c.credentials
	token, err := c.provider.Login(ctx, &creds)
	if err != nil {
		c.Invalidate()
		providerLoginsTotal.WithLabelValues("failed").Inc()
		c.logger.Error("provider login failed", "provider", c.provider.Name(), "error", err)
		return "", &AuthError{Err: err}
	}

	c.mu.Lock()
	c.token = token
	c.obtainedAt = c.now()
	c.mu.Unlock()

	providerLoginsTotal.WithLabelValues("ok").Inc()
	c.logger.Info("provider login succeeded", "provider", c.provider.Name())
	return token, nil
}
