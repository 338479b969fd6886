package providers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/edgard/geonotify/internal/database"
	"github.com/edgard/geonotify/internal/reporter"
)

// TokenStore is the subset of database.Store used for push tokens.
type TokenStore interface {
	GetPushToken(ctx context.Context) (*database.PushToken, error)
}

const pushTokenKey = "device"

// PushTokenProvider reads the device push token from the store, falling back
// to a configured token. Lookups are cached for ttl.
type PushTokenProvider struct {
	store    TokenStore
	fallback string
	cache    *expirable.LRU[string, string]
	logger   *slog.Logger
}

var _ reporter.PushTokenProvider = (*PushTokenProvider)(nil)

// NewPushTokenProvider creates a provider. A zero ttl disables caching.
func NewPushTokenProvider(store TokenStore, fallback string, ttl time.Duration, logger *slog.Logger) *PushTokenProvider {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p := &PushTokenProvider{
		store:    store,
		fallback: fallback,
		logger:   logger.With("component", "push_token"),
	}
	if ttl > 0 {
		p.cache = expirable.NewLRU[string, string](1, nil, ttl)
	}
	return p
}

// Token implements reporter.PushTokenProvider. It returns "" when no token is
// known.
func (p *PushTokenProvider) Token(ctx context.Context) (string, error) {
	if p.cache != nil {
		if token, ok := p.cache.Get(pushTokenKey); ok {
			return token, nil
		}
	}

	token := p.fallback
	stored, err := p.store.GetPushToken(ctx)
	if err != nil {
		if token == "" {
			return "", fmt.Errorf("failed to read push token: %w", err)
		}
		p.logger.WarnContext(ctx, "Failed to read stored push token, using configured token", "error", err)
	} else if stored != nil && stored.Token != "" {
		token = stored.Token
	}

	if token != "" && p.cache != nil {
		p.cache.Add(pushTokenKey, token)
	}
	return token, nil
}

// Invalidate drops the cached token so the next call reads the store.
func (p *PushTokenProvider) Invalidate() {
	if p.cache != nil {
		p.cache.Purge()
	}
}
