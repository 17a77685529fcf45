// Package facta is the adapter for the Facta Financeira webservice: bearer
// token lifecycle plus the contracting and proposal-status endpoints.
package facta

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/upclt/consignado-api/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// credential is the cached partner token. Replaced wholesale on refresh,
// never mutated in place.
type credential struct {
	token     string
	expiresAt time.Time
}

// TokenCache holds the single process-wide Facta credential and refreshes it
// from GET /gera-token on miss or expiry. Concurrent misses are coalesced
// into one refresh via singleflight; correctness does not depend on that —
// the last successful refresh wins and any caller holding the previous token
// still holds a valid one.
type TokenCache struct {
	httpClient *http.Client
	baseURL    string
	authBasic  string
	lifetime   time.Duration
	logger     *zap.Logger

	cur   atomic.Pointer[credential]
	group singleflight.Group
}

// NewTokenCache creates the token cache. lifetime should already have the
// safety margin subtracted from the partner's stated token TTL, so a cached
// token is never used close enough to expiry to die mid-request.
func NewTokenCache(httpClient *http.Client, baseURL, authBasic string, ttl, safety time.Duration, logger *zap.Logger) *TokenCache {
	lifetime := ttl - safety
	if lifetime <= 0 {
		lifetime = ttl
	}
	return &TokenCache{
		httpClient: httpClient,
		baseURL:    baseURL,
		authBasic:  authBasic,
		lifetime:   lifetime,
		logger:     logger,
	}
}

// GetToken returns a valid bearer token, refreshing it if the cached one
// expired. Side-effect-free on cache hit. No retry here — retry policy
// belongs to the caller.
func (t *TokenCache) GetToken(ctx context.Context) (string, error) {
	if c := t.cur.Load(); c != nil && time.Now().Before(c.expiresAt) {
		return c.token, nil
	}

	v, err, _ := t.group.Do("facta-token", func() (any, error) {
		// Another flight may have refreshed while we waited for the lock.
		if c := t.cur.Load(); c != nil && time.Now().Before(c.expiresAt) {
			return c.token, nil
		}
		return t.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (t *TokenCache) refresh(ctx context.Context) (string, error) {
	if t.authBasic == "" {
		return "", &domain.ErrConfiguration{Key: "FACTA_AUTH_BASIC"}
	}

	url := fmt.Sprintf("%s/gera-token", t.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Basic %s", t.authBasic))

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.logger.Error("facta: token request failed", zap.Error(err))
		return "", &domain.ErrExternalService{Service: "facta/gera-token", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.ErrExternalService{Service: "facta/gera-token", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.logger.Warn("facta: token endpoint non-2xx",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return "", &domain.ErrUpstreamAuth{Message: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	var tr domain.TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", &domain.ErrExternalService{Service: "facta/gera-token", Err: err}
	}
	if tr.Erro || tr.Token == "" {
		t.logger.Warn("facta: token refused", zap.String("mensagem", tr.Mensagem))
		return "", &domain.ErrUpstreamAuth{Message: tr.Mensagem}
	}

	t.cur.Store(&credential{
		token:     tr.Token,
		expiresAt: time.Now().Add(t.lifetime),
	})
	t.logger.Debug("facta: token refreshed", zap.Duration("lifetime", t.lifetime))

	return tr.Token, nil
}
