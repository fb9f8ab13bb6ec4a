package fbauth

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// DefaultJWKSURL is where Google publishes the keys that sign Firebase ID tokens.
const DefaultJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// JWKSConfig configures a JWKSKeySource.
type JWKSConfig struct {
	URL         string
	MinRefresh  time.Duration
	HTTPTimeout time.Duration
}

// JWKSKeySource serves the key set published at a JWKS endpoint. Fetching and
// refreshing is delegated to a jwk.Cache; each call converts the cached set
// into a PEM KeySet so verification stays independent of the transport.
type JWKSKeySource struct {
	cfg   JWKSConfig
	cache *jwk.Cache
}

// NewJWKSKeySource registers cfg.URL with a background-refreshing cache.
// ctx bounds the lifetime of the refresh goroutine.
func NewJWKSKeySource(ctx context.Context, cfg JWKSConfig) (*JWKSKeySource, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultJWKSURL
	}
	if cfg.MinRefresh <= 0 {
		cfg.MinRefresh = defaultMinRefresh
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}
	cache := jwk.NewCache(ctx)
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
		},
	}
	if err := cache.Register(
		cfg.URL,
		jwk.WithMinRefreshInterval(cfg.MinRefresh),
		jwk.WithHTTPClient(httpClient),
	); err != nil {
		return nil, fmt.Errorf("register jwks %q: %w", cfg.URL, err)
	}
	return &JWKSKeySource{cfg: cfg, cache: cache}, nil
}

// Refresh forces a fetch of the key set, for warming up at startup.
func (s *JWKSKeySource) Refresh(ctx context.Context) error {
	refreshCtx, cancel := context.WithTimeout(ctx, s.cfg.HTTPTimeout)
	defer cancel()
	if _, err := s.cache.Refresh(refreshCtx, s.cfg.URL); err != nil {
		return newError(ErrCodeKeysUnavailable, err)
	}
	return nil
}

// KeySet returns the RSA keys of the cached JWKS, keyed by kid.
// Keys without a kid or of another type are skipped.
func (s *JWKSKeySource) KeySet(ctx context.Context) (KeySet, error) {
	set, err := s.cache.Get(ctx, s.cfg.URL)
	if err != nil {
		return nil, newError(ErrCodeKeysUnavailable, err)
	}
	keys := make(KeySet, set.Len())
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok || key.KeyID() == "" {
			continue
		}
		pemText, err := publicKeyPEM(key)
		if err != nil {
			continue
		}
		keys[key.KeyID()] = pemText
	}
	if len(keys) == 0 {
		return nil, newError(ErrCodeKeysUnavailable, errors.New("jwks contains no usable RSA keys"))
	}
	return keys, nil
}

func publicKeyPEM(key jwk.Key) (string, error) {
	var raw any
	if err := key.Raw(&raw); err != nil {
		return "", err
	}
	pub, ok := raw.(*rsa.PublicKey)
	if !ok {
		return "", fmt.Errorf("key %q is %T, not RSA public", key.KeyID(), raw)
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}
