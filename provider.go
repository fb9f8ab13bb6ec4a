package fbauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// Credentials identify a Firebase email/password account.
type Credentials struct {
	Email    string
	Password string
}

// TokenFactory allows callers to override how Firebase ID tokens are minted.
type TokenFactory func(context.Context, Credentials) (oauth2.TokenSource, error)

// ProviderConfig defines how tokens are minted.
type ProviderConfig struct {
	// APIKey is the Firebase web API key used by the default factory.
	APIKey       string
	TokenFactory TokenFactory
}

// Provider mints Firebase ID tokens for test users and tooling.
// It caches one token source per account so tokens are reused until they expire.
type Provider struct {
	mu      sync.RWMutex
	factory TokenFactory
	entries map[string]*tokenSourceEntry
}

type tokenSourceEntry struct {
	source oauth2.TokenSource
}

// NewProvider constructs a Provider.
func NewProvider(cfg ProviderConfig) *Provider {
	factory := cfg.TokenFactory
	if factory == nil {
		apiKey := cfg.APIKey
		factory = func(ctx context.Context, creds Credentials) (oauth2.TokenSource, error) {
			return passwordTokenSource(ctx, apiKey, creds)
		}
	}
	return &Provider{
		factory: factory,
		entries: make(map[string]*tokenSourceEntry),
	}
}

// Token returns an ID token for the account identified by creds.
func (p *Provider) Token(ctx context.Context, creds Credentials) (string, error) {
	key := strings.ToLower(strings.TrimSpace(creds.Email))
	if key == "" {
		return "", errors.New("email is required")
	}

	entry, err := p.getOrCreate(ctx, key, creds)
	if err != nil {
		return "", err
	}

	tok, err := entry.source.Token()
	if err != nil {
		return "", fmt.Errorf("fetch token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("empty id token returned")
	}
	return tok.AccessToken, nil
}

func (p *Provider) getOrCreate(ctx context.Context, key string, creds Credentials) (*tokenSourceEntry, error) {
	p.mu.RLock()
	entry, ok := p.entries[key]
	p.mu.RUnlock()
	if ok {
		return entry, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok = p.entries[key]; ok {
		return entry, nil
	}

	ts, err := p.factory(persistentContext(ctx), creds)
	if err != nil {
		return nil, err
	}
	entry = &tokenSourceEntry{source: oauth2.ReuseTokenSource(nil, ts)}
	p.entries[key] = entry
	return entry, nil
}

type signInTokenSource struct {
	ctx   context.Context
	svc   *identitytoolkit.Service
	creds Credentials
}

func passwordTokenSource(ctx context.Context, apiKey string, creds Credentials) (oauth2.TokenSource, error) {
	if apiKey == "" {
		return nil, errors.New("firebase api key is required")
	}
	if creds.Password == "" {
		return nil, errors.New("password is required")
	}
	svc, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("identity toolkit client: %w", err)
	}
	return &signInTokenSource{ctx: ctx, svc: svc, creds: creds}, nil
}

// Token signs in with email and password and returns the resulting ID token.
func (s *signInTokenSource) Token() (*oauth2.Token, error) {
	resp, err := s.svc.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             s.creds.Email,
		Password:          s.creds.Password,
		ReturnSecureToken: true,
	}).Context(s.ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sign in %s: %w", s.creds.Email, err)
	}
	return idTokenToOAuth2(resp.IdToken)
}

// idTokenToOAuth2 wraps an ID token, taking the expiry from its own "exp" claim.
func idTokenToOAuth2(idToken string) (*oauth2.Token, error) {
	parts := strings.Split(idToken, ".")
	if len(parts) != 3 {
		return nil, newError(ErrCodeMalformedToken, fmt.Errorf("token has %d segments, want 3", len(parts)))
	}
	claims, err := decodeClaims(parts[1])
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{AccessToken: idToken, TokenType: "Bearer"}
	if exp, ok := claims.ExpiresAt(); ok {
		tok.Expiry = exp
	}
	return tok, nil
}

func persistentContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	if _, ok := ctx.(*detachedContext); ok {
		return ctx
	}
	return &detachedContext{parent: ctx}
}

type detachedContext struct {
	parent context.Context
}

func (d *detachedContext) Deadline() (time.Time, bool) {
	return time.Time{}, false
}

func (d *detachedContext) Done() <-chan struct{} {
	return nil
}

func (d *detachedContext) Err() error {
	return nil
}

func (d *detachedContext) Value(key any) any {
	if d.parent == nil {
		return nil
	}
	return d.parent.Value(key)
}
