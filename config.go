package fbauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMinRefresh  = 5 * time.Minute
	defaultHTTPTimeout = 5 * time.Second
)

// Environment variables read by ConfigFromEnv.
const (
	EnvProjectID         = "FIREBASE_PROJECT_ID"
	EnvPublicKeys        = "FIREBASE_AUTH_PUBLIC_KEYS"
	EnvJWKSURL           = "FIREBASE_JWKS_URL"
	EnvRequireProject    = "FIREBASE_REQUIRE_PROJECT"
	EnvAllowMockAuth     = "ALLOW_MOCK_AUTH"
	EnvAPIKey            = "FIREBASE_API_KEY"
	EnvAuthDomain        = "FIREBASE_AUTH_DOMAIN"
	EnvAppID             = "FIREBASE_APP_ID"
	EnvMeasurementID     = "FIREBASE_MEASUREMENT_ID"
	EnvMessagingSenderID = "FIREBASE_MESSAGING_SENDER_ID"
)

// Config carries everything needed to authenticate Firebase users.
type Config struct {
	ProjectID string
	// PublicKeys, when set, is used as a static key set.
	PublicKeys KeySet
	// JWKSURL, when set and PublicKeys is empty, enables a refreshing JWKS source.
	JWKSURL        string
	MinRefresh     time.Duration
	HTTPTimeout    time.Duration
	RequireProject bool
	AllowMockAuth  bool
	Client         ClientConfig
}

// ClientConfig is the public Firebase web configuration handed to browsers.
type ClientConfig struct {
	APIKey            string `json:"apiKey"`
	AuthDomain        string `json:"authDomain"`
	ProjectID         string `json:"projectId"`
	AppID             string `json:"appId"`
	MeasurementID     string `json:"measurementId"`
	MessagingSenderID string `json:"messagingSenderId"`
}

// Configured reports whether the browser SDK can be initialised.
func (c ClientConfig) Configured() bool {
	return c.APIKey != "" && c.ProjectID != "" && c.AppID != ""
}

// ConfigFromEnv reads Config using lookup, typically os.LookupEnv.
func ConfigFromEnv(lookup func(string) (string, bool)) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg := Config{
		ProjectID: get(EnvProjectID),
		JWKSURL:   get(EnvJWKSURL),
		Client: ClientConfig{
			APIKey:            get(EnvAPIKey),
			AuthDomain:        get(EnvAuthDomain),
			ProjectID:         get(EnvProjectID),
			AppID:             get(EnvAppID),
			MeasurementID:     get(EnvMeasurementID),
			MessagingSenderID: get(EnvMessagingSenderID),
		},
	}
	if raw := get(EnvPublicKeys); raw != "" {
		keys, err := ParseKeySetJSON([]byte(raw))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvPublicKeys, err)
		}
		cfg.PublicKeys = keys
	}
	var err error
	if cfg.RequireProject, err = parseBool(get(EnvRequireProject)); err != nil {
		return Config{}, fmt.Errorf("%s: %w", EnvRequireProject, err)
	}
	// Only the literal "true" enables mocks.
	cfg.AllowMockAuth = get(EnvAllowMockAuth) == "true"

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

// normalize sets default values for optional fields.
func (c *Config) normalize() {
	if c.MinRefresh <= 0 {
		c.MinRefresh = defaultMinRefresh
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = defaultHTTPTimeout
	}
}

// validate ensures the configuration is usable.
func (c Config) validate() error {
	switch {
	case c.RequireProject && c.ProjectID == "":
		return errors.New("project id is required when issuer checks are mandatory")
	case c.ProjectID != "" && strings.ContainsAny(c.ProjectID, "/ "):
		return fmt.Errorf("invalid project id %q", c.ProjectID)
	}
	return nil
}

// KeySource returns the key source described by the configuration. With no
// keys configured it returns an empty KeySet so every verification reports
// ErrCodeConfigurationMissing.
func (c Config) KeySource(ctx context.Context) (KeySource, error) {
	if len(c.PublicKeys) > 0 {
		return c.PublicKeys, nil
	}
	if c.JWKSURL != "" {
		return NewJWKSKeySource(ctx, JWKSConfig{
			URL:         c.JWKSURL,
			MinRefresh:  c.MinRefresh,
			HTTPTimeout: c.HTTPTimeout,
		})
	}
	return KeySet{}, nil
}

// NewVerifier builds a Verifier from the configuration.
func (c Config) NewVerifier(ctx context.Context) (*Verifier, error) {
	keys, err := c.KeySource(ctx)
	if err != nil {
		return nil, err
	}
	return NewVerifier(VerifierConfig{
		ProjectID:      c.ProjectID,
		Keys:           keys,
		RequireProject: c.RequireProject,
	})
}

// Check logs configuration problems. Call it once at startup.
func (c Config) Check(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(c.PublicKeys) == 0 && c.JWKSURL == "" {
		logger.Warn("no Firebase public keys configured; all bearer tokens will be rejected",
			"env", EnvPublicKeys)
	}
	if c.ProjectID == "" {
		logger.Warn("Firebase project id not set; issuer and audience are not enforced",
			"env", EnvProjectID)
	}
	if c.AllowMockAuth {
		logger.Warn("mock authentication enabled; never enable this in production",
			"env", EnvAllowMockAuth)
	}
	if !c.Client.Configured() {
		logger.Info("Firebase web client config incomplete; browser sign-in disabled")
	}
}
