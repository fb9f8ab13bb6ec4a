package fbauth

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestConfigFromEnv(t *testing.T) {
	key, pubPEM := newRSAKey(t)
	keysJSON, err := json.Marshal(map[string]string{"kid1": pubPEM})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	cfg, err := ConfigFromEnv(envLookup(map[string]string{
		EnvProjectID:     "proj1",
		EnvPublicKeys:    string(keysJSON),
		EnvAllowMockAuth: "true",
		EnvAPIKey:        "api-key",
		EnvAppID:         "app-id",
	}))
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.ProjectID != "proj1" || !cfg.AllowMockAuth {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.MinRefresh != defaultMinRefresh || cfg.HTTPTimeout != defaultHTTPTimeout {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if !cfg.Client.Configured() {
		t.Fatalf("expected client config to be complete: %+v", cfg.Client)
	}

	v, err := cfg.NewVerifier(context.Background())
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	token := sign(t, key, "kid1", validClaims(time.Now().Add(time.Hour).Unix()))
	if _, err := v.Verify(context.Background(), token); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestConfigFromEnv_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"bad keys json":        {EnvPublicKeys: "{"},
		"bad require flag":     {EnvRequireProject: "maybe"},
		"require without proj": {EnvRequireProject: "true"},
		"bad project id":       {EnvProjectID: "a/b"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ConfigFromEnv(envLookup(env)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestConfig_NoKeysRejectsEverything(t *testing.T) {
	cfg, err := ConfigFromEnv(envLookup(map[string]string{EnvAllowMockAuth: "1"}))
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.AllowMockAuth {
		t.Fatalf("only the literal \"true\" enables mock auth")
	}
	v, err := cfg.NewVerifier(context.Background())
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	key, _ := newRSAKey(t)
	token := sign(t, key, "kid1", validClaims(time.Now().Add(time.Hour).Unix()))
	_, err = v.Verify(context.Background(), token)
	expectCode(t, err, ErrCodeConfigurationMissing)
}

func TestConfig_Check(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	Config{AllowMockAuth: true}.Check(logger)

	out := buf.String()
	for _, want := range []string{EnvPublicKeys, EnvProjectID, EnvAllowMockAuth} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected warning mentioning %s, got:\n%s", want, out)
		}
	}
}
