package fbauth

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func TestFirebaseIntegration(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("RUN_INTEGRATION_TESTS not set to true")
	}

	projectID := strings.TrimSpace(os.Getenv(EnvProjectID))
	if projectID == "" {
		t.Fatalf("%s environment variable required", EnvProjectID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	source, err := NewJWKSKeySource(ctx, JWKSConfig{URL: DefaultJWKSURL, HTTPTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewJWKSKeySource: %v", err)
	}
	if err := source.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	keys, err := source.KeySet(ctx)
	if err != nil {
		t.Fatalf("KeySet: %v", err)
	}
	if len(keys) == 0 {
		t.Fatal("published key set is empty")
	}

	v, err := NewVerifier(VerifierConfig{ProjectID: projectID, Keys: source, RequireProject: true})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	token := strings.TrimSpace(os.Getenv("FIREBASE_TEST_TOKEN"))
	if token == "" {
		apiKey := strings.TrimSpace(os.Getenv(EnvAPIKey))
		email := strings.TrimSpace(os.Getenv("FIREBASE_TEST_EMAIL"))
		password := os.Getenv("FIREBASE_TEST_PASSWORD")
		if apiKey == "" || email == "" || password == "" {
			return
		}
		token, err = NewProvider(ProviderConfig{APIKey: apiKey}).Token(ctx, Credentials{Email: email, Password: password})
		if err != nil {
			t.Fatalf("mint token: %v", err)
		}
	}

	claims, err := v.Verify(ctx, token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject() == "" {
		t.Fatal("claims subject empty")
	}
}
