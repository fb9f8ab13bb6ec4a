package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"

	fbauth "github.com/bionicotaku/lingo-utils-fbauth"
	"github.com/bionicotaku/lingo-utils-fbauth/internal/envfile"
)

func main() {
	envDir := pflag.String("env-dir", ".", "Directory searched for .env files")
	projectID := pflag.String("project", "", "Expected Firebase project id (env FIREBASE_PROJECT_ID)")
	keysFile := pflag.String("keys-file", "", "JSON file of kid -> PEM public keys (overrides FIREBASE_AUTH_PUBLIC_KEYS)")
	jwksURL := pflag.String("jwks-url", "", "JWKS URL; defaults to Google's securetoken keys when no static keys are set")
	token := pflag.String("token", "", "ID token to verify (env FIREBASE_ID_TOKEN)")
	email := pflag.String("email", "", "Sign in with this account when no token is given (env FIREBASE_TEST_EMAIL)")
	password := pflag.String("password", "", "Password for --email (env FIREBASE_TEST_PASSWORD)")
	timeout := pflag.Duration("timeout", 10*time.Second, "Timeout for key fetch and sign-in")
	pflag.Parse()

	res, err := envfile.LoadFirst(*envDir)
	if err != nil {
		log.Printf("warning: load env file: %v", err)
	} else if res.FromExample() {
		log.Printf("warning: using %s; copy it to .env and supply real values", envfile.ExampleFile)
	}

	cfg, err := fbauth.ConfigFromEnv(os.LookupEnv)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *projectID != "" {
		cfg.ProjectID = *projectID
	}
	if *keysFile != "" {
		raw, err := os.ReadFile(*keysFile)
		if err != nil {
			log.Fatalf("read keys file: %v", err)
		}
		if cfg.PublicKeys, err = fbauth.ParseKeySetJSON(raw); err != nil {
			log.Fatalf("parse keys file: %v", err)
		}
	}
	if *jwksURL != "" {
		cfg.JWKSURL = *jwksURL
	}
	if len(cfg.PublicKeys) == 0 && cfg.JWKSURL == "" {
		cfg.JWKSURL = fbauth.DefaultJWKSURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *token == "" {
		*token = os.Getenv("FIREBASE_ID_TOKEN")
	}
	if *token == "" {
		creds := fbauth.Credentials{
			Email:    firstNonEmpty(*email, os.Getenv("FIREBASE_TEST_EMAIL")),
			Password: firstNonEmpty(*password, os.Getenv("FIREBASE_TEST_PASSWORD")),
		}
		if creds.Email == "" {
			pflag.Usage()
			log.Fatal("a token or an email/password pair is required")
		}
		provider := fbauth.NewProvider(fbauth.ProviderConfig{APIKey: cfg.Client.APIKey})
		tok, err := provider.Token(ctx, creds)
		if err != nil {
			log.Fatalf("failed to obtain ID token via provider: %v (check %s)", err, fbauth.EnvAPIKey)
		}
		*token = tok
		log.Println("acquired Firebase ID token via provider")
	}

	keys, err := cfg.KeySource(ctx)
	if err != nil {
		log.Fatalf("create key source: %v", err)
	}
	if jwks, ok := keys.(*fbauth.JWKSKeySource); ok {
		if err := jwks.Refresh(ctx); err != nil {
			log.Printf("warmup warning: %v", err)
		}
	}
	verifier, err := fbauth.NewVerifier(fbauth.VerifierConfig{
		ProjectID:      cfg.ProjectID,
		Keys:           keys,
		RequireProject: cfg.RequireProject,
	})
	if err != nil {
		log.Fatalf("create verifier: %v", err)
	}

	claims, err := verifier.Verify(ctx, *token)
	if err != nil {
		log.Fatalf("verification failed [%s]: %v", fbauth.CodeOf(err), err)
	}

	printClaims(claims)
}

func printClaims(claims fbauth.Claims) {
	fmt.Println("== Firebase ID Token Verified ==")
	fmt.Printf("subject      : %s\n", claims.Subject())
	fmt.Printf("email        : %s\n", claims.Email())
	fmt.Printf("name         : %s\n", claims.Name())
	fmt.Printf("issuer       : %s\n", claims.Issuer())
	fmt.Printf("audience     : %s\n", claims.Audience())
	if exp, ok := claims.ExpiresAt(); ok {
		fmt.Printf("expires_at   : %s\n", exp.Format(time.RFC3339))
	}

	keys := make([]string, 0, len(claims))
	for k := range claims {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Println("claims:")
	for _, k := range keys {
		fmt.Printf("  %s: %v\n", k, claims[k])
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
