package fbauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const firebaseIssuerPrefix = "https://securetoken.google.com/"

// Expectation scopes acceptance to one identity provider instance.
// Empty fields are not checked.
type Expectation struct {
	Issuer   string
	Audience string
}

// ProjectExpectation returns the issuer and audience Firebase uses for projectID.
// An empty projectID yields an Expectation that checks neither.
func ProjectExpectation(projectID string) Expectation {
	if projectID == "" {
		return Expectation{}
	}
	return Expectation{
		Issuer:   firebaseIssuerPrefix + projectID,
		Audience: projectID,
	}
}

type tokenHeader struct {
	Kid string `json:"kid"`
	Alg string `json:"alg"`
}

// Verify checks token against keys and expected at the current time.
func Verify(token string, keys KeySet, expected Expectation) (Claims, error) {
	return VerifyAt(token, keys, expected, time.Now())
}

// VerifyAt checks token against keys and expected as of now. Checks run in a
// fixed order and the first failure is returned as an *Error.
func VerifyAt(token string, keys KeySet, expected Expectation, now time.Time) (Claims, error) {
	if token == "" {
		return nil, newError(ErrCodeMalformedToken, errors.New("token is empty"))
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, newError(ErrCodeMalformedToken, fmt.Errorf("token has %d segments, want 3", len(parts)))
	}
	headerSeg, payloadSeg, signatureSeg := parts[0], parts[1], parts[2]

	headerJSON, err := DecodeSegment(headerSeg)
	if err != nil {
		return nil, newError(ErrCodeMalformedToken, fmt.Errorf("decode header: %w", err))
	}
	var header tokenHeader
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, newError(ErrCodeMalformedToken, fmt.Errorf("parse header: %w", err))
	}
	if header.Kid == "" {
		return nil, newError(ErrCodeMissingKeyID, nil)
	}

	claims, err := decodeClaims(payloadSeg)
	if err != nil {
		return nil, err
	}

	signature, err := DecodeSegment(signatureSeg)
	if err != nil {
		return nil, newError(ErrCodeMalformedToken, fmt.Errorf("decode signature: %w", err))
	}

	if len(keys) == 0 {
		return nil, newError(ErrCodeConfigurationMissing, nil)
	}
	pub, err := keys.publicKey(header.Kid)
	if err != nil {
		return nil, err
	}

	if err := jwt.SigningMethodRS256.Verify(headerSeg+"."+payloadSeg, signature, pub); err != nil {
		return nil, newError(ErrCodeInvalidSignature, err)
	}

	if expected.Issuer != "" && claims.Issuer() != expected.Issuer {
		return nil, newError(ErrCodeIssuerMismatch, fmt.Errorf("got %q, want %q", claims.Issuer(), expected.Issuer))
	}
	if expected.Audience != "" && claims.Audience() != expected.Audience {
		return nil, newError(ErrCodeAudienceMismatch, fmt.Errorf("got %q, want %q", claims.Audience(), expected.Audience))
	}

	if _, present := claims["exp"]; present {
		exp, ok := claims.number("exp")
		if !ok {
			return nil, newError(ErrCodeMalformedToken, errors.New(`"exp" is not numeric`))
		}
		if float64(now.UnixMilli()) >= exp*1000 {
			return nil, newError(ErrCodeTokenExpired, fmt.Errorf("expired at %d", int64(exp)))
		}
	}

	return claims, nil
}

// decodeClaims decodes a payload segment into a JSON object.
func decodeClaims(payloadSeg string) (Claims, error) {
	payloadJSON, err := DecodeSegment(payloadSeg)
	if err != nil {
		return nil, newError(ErrCodeMalformedToken, fmt.Errorf("decode payload: %w", err))
	}
	payloadJSON = bytes.TrimSpace(payloadJSON)
	if len(payloadJSON) == 0 || payloadJSON[0] != '{' {
		return nil, newError(ErrCodeMalformedToken, errors.New("payload is not a JSON object"))
	}
	var claims Claims
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return nil, newError(ErrCodeMalformedToken, fmt.Errorf("parse payload: %w", err))
	}
	return claims, nil
}

// VerifierConfig describes the keys and project a Verifier trusts.
type VerifierConfig struct {
	// ProjectID enables issuer and audience checks when set.
	ProjectID string
	Keys      KeySource
	// RequireProject rejects construction without a ProjectID instead of
	// accepting correctly signed tokens from any issuer.
	RequireProject bool
	Now            func() time.Time
}

// Verifier binds a key source and expectation so handlers only pass tokens.
// It is safe for concurrent use.
type Verifier struct {
	keys     KeySource
	expected Expectation
	now      func() time.Time
}

// NewVerifier builds a verifier from cfg.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if cfg.Keys == nil {
		return nil, newError(ErrCodeConfigurationMissing, errors.New("key source is required"))
	}
	if cfg.RequireProject && cfg.ProjectID == "" {
		return nil, newError(ErrCodeConfigurationMissing, errors.New("project id is required"))
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Verifier{
		keys:     cfg.Keys,
		expected: ProjectExpectation(cfg.ProjectID),
		now:      now,
	}, nil
}

// Expectation returns the issuer and audience the verifier enforces.
func (v *Verifier) Expectation() Expectation {
	return v.expected
}

// Verify resolves the current key set and verifies token against it.
func (v *Verifier) Verify(ctx context.Context, token string) (Claims, error) {
	keys, err := v.keys.KeySet(ctx)
	if err != nil {
		var coded *Error
		if errors.As(err, &coded) {
			return nil, err
		}
		return nil, newError(ErrCodeKeysUnavailable, err)
	}
	return VerifyAt(token, keys, v.expected, v.now())
}
