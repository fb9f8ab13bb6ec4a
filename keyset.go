package fbauth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

// KeySet maps a key identifier to PEM-encoded RSA public key material.
// PKIX public keys, PKCS#1 public keys and X.509 certificates are accepted,
// which covers the formats Firebase publishes.
type KeySet map[string]string

// KeySource supplies the signing keys current at the time of the call.
type KeySource interface {
	KeySet(ctx context.Context) (KeySet, error)
}

// KeySet lets a static KeySet act as its own KeySource.
func (k KeySet) KeySet(context.Context) (KeySet, error) {
	return k, nil
}

// ParseKeySetJSON parses a JSON object of kid -> PEM strings, the format of
// FIREBASE_AUTH_PUBLIC_KEYS and of Google's x509 certificate endpoint.
func ParseKeySetJSON(data []byte) (KeySet, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New("key set is empty")
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse key set: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("key set is empty")
	}
	set := make(KeySet, len(raw))
	for kid, pemText := range raw {
		if kid == "" {
			return nil, errors.New("key set contains an empty key id")
		}
		set[kid] = pemText
	}
	return set, nil
}

// publicKey resolves and parses the key for kid.
func (k KeySet) publicKey(kid string) (*rsa.PublicKey, error) {
	pemText, ok := k[kid]
	if !ok {
		return nil, newError(ErrCodeUnknownSigningKey, fmt.Errorf("no key for kid %q", kid))
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemText))
	if err != nil {
		return nil, newError(ErrCodeConfigurationMissing, fmt.Errorf("key %q: %w", kid, err))
	}
	return pub, nil
}
