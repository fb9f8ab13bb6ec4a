package fbauth

import (
	"context"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"testing"
	"time"
)

func TestParseKeySetJSON(t *testing.T) {
	_, pubPEM := newRSAKey(t)
	raw, err := json.Marshal(map[string]string{"kid1": pubPEM})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	keys, err := ParseKeySetJSON(raw)
	if err != nil {
		t.Fatalf("ParseKeySetJSON: %v", err)
	}
	if keys["kid1"] != pubPEM {
		t.Fatalf("unexpected key set: %v", keys)
	}

	static, err := keys.KeySet(context.Background())
	if err != nil || len(static) != 1 {
		t.Fatalf("static source: %v %v", static, err)
	}

	for _, bad := range []string{"", "   ", "{}", "[]", `{"":"x"}`, "not json"} {
		if _, err := ParseKeySetJSON([]byte(bad)); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

// Firebase publishes X.509 certificates rather than bare public keys.
func TestKeySet_AcceptsCertificates(t *testing.T) {
	key, _ := newRSAKey(t)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "securetoken.system.gserviceaccount.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	certPEM := string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))

	token := sign(t, key, "cert-kid", validClaims(time.Now().Add(time.Hour).Unix()))
	if _, err := Verify(token, KeySet{"cert-kid": certPEM}, ProjectExpectation("proj1")); err != nil {
		t.Fatalf("Verify with certificate: %v", err)
	}
}
