package fbauth

import (
	"encoding/base64"
	"strings"
)

var urlAlphabet = strings.NewReplacer("-", "+", "_", "/")

// DecodeSegment decodes one base64url token segment. Padding is optional on
// the wire and restored before decoding.
func DecodeSegment(seg string) ([]byte, error) {
	if seg == "" {
		return []byte{}, nil
	}
	normalized := urlAlphabet.Replace(seg)
	if rem := len(normalized) % 4; rem != 0 {
		normalized += strings.Repeat("=", 4-rem)
	}
	return base64.StdEncoding.DecodeString(normalized)
}

// EncodeSegment encodes raw bytes as an unpadded base64url segment.
func EncodeSegment(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}
