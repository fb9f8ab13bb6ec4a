package fbauth

import "strings"

// MockSubjectPrefix marks subjects synthesised by MockClaims.
const MockSubjectPrefix = "mock-"

// MockClaims builds synthetic claims for a development identity such as
// "reader@example.com" or "guardian1". It returns nil for a blank identity.
func MockClaims(identity string) Claims {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil
	}
	claims := Claims{
		"sub":  MockSubjectPrefix + identity,
		"name": identity,
	}
	if strings.Contains(identity, "@") {
		claims["email"] = identity
	}
	return claims
}

// MockCallerClaims wraps mock claims for binding into a request context.
func MockCallerClaims(identity string) (CallerClaims, bool) {
	claims := MockClaims(identity)
	if claims == nil {
		return CallerClaims{}, false
	}
	return CallerClaims{Claims: claims, Mock: true}, true
}
