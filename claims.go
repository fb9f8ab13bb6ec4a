package fbauth

import (
	"encoding/json"
	"math"
	"time"
)

// Claims is the decoded token payload, exactly as the identity provider sent it.
// Values follow encoding/json decoding rules (numbers are float64).
type Claims map[string]any

// Subject returns the Firebase user id: "sub", falling back to "user_id".
func (c Claims) Subject() string {
	if s := c.str("sub"); s != "" {
		return s
	}
	return c.str("user_id")
}

func (c Claims) Issuer() string   { return c.str("iss") }
func (c Claims) Audience() string { return c.str("aud") }
func (c Claims) Email() string    { return c.str("email") }
func (c Claims) Name() string     { return c.str("name") }

// ExpiresAt returns the "exp" claim as a time. ok is false when the claim is
// absent or not numeric.
func (c Claims) ExpiresAt() (time.Time, bool) {
	secs, ok := c.number("exp")
	if !ok {
		return time.Time{}, false
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*float64(time.Second))).UTC(), true
}

func (c Claims) str(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

func (c Claims) number(key string) (float64, bool) {
	switch v := c[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}
