// Package ginauth authenticates gin requests with Firebase ID tokens.
package ginauth

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	fbauth "github.com/bionicotaku/lingo-utils-fbauth"
	"github.com/bionicotaku/lingo-utils-fbauth/users"
)

const (
	DefaultSessionCookie = "__session"
	DefaultMockHeader    = "X-Mock-User"

	ctxKeyUser      = "auth.user"
	ctxKeyAuthError = "auth.error"
)

// Messages returned to clients. Verification details are only logged.
const (
	MsgAuthRequired = "Authentication required"
	MsgInvalidToken = "Invalid or expired authentication token"
)

// TokenVerifier verifies a raw bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (fbauth.Claims, error)
}

// UserResolver maps verified claims onto a local user.
type UserResolver interface {
	UpsertFromClaims(ctx context.Context, claims fbauth.Claims) (*users.User, error)
}

// Options configures Authenticate.
type Options struct {
	Verifier TokenVerifier
	// Users is optional; without it only claims are bound.
	Users         UserResolver
	AllowMockAuth bool
	SessionCookie string
	MockHeader    string
	Logger        *slog.Logger
}

func (o Options) defaulted() Options {
	if o.SessionCookie == "" {
		o.SessionCookie = DefaultSessionCookie
	}
	if o.MockHeader == "" {
		o.MockHeader = DefaultMockHeader
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Authenticate resolves the caller when a credential is present and always
// continues the chain. Use RequireAPI or RequirePage to enforce a caller.
func Authenticate(opts Options) gin.HandlerFunc {
	opts = opts.defaulted()
	return func(c *gin.Context) {
		caller, ok, err := resolveCaller(c, opts)
		if err != nil {
			opts.Logger.Warn("authentication error",
				"code", string(fbauth.CodeOf(err)),
				"error", err,
				"path", c.Request.URL.Path,
			)
			c.Set(ctxKeyAuthError, err)
			c.Next()
			return
		}
		if !ok {
			c.Next()
			return
		}

		if opts.Users != nil {
			u, err := opts.Users.UpsertFromClaims(c.Request.Context(), caller.Claims)
			if err != nil {
				opts.Logger.Warn("authentication error", "error", err, "path", c.Request.URL.Path)
				c.Set(ctxKeyAuthError, err)
				c.Next()
				return
			}
			c.Set(ctxKeyUser, u)
		}
		c.Request = c.Request.WithContext(fbauth.BindCallerClaims(c.Request.Context(), caller))
		c.Next()
	}
}

func resolveCaller(c *gin.Context, opts Options) (fbauth.CallerClaims, bool, error) {
	if opts.AllowMockAuth {
		if caller, ok := fbauth.MockCallerClaims(c.GetHeader(opts.MockHeader)); ok {
			return caller, true, nil
		}
	}
	token := ExtractToken(c.Request, opts.SessionCookie)
	if token == "" {
		return fbauth.CallerClaims{}, false, nil
	}
	claims, err := opts.Verifier.Verify(c.Request.Context(), token)
	if err != nil {
		return fbauth.CallerClaims{}, false, err
	}
	return fbauth.CallerClaims{Claims: claims}, true, nil
}

// ExtractToken returns the bearer token from the Authorization header, or
// else the session cookie value. It returns "" when neither is present.
func ExtractToken(r *http.Request, sessionCookie string) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")); token != "" {
			return token
		}
	}
	if sessionCookie == "" {
		sessionCookie = DefaultSessionCookie
	}
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}
	if v, err := url.QueryUnescape(cookie.Value); err == nil {
		return v
	}
	return cookie.Value
}

// RequireAPI aborts with 401 JSON unless a caller was authenticated.
func RequireAPI() gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticated(c) {
			c.Next()
			return
		}
		msg := MsgAuthRequired
		if AuthError(c) != nil {
			msg = MsgInvalidToken
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
	}
}

// RequirePage redirects unauthenticated GET requests to the landing page and
// rejects other methods with 401.
func RequirePage() gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticated(c) {
			c.Next()
			return
		}
		if c.Request.Method != http.MethodGet {
			c.String(http.StatusUnauthorized, MsgAuthRequired)
			c.Abort()
			return
		}
		target := "/?authRequired=true"
		if orig := c.Request.URL.RequestURI(); orig != "" && orig != "/" {
			target += "&next=" + url.QueryEscape(orig)
		}
		c.Redirect(http.StatusFound, target)
		c.Abort()
	}
}

// CurrentUser returns the user resolved by Authenticate.
func CurrentUser(c *gin.Context) (*users.User, bool) {
	v, ok := c.Get(ctxKeyUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*users.User)
	return u, ok && u != nil
}

// AuthError returns the error recorded when a presented credential was
// rejected, or nil.
func AuthError(c *gin.Context) error {
	v, ok := c.Get(ctxKeyAuthError)
	if !ok {
		return nil
	}
	err, _ := v.(error)
	return err
}

func authenticated(c *gin.Context) bool {
	if _, ok := CurrentUser(c); ok {
		return true
	}
	_, ok := fbauth.CallerClaimsFromContext(c.Request.Context())
	return ok
}
