package ginauth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	fbauth "github.com/bionicotaku/lingo-utils-fbauth"
)

// Me serves GET /api/auth/me.
func Me(c *gin.Context) {
	if u, ok := CurrentUser(c); ok {
		c.JSON(http.StatusOK, gin.H{"user": u})
		return
	}
	// Without a user store only the verified identity is known.
	if caller, ok := fbauth.CallerClaimsFromContext(c.Request.Context()); ok {
		c.JSON(http.StatusOK, gin.H{"user": gin.H{
			"email":       caller.Claims.Email(),
			"displayName": caller.Claims.Name(),
		}})
		return
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": MsgAuthRequired})
}

// ClientConfig serves the public Firebase web configuration.
func ClientConfig(cfg fbauth.ClientConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"config":     cfg,
			"configured": cfg.Configured(),
		})
	}
}

// Register mounts the auth routes under group.
func Register(group *gin.RouterGroup, cfg fbauth.ClientConfig) {
	group.GET("/me", RequireAPI(), Me)
	group.GET("/client-config", ClientConfig(cfg))
}
