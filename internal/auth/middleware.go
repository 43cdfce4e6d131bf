package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"weekendschool/internal/policy"
)

const principalKey = "principal"

// Bearer enforces HS256 bearer tokens and stores the caller's principal on
// the gin context.
func Bearer(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
			return
		}
		p := claims.Principal()
		if !p.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "incomplete token claims"})
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// PrincipalFrom returns the caller set by Bearer, or the zero principal.
func PrincipalFrom(c *gin.Context) policy.Principal {
	v, _ := c.Get(principalKey)
	p, _ := v.(policy.Principal)
	return p
}

// SetPrincipal stores p on the context. Used by tests and trusted front-ends.
func SetPrincipal(c *gin.Context, p policy.Principal) {
	c.Set(principalKey, p)
}
