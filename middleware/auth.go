package middleware

import (
	"context"
	"strings"

	"pizza-api/auth"
	"pizza-api/service"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// Authenticator resolves a bearer token to an identity
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// AuthRequired validates the bearer token and injects the identity into context
func AuthRequired(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := a.Authenticate(c.Request.Context(), BearerToken(c))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// OptionalAuth injects the identity when a valid token is present and lets
// anonymous callers through otherwise
func OptionalAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := BearerToken(c); token != "" {
			id, err := a.Authenticate(c.Request.Context(), token)
			if err == nil {
				c.Set(identityKey, id)
			} else if service.KindOf(err) != service.KindUnauthenticated {
				AbortWithError(c, err)
				return
			}
		}
		c.Next()
	}
}

// GetIdentity returns the caller identity; the zero Identity for anonymous callers
func GetIdentity(c *gin.Context) auth.Identity {
	val, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}
	}
	id, _ := val.(auth.Identity)
	return id
}
