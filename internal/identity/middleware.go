package identity

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/richyrich98/dotanddot/pkg/logger"
)

const (
	contextIdentityKey = "identity"
	contextErrorKey    = "identity_error"
)

// Middleware resolves the caller's identity once per request and stores it
// on the gin context. A provider failure is recorded but does not abort the
// request: for everything except migration it is treated as "no identity".
func Middleware(provider Provider, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)

		ident, err := provider.Resolve(c.Request.Context(), token)
		if err != nil {
			log.Warn("identity lookup failed", "error", err)
			c.Set(contextErrorKey, err)
		}
		if ident != nil {
			c.Set(contextIdentityKey, ident)
		}

		c.Next()
	}
}

// TokenFromRequest extracts the bearer token, falling back to the
// X-Auth-Token header.
func TokenFromRequest(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.GetHeader("X-Auth-Token")
}

// FromContext returns the identity resolved by Middleware, or nil for an
// unauthenticated request.
func FromContext(c *gin.Context) *Identity {
	value, ok := c.Get(contextIdentityKey)
	if !ok {
		return nil
	}
	ident, ok := value.(*Identity)
	if !ok {
		return nil
	}
	return ident
}

// ErrorFromContext returns the provider failure recorded by Middleware, if
// any. Only the migration handler cares about the distinction.
func ErrorFromContext(c *gin.Context) error {
	value, ok := c.Get(contextErrorKey)
	if !ok {
		return nil
	}
	err, ok := value.(error)
	if !ok {
		return nil
	}
	return err
}
