package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/procurechain/procurechain/internal/errors"
)

const identityKey = "auth_identity"

// Middleware extracts and validates the bearer token, storing the
// identity on the request context. Requests without a token are
// rejected.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortWith(c, errors.NewUnauthorizedError("missing bearer token"))
			return
		}

		identity, err := s.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			abortWith(c, errors.ToAppError(err))
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireRole rejects authenticated requests whose role does not match.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := IdentityFrom(c)
		if identity == nil {
			abortWith(c, errors.NewUnauthorizedError("authentication required"))
			return
		}
		if identity.Role != role {
			abortWith(c, errors.NewForbiddenError("insufficient permissions for this operation"))
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the authenticated identity, or nil.
func IdentityFrom(c *gin.Context) *Identity {
	v, exists := c.Get(identityKey)
	if !exists {
		return nil
	}
	identity, _ := v.(*Identity)
	return identity
}

func abortWith(c *gin.Context, appErr *errors.AppError) {
	errors.LogError(c, appErr)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
}
