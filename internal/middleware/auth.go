package middleware

import (
	"context"

	"videohub/internal/domain"
	"videohub/internal/pkg/apperr"
	"videohub/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuth.
const (
	ContextUser   = "user"
	ContextUserID = "user_id"
)

// Authenticator resolves an access token to the account it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*domain.PublicUser, error)
}

// JWTAuth gates a route group behind a valid access token taken from the
// accessToken cookie or the Authorization header. It never writes session
// state.
func JWTAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ExtractToken(c.Request, AccessTokenCookie)
		if raw == "" {
			response.AbortWithError(c, apperr.Unauthenticated("Unauthorized request"))
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), raw)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}

		c.Set(ContextUser, *user)
		c.Set(ContextUserID, user.ID)
		c.Next()
	}
}

// UserID returns the id placed in the context by JWTAuth, or "".
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// CurrentUser returns the sanitized user placed in the context by JWTAuth.
func CurrentUser(c *gin.Context) (domain.PublicUser, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return domain.PublicUser{}, false
	}
	u, ok := v.(domain.PublicUser)
	return u, ok
}
