package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/retailops/backend/internal/infrastructure/auth"
	"github.com/retailops/backend/internal/interfaces/http/dto"
)

// Context keys set by OperatorAuth
const (
	OperatorIDKey    = "operator_id"
	OperatorNameKey  = "operator_name"
	OperatorRolesKey = "operator_roles"
)

// OperatorAuth validates the Bearer token on every request and stores the
// operator identity in the gin context. Paths in skipPaths (health probes,
// sign-in) pass through without a token.
func OperatorAuth(tokens *auth.TokenService, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.FullPath()] || skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "Missing Authorization header")
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			abortUnauthorized(c, "Authorization header must be a Bearer token")
			return
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired session token")
			return
		}

		c.Set(OperatorIDKey, claims.OperatorID)
		c.Set(OperatorNameKey, claims.Name)
		c.Set(OperatorRolesKey, claims.Roles)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	requestID := c.GetString(RequestIDKey)
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID("UNAUTHORIZED", message, requestID))
}
