package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"trip-integrity-service/internal/auth"
	"trip-integrity-service/internal/model"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer"
	principalContextKey = "principal"
)

// Auth resolves the bearer token into a fleet principal. Tokens with an unknown role, or a DRIVER
// token without the driver it stands for, are refused here so services never see them.
func Auth(parser *auth.Parser, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, reason := bearerToken(c.GetHeader(authorizationHeader))
		if reason != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": reason})
			return
		}
		claims, err := parser.Parse(token)
		if err != nil {
			log.Debug().Err(err).Str("path", c.FullPath()).Msg("token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		principal := claims.Principal()
		switch {
		case !principal.Role.Valid():
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "unknown role"})
			return
		case principal.IsDriver() && principal.DriverID == nil:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "driver token without driver_id"})
			return
		}
		SetPrincipal(c, principal)
		c.Next()
	}
}

func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "authorization header missing"
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], bearerPrefix) || strings.TrimSpace(parts[1]) == "" {
		return "", "invalid authorization header"
	}
	return strings.TrimSpace(parts[1]), ""
}

func SetPrincipal(c *gin.Context, principal model.Principal) {
	c.Set(principalContextKey, principal)
}

func MustPrincipal(c *gin.Context) (model.Principal, bool) {
	value, exists := c.Get(principalContextKey)
	if !exists {
		return model.Principal{}, false
	}
	principal, ok := value.(model.Principal)
	if !ok {
		return model.Principal{}, false
	}
	return principal, true
}
