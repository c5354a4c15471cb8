package handlers

import (
	"net/http"
	"strings"

	"github.com/SAP-F-2025/survey-match-service/internal/config"
	"github.com/SAP-F-2025/survey-match-service/internal/utils"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
)

const (
	userIDKey   = "user_id"
	userNameKey = "user_name"
)

// TokenParser validates a bearer token and returns its Casdoor claims
type TokenParser func(token string) (*casdoorsdk.Claims, error)

// NewCasdoorTokenParser configures the Casdoor SDK and returns its JWT parser.
// It returns nil when Casdoor is not configured.
func NewCasdoorTokenParser(cfg config.CasdoorConfig) TokenParser {
	if !cfg.Enabled() {
		return nil
	}
	casdoorsdk.InitConfig(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Certificate,
		cfg.OrganizationName,
		cfg.ApplicationName,
	)
	return casdoorsdk.ParseJwtToken
}

// AdminMiddleware admits requests carrying a Casdoor token of an admin user.
// With a nil parser every request passes.
func AdminMiddleware(parse TokenParser, logger utils.Logger) gin.HandlerFunc {
	if parse == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Authentication required",
				Code:    "missing_token",
			})
			return
		}

		claims, err := parse(token)
		if err != nil {
			utils.GetLoggerFromContext(c, logger).Warn("Rejected admin token",
				"path", c.Request.URL.Path,
				"error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid token",
				Code:    "invalid_token",
			})
			return
		}

		if !claims.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "Admin access required",
				Code:    "forbidden",
			})
			return
		}

		c.Set(userIDKey, claims.Id)
		c.Set(userNameKey, claims.Name)
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
