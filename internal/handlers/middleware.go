package handlers

import (
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/prepdeck/testprep-service/internal/config"
	"github.com/prepdeck/testprep-service/internal/utils"
)

// NewCasdoorClient builds the token verifier from the auth section of the
// service configuration.
func NewCasdoorClient(cfg config.AuthConfig) *casdoorsdk.Client {
	return casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Certificate,
		cfg.Organization,
		cfg.Application,
	)
}

// AuthMiddleware verifies the bearer token on every request and stores the
// authenticated identity in the gin context under "user_id".
func AuthMiddleware(client *casdoorsdk.Client, logger utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Authorization header required",
				Code:    CodeDoNotRetry,
			})
			c.Abort()
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader || tokenStr == "" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid authorization header format",
				Code:    CodeDoNotRetry,
			})
			c.Abort()
			return
		}

		claims, err := client.ParseJwtToken(tokenStr)
		if err != nil {
			logger.Warn("Token verification failed",
				"path", c.Request.URL.Path,
				"error", err.Error(),
			)
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid or expired token",
				Code:    CodeDoNotRetry,
			})
			c.Abort()
			return
		}

		userID := claims.User.Id
		if userID == "" {
			userID = claims.User.Name
		}
		if userID == "" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Token carries no user identity",
				Code:    CodeDoNotRetry,
			})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

// StaticUserMiddleware injects a fixed identity for local development when
// no Casdoor endpoint is configured.
func StaticUserMiddleware(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	}
}
