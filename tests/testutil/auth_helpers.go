package testutil

import (
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/fixnow-api/middleware"
)

// MockValidatedClaims creates a mock ValidatedClaims for testing
func MockValidatedClaims(subject, role string) *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:  "https://fixnow-test.us.auth0.com/",
			Subject: subject,
		},
		CustomClaims: &middleware.CustomClaims{
			Role: role,
		},
	}
}

// MockAuthMiddleware sets up the context exactly as the real EnsureValidToken middleware does
func MockAuthMiddleware(auth0ID, role, accessToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", auth0ID)
		c.Set("access_token", accessToken)
		c.Set("validated_claims", MockValidatedClaims(auth0ID, role))
		c.Next()
	}
}

// HeaderAuthMiddleware authenticates each request as the subject in the
// X-Test-Subject header, so one router can serve several users
func HeaderAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.GetHeader("X-Test-Subject")
		if subject == "" {
			c.AbortWithStatusJSON(401, gin.H{
				"success": false,
				"error":   gin.H{"code": "INVALID_TOKEN", "message": "Failed to validate JWT."},
			})
			return
		}
		c.Set("user_id", subject)
		c.Set("access_token", "token-"+subject)
		c.Set("validated_claims", MockValidatedClaims(subject, c.GetHeader("X-Test-Role")))
		c.Next()
	}
}
