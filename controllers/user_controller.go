package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/fixnow-api/middleware"
	"github.com/kendall-kelly/fixnow-api/models"
	"github.com/kendall-kelly/fixnow-api/services"
)

// CreateUserRequest represents the optional sign-up details the user fills in
type CreateUserRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

// CreateUser handles POST /api/v1/users - creates the profile from Auth0 userinfo
// This endpoint requires authentication and fetches the email from Auth0's /userinfo endpoint
func CreateUser(c *gin.Context) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user ID from token",
			},
		})
		return
	}

	accessToken, err := middleware.GetAccessToken(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_TOKEN",
				"message": "Access token not found",
			},
		})
		return
	}

	var req CreateUserRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	userInfo, err := services.GetUserInfoProvider().GetUserInfo(c.Request.Context(), accessToken)
	if err != nil {
		middleware.Logger(c).WarnContext(c.Request.Context(), "userinfo lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "AUTH0_ERROR",
				"message": "Failed to fetch user information from Auth0",
			},
		})
		return
	}

	if userInfo.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_EMAIL",
				"message": "Email not provided by Auth0",
			},
		})
		return
	}

	// Fall back to the identity provider's name when the form left it blank
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		fullName = userInfo.Name
	}

	profile, err := profileService(c).SignUp(c.Request.Context(), services.SignUpInput{
		Auth0ID:     auth0ID,
		Email:       userInfo.Email,
		FullName:    &fullName,
		Phone:       &req.Phone,
		Role:        models.Role(strings.ToLower(strings.TrimSpace(req.Role))),
		ClaimedRole: models.Role(middleware.GetClaimedRole(c)),
	})
	if err != nil {
		respondError(c, err, "Failed to create user")
		return
	}

	respondData(c, http.StatusCreated, profile)
}

// GetMyProfile handles GET /api/v1/users/me - gets current user's profile
func GetMyProfile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	profile, err := profileService(c).GetMyProfile(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err, "Failed to load user profile")
		return
	}

	respondData(c, http.StatusOK, profile)
}

// UpdateMyProfile handles PUT /api/v1/users/me - updates current user's profile
func UpdateMyProfile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.UpdateProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	profile, err := profileService(c).UpdateMyProfile(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err, "Failed to update user profile")
		return
	}

	respondData(c, http.StatusOK, profile)
}

// GetDashboard handles GET /api/v1/dashboard - role-aware summary counters
func GetDashboard(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	stats, err := dashboardService(c).Stats(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err, "Failed to load dashboard")
		return
	}

	respondData(c, http.StatusOK, stats)
}
