package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/fixnow-api/models"
	"github.com/kendall-kelly/fixnow-api/services"
)

// SetServicesRequest lists the service names a provider offers
type SetServicesRequest struct {
	Services []string `json:"services"`
}

// ApproveRejectRequest carries the admin's optional verification notes
type ApproveRejectRequest struct {
	Notes *string `json:"notes"`
}

// SearchProviders handles GET /api/v1/providers?service=&location=&sort=&verified=&page=&limit=
func SearchProviders(c *gin.Context) {
	verifiedOnly, _ := strconv.ParseBool(c.Query("verified"))

	providers, page, err := catalogService(c).SearchProviders(c.Request.Context(), services.SearchProvidersParams{
		Service:      c.Query("service"),
		Location:     c.Query("location"),
		Sort:         c.Query("sort"),
		VerifiedOnly: verifiedOnly,
		Page:         queryInt(c, "page", 1),
		Limit:        queryInt(c, "limit", 20),
	})
	if err != nil {
		respondError(c, err, "Failed to search providers")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       providers,
		"pagination": page,
	})
}

// GetProvider handles GET /api/v1/providers/:id
func GetProvider(c *gin.Context) {
	provider, err := catalogService(c).GetProvider(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve provider")
		return
	}

	respondData(c, http.StatusOK, provider)
}

// UpdateMyProviderProfile handles PUT /api/v1/providers/me
func UpdateMyProviderProfile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.UpdateProviderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	provider, err := catalogService(c).UpdateProviderProfile(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err, "Failed to update provider profile")
		return
	}

	respondData(c, http.StatusOK, provider)
}

// SetMyServices handles PUT /api/v1/providers/me/services
func SetMyServices(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req SetServicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	offered, err := catalogService(c).SetProviderServices(c.Request.Context(), actor, req.Services)
	if err != nil {
		respondError(c, err, "Failed to update services")
		return
	}

	respondData(c, http.StatusOK, offered)
}

// GetMyVerification handles GET /api/v1/providers/me/verification
func GetMyVerification(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	provider, err := verificationService(c).GetVerification(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err, "Failed to load verification status")
		return
	}

	respondData(c, http.StatusOK, models.NewProviderVerification(provider))
}

// ResubmitVerification handles POST /api/v1/providers/me/verification
func ResubmitVerification(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	provider, err := verificationService(c).ResubmitVerification(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err, "Failed to resubmit verification")
		return
	}

	respondData(c, http.StatusOK, models.NewProviderVerification(provider))
}

// ListPendingVerifications handles GET /api/v1/admin/providers/pending
func ListPendingVerifications(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	providers, err := verificationService(c).ListPendingVerifications(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err, "Failed to retrieve pending providers")
		return
	}

	respondData(c, http.StatusOK, models.NewPendingProviders(providers))
}

// ApproveProvider handles POST /api/v1/admin/providers/:id/approve
func ApproveProvider(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req ApproveRejectRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	provider, err := verificationService(c).ApproveProvider(c.Request.Context(), c.Param("id"), actor, req.Notes)
	if err != nil {
		respondError(c, err, "Failed to approve provider")
		return
	}

	respondData(c, http.StatusOK, models.NewProviderVerification(provider))
}

// RejectProvider handles POST /api/v1/admin/providers/:id/reject
func RejectProvider(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req ApproveRejectRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	provider, err := verificationService(c).RejectProvider(c.Request.Context(), c.Param("id"), actor, req.Notes)
	if err != nil {
		respondError(c, err, "Failed to reject provider")
		return
	}

	respondData(c, http.StatusOK, models.NewProviderVerification(provider))
}
