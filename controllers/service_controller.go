package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/fixnow-api/services"
)

// ListServices handles GET /api/v1/services - the active catalog
func ListServices(c *gin.Context) {
	catalog, err := catalogService(c).ListServices(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to retrieve services")
		return
	}

	respondData(c, http.StatusOK, catalog)
}

// CreateService handles POST /api/v1/services (admins only)
func CreateService(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.CreateServiceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	service, err := catalogService(c).CreateService(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err, "Failed to create service")
		return
	}

	respondData(c, http.StatusCreated, service)
}
