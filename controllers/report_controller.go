package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/fixnow-api/models"
	"github.com/kendall-kelly/fixnow-api/services"
)

// FileReport handles POST /api/v1/reports - report a user or a review
func FileReport(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.FileReportInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	report, err := reportService(c).FileReport(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err, "Failed to file report")
		return
	}

	respondData(c, http.StatusCreated, report)
}

// ListReports handles GET /api/v1/admin/reports?status=pending
func ListReports(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	reports, err := reportService(c).ListReports(c.Request.Context(), actor, models.ReportStatus(c.Query("status")))
	if err != nil {
		respondError(c, err, "Failed to retrieve reports")
		return
	}

	respondData(c, http.StatusOK, reports)
}

// ResolveReport handles POST /api/v1/admin/reports/:id/resolve with {"status": "resolved"|"dismissed"}
func ResolveReport(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.ResolveReportInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	report, err := reportService(c).ResolveReport(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		respondError(c, err, "Failed to resolve report")
		return
	}

	respondData(c, http.StatusOK, report)
}
