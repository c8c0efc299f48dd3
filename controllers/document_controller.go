package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/fixnow-api/models"
	"github.com/kendall-kelly/fixnow-api/services"
	"github.com/kendall-kelly/fixnow-api/utils"
)

// UploadVerificationDocument handles POST /api/v1/providers/me/documents
// Multipart form with "kind" (id_document or certification) and "file".
func UploadVerificationDocument(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NO_FILE",
				"message": "A document file is required",
			},
		})
		return
	}
	kind := services.DocumentKind(c.PostForm("kind"))

	provider, err := verificationService(c).UploadVerificationDocument(c.Request.Context(), actor, kind, fileHeader)
	if err != nil {
		respondError(c, err, "Failed to upload document")
		return
	}

	respondData(c, http.StatusCreated, models.NewProviderVerification(provider))
}

// GetDocument handles GET /api/v1/admin/documents/:filename - serves locally stored documents
// Only available when documents are kept on disk (development).
func GetDocument(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if !actor.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Only admins can view verification documents",
			},
		})
		return
	}

	local, isLocal := services.GetDocumentService().(*services.LocalDocumentService)
	if !isLocal {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_NOT_FOUND",
				"message": "Documents are served from object storage",
			},
		})
		return
	}

	filename := c.Param("filename")

	// Security: Prevent directory traversal attacks
	if filename == "" || strings.Contains(filename, "..") || strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILENAME",
				"message": "Invalid filename",
			},
		})
		return
	}

	filePath := filepath.Join(local.Dir(), filename)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_NOT_FOUND",
				"message": "Document not found",
			},
		})
		return
	}

	c.Header("Content-Type", utils.ContentTypeFor(filename))
	c.Header("Cache-Control", "private, no-store")
	c.File(filePath)
}
