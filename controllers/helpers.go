package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/fixnow-api/config"
	"github.com/kendall-kelly/fixnow-api/middleware"
	"github.com/kendall-kelly/fixnow-api/services"
	"github.com/kendall-kelly/fixnow-api/utils"
	"github.com/pkg/errors"
)

var kindStatus = map[services.ErrorKind]int{
	services.KindValidation:        http.StatusBadRequest,
	services.KindInvalidTransition: http.StatusConflict,
	services.KindInvalidState:      http.StatusConflict,
	services.KindUnauthorized:      http.StatusForbidden,
	services.KindNotFound:          http.StatusNotFound,
	services.KindConflict:          http.StatusConflict,
}

// respondError writes the error envelope for a service error. Anything that is
// not a domain error is logged and reported as a DATABASE_ERROR.
func respondError(c *gin.Context, err error, fallbackMessage string) {
	if de, ok := services.AsDomainError(err); ok {
		status, known := kindStatus[de.Kind]
		if !known {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{
			"success": false,
			"error": gin.H{
				"code":    de.Code,
				"kind":    de.Kind,
				"message": de.Message,
			},
		})
		return
	}

	var fileErr *utils.FileUploadError
	if errors.As(err, &fileErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    fileErr.Code,
				"kind":    services.KindValidation,
				"message": fileErr.Message,
			},
		})
		return
	}

	middleware.Logger(c).ErrorContext(c.Request.Context(), fallbackMessage, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "DATABASE_ERROR",
			"message": fallbackMessage,
		},
	})
}

func respondValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"kind":    services.KindValidation,
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// currentActor resolves the signed-in profile. It writes the error response and
// returns false when there is no usable profile.
func currentActor(c *gin.Context) (services.Actor, bool) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return services.Actor{}, false
	}

	profile, err := profileService(c).FindByAuth0ID(c.Request.Context(), auth0ID)
	if err != nil {
		respondError(c, err, "Failed to load user profile")
		return services.Actor{}, false
	}
	return services.ActorFor(profile), true
}

func profileService(c *gin.Context) *services.ProfileService {
	return services.NewProfileService(config.GetDB(), middleware.Logger(c))
}

func bookingService(c *gin.Context) *services.BookingService {
	return services.NewBookingService(config.GetDB(), middleware.Logger(c))
}

func reviewService(c *gin.Context) *services.ReviewService {
	return services.NewReviewService(config.GetDB(), middleware.Logger(c))
}

func reportService(c *gin.Context) *services.ReportService {
	return services.NewReportService(config.GetDB(), middleware.Logger(c))
}

func catalogService(c *gin.Context) *services.CatalogService {
	return services.NewCatalogService(config.GetDB(), middleware.Logger(c))
}

func verificationService(c *gin.Context) *services.VerificationService {
	return services.NewVerificationService(config.GetDB(), services.GetDocumentService(), middleware.Logger(c))
}

func dashboardService(c *gin.Context) *services.DashboardService {
	return services.NewDashboardService(config.GetDB(), middleware.Logger(c))
}

// queryInt parses an optional integer query parameter
func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// OptionalReason is the body of transitions that may carry free text
type OptionalReason struct {
	Reason string `json:"reason"`
}

// bindOptionalJSON binds a body when one is present; an empty body is not an error
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondValidation(c, err)
		return false
	}
	return true
}
