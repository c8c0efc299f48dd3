package controllers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/fixnow-api/models"
	"github.com/kendall-kelly/fixnow-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func reviewRouter() *gin.Engine {
	router := setupTestRouter()
	router.POST("/api/v1/bookings/:id/review", SubmitReview)
	router.POST("/api/v1/reviews/:id/flag", FlagReview)
	router.POST("/api/v1/admin/reviews/:id/unflag", UnflagReview)
	router.GET("/api/v1/providers/:id/reviews", ListProviderReviews)
	router.POST("/api/v1/reports", FileReport)
	router.GET("/api/v1/admin/reports", ListReports)
	router.POST("/api/v1/admin/reports/:id/resolve", ResolveReport)
	return router
}

// insertBooking stores a booking directly in the given status
func insertBooking(t *testing.T, db *gorm.DB, client, provider *models.Profile, status models.BookingStatus) *models.Booking {
	t.Helper()

	service := testutil.ServiceByName(t, db, "plumbing")
	booking := &models.Booking{
		ClientID:        client.ID,
		ProviderID:      provider.ID,
		ServiceID:       service.ID,
		Status:          status,
		Description:     "Fix the boiler",
		LocationAddress: "1 Main Street",
		LocationCity:    "Springfield",
	}
	if status == models.BookingCompleted {
		now := time.Now().UTC()
		booking.ClientConfirmed = true
		booking.ProviderConfirmed = true
		booking.CompletedAt = &now
	}
	require.NoError(t, db.Create(booking).Error)
	return booking
}

func TestSubmitReview(t *testing.T) {
	db := setupTestDB(t)
	router := reviewRouter()
	client := testutil.CreateProfile(t, db, models.RoleClient, "Casey Client")
	provider := testutil.CreateProvider(t, db, "Pat Plumber", "Springfield", 40, "plumbing")
	completed := insertBooking(t, db, client, provider, models.BookingCompleted)
	accepted := insertBooking(t, db, client, provider, models.BookingAccepted)

	tests := []struct {
		name           string
		bookingID      string
		as             *models.Profile
		body           map[string]any
		expectedStatus int
		expectedKind   string
	}{
		{"missing rating", completed.ID, client, map[string]any{"comment": "ok"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"rating too high", completed.ID, client, map[string]any{"rating": 6}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"provider reviewing", completed.ID, provider, map[string]any{"rating": 5}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"booking not completed", accepted.ID, client, map[string]any{"rating": 5}, http.StatusConflict, "INVALID_STATE"},
		{"unknown booking", "missing", client, map[string]any{"rating": 5}, http.StatusNotFound, "NOT_FOUND"},
		{"valid review", completed.ID, client, map[string]any{"rating": 5, "comment": "  Great work  "}, http.StatusCreated, ""},
		{"second review", completed.ID, client, map[string]any{"rating": 3}, http.StatusConflict, "INVALID_STATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, response := performRequest(t, router, http.MethodPost, "/api/v1/bookings/"+tt.bookingID+"/review", tt.as, tt.body)
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedKind != "" {
				assert.Equal(t, tt.expectedKind, response.Error.Kind)
				return
			}
			review := decode[models.Review](t, response.Data)
			require.NotNil(t, review.Comment)
			assert.Equal(t, "Great work", *review.Comment)
		})
	}

	stored := testutil.LoadProvider(t, db, provider.ID)
	assert.EqualValues(t, 1, stored.TotalReviews)
	assert.InDelta(t, 5.0, stored.AverageRating, 1e-9)
}

func TestFlagAndUnflagReview(t *testing.T) {
	db := setupTestDB(t)
	router := reviewRouter()
	client := testutil.CreateProfile(t, db, models.RoleClient, "Casey Client")
	admin := testutil.CreateProfile(t, db, models.RoleAdmin, "Ada Admin")
	provider := testutil.CreateProvider(t, db, "Pat Plumber", "Springfield", 40, "plumbing")
	booking := insertBooking(t, db, client, provider, models.BookingCompleted)

	w, response := performRequest(t, router, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/review", client, map[string]any{"rating": 2})
	require.Equal(t, http.StatusCreated, w.Code)
	review := decode[models.Review](t, response.Data)

	w, response = performRequest(t, router, http.MethodPost, "/api/v1/reviews/"+review.ID+"/flag", client, map[string]any{"reason": "spite"})
	assert.Equal(t, http.StatusForbidden, w.Code, "clients cannot flag")

	w, response = performRequest(t, router, http.MethodPost, "/api/v1/reviews/"+review.ID+"/flag", provider, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "a reason is required")

	w, response = performRequest(t, router, http.MethodPost, "/api/v1/reviews/"+review.ID+"/flag", provider, map[string]any{"reason": "Not my customer"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[models.Review](t, response.Data).IsFlagged)

	stored := testutil.LoadProvider(t, db, provider.ID)
	assert.Zero(t, stored.TotalReviews)

	w, response = performRequest(t, router, http.MethodPost, "/api/v1/reviews/"+review.ID+"/flag", admin, map[string]any{"reason": "again"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATE", response.Error.Kind)

	w, response = performRequest(t, router, http.MethodPost, "/api/v1/admin/reviews/"+review.ID+"/unflag", provider, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, response = performRequest(t, router, http.MethodPost, "/api/v1/admin/reviews/"+review.ID+"/unflag", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[models.Review](t, response.Data).IsFlagged)

	stored = testutil.LoadProvider(t, db, provider.ID)
	assert.EqualValues(t, 1, stored.TotalReviews)
	assert.InDelta(t, 2.0, stored.AverageRating, 1e-9)
}

func TestListProviderReviews(t *testing.T) {
	db := setupTestDB(t)
	client := testutil.CreateProfile(t, db, models.RoleClient, "Casey Client")
	provider := testutil.CreateProvider(t, db, "Pat Plumber", "Springfield", 40, "plumbing")

	router := setupTestRouter()
	router.POST("/api/v1/bookings/:id/review", SubmitReview)
	public := gin.New()
	public.GET("/api/v1/providers/:id/reviews", ListProviderReviews)

	for _, rating := range []int{5, 4} {
		booking := insertBooking(t, db, client, provider, models.BookingCompleted)
		w, _ := performRequest(t, router, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/review", client, map[string]any{"rating": rating})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, response := performRequest(t, public, http.MethodGet, "/api/v1/providers/"+provider.ID+"/reviews", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	reviews := decode[[]models.ReviewWithClient](t, response.Data)
	require.Len(t, reviews, 2)
	assert.Equal(t, "Casey Client", reviews[0].Client.Name)

	stored := testutil.LoadProvider(t, db, provider.ID)
	assert.InDelta(t, 4.5, stored.AverageRating, 1e-9)
}

func TestReports(t *testing.T) {
	db := setupTestDB(t)
	router := reviewRouter()
	client := testutil.CreateProfile(t, db, models.RoleClient, "Casey Client")
	admin := testutil.CreateProfile(t, db, models.RoleAdmin, "Ada Admin")
	provider := testutil.CreateProvider(t, db, "Pat Plumber", "Springfield", 40, "plumbing")

	tests := []struct {
		name           string
		body           map[string]any
		expectedStatus int
	}{
		{"no target", map[string]any{"reason": "spam"}, http.StatusBadRequest},
		{"both targets", map[string]any{"reason": "spam", "reported_user_id": provider.ID, "reported_review_id": "x"}, http.StatusBadRequest},
		{"self report", map[string]any{"reason": "spam", "reported_user_id": client.ID}, http.StatusBadRequest},
		{"missing reason", map[string]any{"reported_user_id": provider.ID}, http.StatusBadRequest},
		{"unknown user", map[string]any{"reason": "spam", "reported_user_id": "00000000-0000-0000-0000-000000000000"}, http.StatusNotFound},
		{"user report", map[string]any{"reason": "No-show twice", "reported_user_id": provider.ID}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := performRequest(t, router, http.MethodPost, "/api/v1/reports", client, tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}

	w, response := performRequest(t, router, http.MethodGet, "/api/v1/admin/reports", client, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, response = performRequest(t, router, http.MethodGet, "/api/v1/admin/reports?status=pending", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	reports := decode[[]models.Report](t, response.Data)
	require.Len(t, reports, 1)

	w, response = performRequest(t, router, http.MethodPost, "/api/v1/admin/reports/"+reports[0].ID+"/resolve", admin, map[string]any{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, response = performRequest(t, router, http.MethodPost, "/api/v1/admin/reports/"+reports[0].ID+"/resolve", admin,
		map[string]any{"status": "dismissed", "admin_notes": "No evidence"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dismissed := decode[models.Report](t, response.Data)
	assert.Equal(t, models.ReportDismissed, dismissed.Status)
	assert.NotNil(t, dismissed.ResolvedAt)

	w, response = performRequest(t, router, http.MethodGet, "/api/v1/admin/reports?status=pending", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.Report](t, response.Data))
}
