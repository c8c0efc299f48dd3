package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/fixnow-api/models"
	"github.com/kendall-kelly/fixnow-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func bookingRouter() *gin.Engine {
	router := setupTestRouter()
	router.POST("/api/v1/bookings", CreateBooking)
	router.GET("/api/v1/bookings", ListBookings)
	router.GET("/api/v1/bookings/:id", GetBooking)
	router.POST("/api/v1/bookings/:id/accept", AcceptBooking)
	router.POST("/api/v1/bookings/:id/decline", DeclineBooking)
	router.POST("/api/v1/bookings/:id/start", StartJob)
	router.POST("/api/v1/bookings/:id/confirm", ConfirmBooking)
	router.POST("/api/v1/bookings/:id/complete", CompleteBooking)
	router.POST("/api/v1/bookings/:id/cancel", CancelBooking)
	return router
}

type bookingFixture struct {
	db       *gorm.DB
	client   *models.Profile
	provider *models.Profile
	service  *models.Service
}

func newBookingFixture(t *testing.T) bookingFixture {
	t.Helper()
	db := setupTestDB(t)
	return bookingFixture{
		db:       db,
		client:   testutil.CreateProfile(t, db, models.RoleClient, "Casey Client"),
		provider: testutil.CreateProvider(t, db, "Pat Plumber", "Springfield", 45, "plumbing"),
		service:  testutil.ServiceByName(t, db, "plumbing"),
	}
}

func (f bookingFixture) request() map[string]any {
	return map[string]any{
		"provider_id":         f.provider.ID,
		"service_id":          f.service.ID,
		"description":         "Leaking pipe under the sink",
		"location_address":    "12 Elm Street",
		"location_city":       "Springfield",
		"preferred_date":      "2030-06-15",
		"preferred_time_slot": "afternoon",
	}
}

func TestCreateBooking(t *testing.T) {
	f := newBookingFixture(t)
	router := bookingRouter()
	electrician := testutil.CreateProvider(t, f.db, "Eli Electric", "Springfield", 60, "electrical")

	withField := func(key string, value any) map[string]any {
		body := f.request()
		if value == nil {
			delete(body, key)
		} else {
			body[key] = value
		}
		return body
	}

	tests := []struct {
		name           string
		as             *models.Profile
		body           map[string]any
		expectedStatus int
		expectedCode   string
	}{
		{"client books a provider", f.client, f.request(), http.StatusCreated, ""},
		{"provider cannot book", f.provider, f.request(), http.StatusForbidden, "FORBIDDEN"},
		{"missing description", f.client, withField("description", nil), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad date", f.client, withField("preferred_date", "15/06/2030"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad time slot", f.client, withField("preferred_time_slot", "midnight"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown provider", f.client, withField("provider_id", "00000000-0000-0000-0000-000000000000"), http.StatusNotFound, "PROVIDER_NOT_FOUND"},
		{"service not offered", f.client, withField("provider_id", electrician.ID), http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, response := performRequest(t, router, http.MethodPost, "/api/v1/bookings", tt.as, tt.body)
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, response.Error.Code)
				return
			}
			booking := decode[models.Booking](t, response.Data)
			assert.Equal(t, models.BookingPending, booking.Status)
			assert.Equal(t, f.client.ID, booking.ClientID)
			assert.False(t, booking.ClientConfirmed)
			assert.False(t, booking.ProviderConfirmed)
		})
	}
}

func TestBookingTransitions(t *testing.T) {
	f := newBookingFixture(t)
	router := bookingRouter()

	w, response := performRequest(t, router, http.MethodPost, "/api/v1/bookings", f.client, f.request())
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[models.Booking](t, response.Data).ID

	w, response = performRequest(t, router, http.MethodPost, "/api/v1/bookings/"+id+"/accept", f.client, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "the client cannot accept")
	assert.Equal(t, "INVALID_TRANSITION", response.Error.Kind)

	w, response = performRequest(t, router, http.MethodPost, "/api/v1/bookings/"+id+"/decline", f.provider, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "decline needs a reason")

	w, response = performRequest(t, router, http.MethodPost, "/api/v1/bookings/"+id+"/start", f.provider, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "pending jobs cannot start")

	w, response = performRequest(t, router, http.MethodPost, "/api/v1/bookings/"+id+"/accept", f.provider, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.BookingAccepted, decode[models.Booking](t, response.Data).Status)

	w, response = performRequest(t, router, http.MethodPost, "/api/v1/bookings/"+id+"/start", f.provider, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.BookingInProgress, decode[models.Booking](t, response.Data).Status)

	w, response = performRequest(t, router, http.MethodPost, "/api/v1/bookings/"+id+"/complete", f.client, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "completion needs both confirmations")
	assert.Equal(t, "INVALID_TRANSITION", response.Error.Kind)

	w, response = performRequest(t, router, http.MethodPost, "/api/v1/bookings/"+id+"/confirm", f.provider, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.Booking](t, response.Data).ProviderConfirmed)

	w, response = performRequest(t, router, http.MethodPost, "/api/v1/bookings/"+id+"/complete", f.client, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.BookingCompleted, decode[models.Booking](t, response.Data).Status)

	w, response = performRequest(t, router, http.MethodPost, "/api/v1/bookings/"+id+"/cancel", f.client, map[string]any{"reason": "too late"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", response.Error.Kind)

	w, response = performRequest(t, router, http.MethodPost, "/api/v1/bookings/missing/accept", f.provider, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "BOOKING_NOT_FOUND", response.Error.Code)
}

func TestCancelAndDeclineRecordReasons(t *testing.T) {
	f := newBookingFixture(t)
	router := bookingRouter()

	w, response := performRequest(t, router, http.MethodPost, "/api/v1/bookings", f.client, f.request())
	require.Equal(t, http.StatusCreated, w.Code)
	first := decode[models.Booking](t, response.Data).ID

	w, response = performRequest(t, router, http.MethodPost, "/api/v1/bookings/"+first+"/cancel", f.client, map[string]any{"reason": "found someone closer"})
	require.Equal(t, http.StatusOK, w.Code)
	cancelled := decode[models.Booking](t, response.Data)
	assert.Equal(t, models.BookingCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, f.client.ID, *cancelled.CancelledBy)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "found someone closer", *cancelled.CancellationReason)

	w, response = performRequest(t, router, http.MethodPost, "/api/v1/bookings", f.client, f.request())
	require.Equal(t, http.StatusCreated, w.Code)
	second := decode[models.Booking](t, response.Data).ID

	w, response = performRequest(t, router, http.MethodPost, "/api/v1/bookings/"+second+"/decline", f.provider, map[string]any{"reason": "fully booked"})
	require.Equal(t, http.StatusOK, w.Code)
	declined := decode[models.Booking](t, response.Data)
	assert.Equal(t, models.BookingDeclined, declined.Status)
	require.NotNil(t, declined.DeclineReason)
	assert.Equal(t, "fully booked", *declined.DeclineReason)
}

func TestListAndGetBookings(t *testing.T) {
	f := newBookingFixture(t)
	router := bookingRouter()
	stranger := testutil.CreateProfile(t, f.db, models.RoleClient, "Sam Stranger")
	admin := testutil.CreateProfile(t, f.db, models.RoleAdmin, "Ada Admin")

	var ids []string
	for i := 0; i < 3; i++ {
		w, response := performRequest(t, router, http.MethodPost, "/api/v1/bookings", f.client, f.request())
		require.Equal(t, http.StatusCreated, w.Code)
		ids = append(ids, decode[models.Booking](t, response.Data).ID)
	}

	w, response := performRequest(t, router, http.MethodGet, "/api/v1/bookings?limit=2", f.client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[[]models.BookingWithDetails](t, response.Data)
	assert.Len(t, page, 2)
	require.NotNil(t, response.Pagination)
	assert.EqualValues(t, 3, response.Pagination.Total)
	assert.Equal(t, 2, response.Pagination.TotalPages)
	assert.Equal(t, "Pat Plumber", page[0].Provider.Name)
	assert.Equal(t, "plumbing", page[0].Service.Name)

	w, response = performRequest(t, router, http.MethodGet, "/api/v1/bookings?status=pending", f.provider, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.BookingWithDetails](t, response.Data), 3)

	w, response = performRequest(t, router, http.MethodGet, "/api/v1/bookings", stranger, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.BookingWithDetails](t, response.Data))

	w, response = performRequest(t, router, http.MethodGet, "/api/v1/bookings?status=bogus", f.client, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, response = performRequest(t, router, http.MethodGet, "/api/v1/bookings/"+ids[0], stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, response = performRequest(t, router, http.MethodGet, "/api/v1/bookings/"+ids[0], admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ids[0], decode[models.BookingWithDetails](t, response.Data).ID)
}
