package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"testing"
	"time"

	"github.com/kendall-kelly/fixnow-api/models"
	"github.com/kendall-kelly/fixnow-api/tests/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// marketplace is a database with one client, one approved plumber and one admin
type marketplace struct {
	db       *gorm.DB
	client   Actor
	provider Actor
	admin    Actor
	service  *models.Service
}

func newMarketplace(t *testing.T) marketplace {
	t.Helper()
	testutil.RequireTestEnvironment(t)

	db := testutil.NewTestDB(t)
	return marketplace{
		db:       db,
		client:   ActorFor(testutil.CreateProfile(t, db, models.RoleClient, "Casey Client")),
		provider: ActorFor(testutil.CreateProvider(t, db, "Pat Plumber", "Springfield", 40, "plumbing")),
		admin:    ActorFor(testutil.CreateProfile(t, db, models.RoleAdmin, "Ada Admin")),
		service:  testutil.ServiceByName(t, db, "plumbing"),
	}
}

func (m marketplace) bookingInput() CreateBookingInput {
	return CreateBookingInput{
		ProviderID:        m.provider.ID,
		ServiceID:         m.service.ID,
		Description:       "Leaking kitchen tap",
		LocationAddress:   "12 Elm Street",
		LocationCity:      "Springfield",
		PreferredDate:     "2030-03-14",
		PreferredTimeSlot: "morning",
	}
}

// insertBooking stores a booking in the given status without going through the state machine
func (m marketplace) insertBooking(t *testing.T, status models.BookingStatus) *models.Booking {
	t.Helper()

	booking := &models.Booking{
		ClientID:        m.client.ID,
		ProviderID:      m.provider.ID,
		ServiceID:       m.service.ID,
		Status:          status,
		Description:     "Replace the washer",
		LocationAddress: "12 Elm Street",
		LocationCity:    "Springfield",
	}
	if status == models.BookingCompleted {
		now := time.Now().UTC()
		booking.ClientConfirmed = true
		booking.ProviderConfirmed = true
		booking.CompletedAt = &now
	}
	require.NoError(t, m.db.Create(booking).Error)
	return booking
}

func (m marketplace) loadBooking(t *testing.T, id string) models.Booking {
	t.Helper()
	var b models.Booking
	require.NoError(t, m.db.First(&b, "id = ?", id).Error)
	return b
}

func (m marketplace) loadProvider(t *testing.T) *models.Provider {
	t.Helper()
	return testutil.LoadProvider(t, m.db, m.provider.ID)
}

// review submits a rating for a freshly completed booking
func (m marketplace) review(t *testing.T, rating int) *models.Review {
	t.Helper()
	booking := m.insertBooking(t, models.BookingCompleted)
	review, err := NewReviewService(m.db, nil).SubmitReview(context.Background(), booking.ID, m.client, rating, nil)
	require.NoError(t, err)
	return review
}

func strPtr(s string) *string { return &s }

// fileHeader parses a one-file multipart form so the header can be opened like an upload
func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(&body, writer.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	require.Len(t, form.File["file"], 1)
	return form.File["file"][0]
}
