package services

import (
	"context"
	"testing"

	"github.com/kendall-kelly/fixnow-api/models"
	"github.com/kendall-kelly/fixnow-api/tests/testutil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestReviewService_RatingIsExactMean(t *testing.T) {
	m := newMarketplace(t)

	for _, rating := range []int{5, 4, 4} {
		m.review(t, rating)
	}

	provider := m.loadProvider(t)
	assert.EqualValues(t, 3, provider.TotalReviews)
	assert.InDelta(t, 13.0/3.0, provider.AverageRating, 1e-9)
}

func TestReviewService_SubmitReview(t *testing.T) {
	m := newMarketplace(t)
	svc := NewReviewService(m.db, nil)
	ctx := context.Background()

	completed := m.insertBooking(t, models.BookingCompleted)
	inProgress := m.insertBooking(t, models.BookingInProgress)

	tests := []struct {
		name      string
		bookingID string
		actor     Actor
		rating    int
		target    error
	}{
		{"rating zero", completed.ID, m.client, 0, ErrValidation},
		{"rating six", completed.ID, m.client, 6, ErrValidation},
		{"provider reviews", completed.ID, m.provider, 5, ErrValidation},
		{"admin reviews", completed.ID, m.admin, 5, ErrValidation},
		{"job not finished", inProgress.ID, m.client, 5, ErrInvalidState},
		{"unknown booking", "missing", m.client, 5, &DomainError{Kind: KindNotFound, Code: "BOOKING_NOT_FOUND"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitReview(ctx, tt.bookingID, tt.actor, tt.rating, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}

	review, err := svc.SubmitReview(ctx, completed.ID, m.client, 3, strPtr("  Late but tidy  "))
	require.NoError(t, err)
	assert.Equal(t, m.provider.ID, review.ProviderID)
	require.NotNil(t, review.Comment)
	assert.Equal(t, "Late but tidy", *review.Comment)

	blank, err := svc.SubmitReview(ctx, m.insertBooking(t, models.BookingCompleted).ID, m.client, 4, strPtr("   "))
	require.NoError(t, err)
	assert.Nil(t, blank.Comment, "a blank comment is dropped")

	_, err = svc.SubmitReview(ctx, completed.ID, m.client, 5, nil)
	assert.True(t, errors.Is(err, ErrInvalidState), "one review per booking")

	provider := m.loadProvider(t)
	assert.EqualValues(t, 2, provider.TotalReviews)
	assert.InDelta(t, 3.5, provider.AverageRating, 1e-9)
}

// The sqlite test pool holds a single connection, so these transactions run one
// after another. This checks that concurrent callers end with consistent totals.
// It does not exercise the provider row lock, which sqlite ignores; that needs postgres.
func TestReviewService_ConcurrentReviewsKeepTotalsConsistent(t *testing.T) {
	m := newMarketplace(t)
	svc := NewReviewService(m.db, nil)

	ratings := []int{5, 1, 4, 2, 3, 5, 5, 4}
	bookings := make([]*models.Booking, len(ratings))
	for i := range ratings {
		bookings[i] = m.insertBooking(t, models.BookingCompleted)
	}

	var g errgroup.Group
	for i, rating := range ratings {
		bookingID := bookings[i].ID
		g.Go(func() error {
			_, err := svc.SubmitReview(context.Background(), bookingID, m.client, rating, nil)
			return err
		})
	}
	require.NoError(t, g.Wait())

	sum := 0
	for _, r := range ratings {
		sum += r
	}
	provider := m.loadProvider(t)
	assert.EqualValues(t, len(ratings), provider.TotalReviews)
	assert.InDelta(t, float64(sum)/float64(len(ratings)), provider.AverageRating, 1e-9)
}

// Serialized by the single-connection pool like the test above.
func TestReviewService_ConcurrentDuplicateReviews(t *testing.T) {
	m := newMarketplace(t)
	svc := NewReviewService(m.db, nil)
	booking := m.insertBooking(t, models.BookingCompleted)

	errs := make([]error, 4)
	var g errgroup.Group
	for i := range errs {
		g.Go(func() error {
			_, errs[i] = svc.SubmitReview(context.Background(), booking.ID, m.client, 4, nil)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ErrInvalidState), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.EqualValues(t, 1, m.loadProvider(t).TotalReviews)
}

func TestReviewService_FlagAndUnflag(t *testing.T) {
	m := newMarketplace(t)
	svc := NewReviewService(m.db, nil)
	ctx := context.Background()
	otherProvider := ActorFor(testutil.CreateProvider(t, m.db, "Olly Other", "Springfield", 30, "plumbing"))

	m.review(t, 5)
	harsh := m.review(t, 1)
	assert.InDelta(t, 3.0, m.loadProvider(t).AverageRating, 1e-9)

	_, err := svc.FlagReview(ctx, harsh.ID, m.client, "unfair")
	assert.True(t, errors.Is(err, ErrUnauthorized))
	_, err = svc.FlagReview(ctx, harsh.ID, otherProvider, "unfair")
	assert.True(t, errors.Is(err, ErrUnauthorized))
	_, err = svc.FlagReview(ctx, harsh.ID, m.provider, " ")
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = svc.FlagReview(ctx, "missing", m.admin, "spam")
	assert.True(t, errors.Is(err, &DomainError{Kind: KindNotFound, Code: "REVIEW_NOT_FOUND"}))

	flagged, err := svc.FlagReview(ctx, harsh.ID, m.provider, "Never worked for this client")
	require.NoError(t, err)
	assert.True(t, flagged.IsFlagged)
	require.NotNil(t, flagged.FlagReason)

	provider := m.loadProvider(t)
	assert.EqualValues(t, 1, provider.TotalReviews)
	assert.InDelta(t, 5.0, provider.AverageRating, 1e-9)

	visible, err := svc.ListProviderReviews(ctx, m.provider.ID)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, 5, visible[0].Rating)
	assert.Equal(t, "Casey Client", visible[0].Client.Name)

	_, err = svc.FlagReview(ctx, harsh.ID, m.admin, "again")
	assert.True(t, errors.Is(err, ErrInvalidState))

	_, err = svc.UnflagReview(ctx, harsh.ID, m.provider)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	restored, err := svc.UnflagReview(ctx, harsh.ID, m.admin)
	require.NoError(t, err)
	assert.False(t, restored.IsFlagged)
	assert.Nil(t, restored.FlagReason)

	_, err = svc.UnflagReview(ctx, harsh.ID, m.admin)
	assert.True(t, errors.Is(err, ErrInvalidState))

	provider = m.loadProvider(t)
	assert.EqualValues(t, 2, provider.TotalReviews)
	assert.InDelta(t, 3.0, provider.AverageRating, 1e-9)
}

func TestReviewService_AllFlaggedResetsRating(t *testing.T) {
	m := newMarketplace(t)
	svc := NewReviewService(m.db, nil)
	review := m.review(t, 4)

	_, err := svc.FlagReview(context.Background(), review.ID, m.admin, "spam")
	require.NoError(t, err)

	provider := m.loadProvider(t)
	assert.Zero(t, provider.TotalReviews)
	assert.Zero(t, provider.AverageRating)

	_, err = svc.ListProviderReviews(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}
