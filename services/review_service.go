package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kendall-kelly/fixnow-api/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ReviewService creates and moderates reviews and keeps provider ratings in step with them
type ReviewService struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewReviewService creates a review service bound to db
func NewReviewService(db *gorm.DB, logger *slog.Logger) *ReviewService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewService{db: db, logger: logger}
}

// SubmitReview records the client's rating of a completed booking
func (s *ReviewService) SubmitReview(ctx context.Context, bookingID string, actor Actor, rating int, comment *string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, validationError("rating must be between 1 and 5")
	}

	var review models.Review
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.First(&booking, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("BOOKING_NOT_FOUND", "booking not found")
			}
			return errors.Wrap(err, "failed to load booking")
		}
		if actor.ID != booking.ClientID {
			return validationError("only the booking's client can review it")
		}

		// Reviews of one provider serialize on the provider row
		if _, err := lockProvider(tx, booking.ProviderID); err != nil {
			return err
		}

		if err := tx.First(&booking, "id = ?", bookingID).Error; err != nil {
			return errors.Wrap(err, "failed to reload booking")
		}
		if booking.Status != models.BookingCompleted {
			return invalidState("only completed bookings can be reviewed")
		}

		var existing int64
		if err := tx.Model(&models.Review{}).Where("booking_id = ?", booking.ID).Count(&existing).Error; err != nil {
			return errors.Wrap(err, "failed to check existing review")
		}
		if existing > 0 {
			return invalidState("this booking has already been reviewed")
		}

		review = models.Review{
			BookingID:  booking.ID,
			ClientID:   booking.ClientID,
			ProviderID: booking.ProviderID,
			Rating:     rating,
			Comment:    trimmed(comment),
		}
		if err := tx.Create(&review).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return invalidState("this booking has already been reviewed")
			}
			return classifyDBError(err, "failed to create review")
		}

		return recomputeProviderRating(tx, booking.ProviderID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "review submitted",
		"review_id", review.ID, "booking_id", review.BookingID, "provider_id", review.ProviderID, "rating", review.Rating)
	return &review, nil
}

// FlagReview hides a review from the provider's rating. Admins and the reviewed
// provider may flag; a reason is required.
func (s *ReviewService) FlagReview(ctx context.Context, reviewID string, actor Actor, reason string) (*models.Review, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validationError("flag reason is required")
	}

	var review models.Review
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		r, err := findReview(tx, reviewID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && !(actor.IsProvider() && actor.ID == r.ProviderID) {
			return unauthorized("only admins or the reviewed provider can flag this review")
		}

		flagged, err := flagReviewTx(tx, r, reason)
		if err != nil {
			return err
		}
		review = *flagged
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "review flagged", "review_id", review.ID, "actor_id", actor.ID)
	return &review, nil
}

// UnflagReview restores a flagged review to the provider's rating
func (s *ReviewService) UnflagReview(ctx context.Context, reviewID string, actor Actor) (*models.Review, error) {
	if !actor.IsAdmin() {
		return nil, unauthorized("only admins can unflag reviews")
	}

	var review models.Review
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		r, err := findReview(tx, reviewID)
		if err != nil {
			return err
		}
		if _, err := lockProvider(tx, r.ProviderID); err != nil {
			return err
		}
		if !r.IsFlagged {
			return invalidState("review is not flagged")
		}

		err = tx.Model(&models.Review{}).Where("id = ?", r.ID).
			Updates(map[string]any{"is_flagged": false, "flag_reason": nil}).Error
		if err != nil {
			return errors.Wrap(err, "failed to unflag review")
		}
		if err := recomputeProviderRating(tx, r.ProviderID); err != nil {
			return err
		}
		return tx.First(&review, "id = ?", r.ID).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "review unflagged", "review_id", review.ID, "actor_id", actor.ID)
	return &review, nil
}

// ListProviderReviews returns the provider's visible reviews, newest first
func (s *ReviewService) ListProviderReviews(ctx context.Context, providerID string) ([]models.ReviewWithClient, error) {
	db := s.db.WithContext(ctx)
	if _, err := findProvider(db, providerID); err != nil {
		return nil, err
	}

	var reviews []models.Review
	err := db.Where("provider_id = ? AND is_flagged = ?", providerID, false).
		Order("created_at DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list reviews")
	}

	clientIDs := make([]string, 0, len(reviews))
	for _, r := range reviews {
		clientIDs = append(clientIDs, r.ClientID)
	}
	summaries, err := profileSummaries(db, clientIDs)
	if err != nil {
		return nil, err
	}

	out := make([]models.ReviewWithClient, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, models.ReviewWithClient{Review: r, Client: summaries[r.ClientID]})
	}
	return out, nil
}

// flagReviewTx flags r and recomputes its provider's rating under the provider lock
func flagReviewTx(tx *gorm.DB, r *models.Review, reason string) (*models.Review, error) {
	if _, err := lockProvider(tx, r.ProviderID); err != nil {
		return nil, err
	}
	if err := tx.First(r, "id = ?", r.ID).Error; err != nil {
		return nil, errors.Wrap(err, "failed to reload review")
	}
	if r.IsFlagged {
		return nil, invalidState("review is already flagged")
	}

	res := tx.Model(&models.Review{}).
		Where("id = ? AND is_flagged = ?", r.ID, false).
		Updates(map[string]any{"is_flagged": true, "flag_reason": reason})
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "failed to flag review")
	}
	if res.RowsAffected == 0 {
		return nil, conflict("review was modified concurrently")
	}
	if err := recomputeProviderRating(tx, r.ProviderID); err != nil {
		return nil, err
	}

	r.IsFlagged = true
	r.FlagReason = &reason
	return r, nil
}

// recomputeProviderRating sets average_rating and total_reviews from the
// provider's non-flagged reviews. Callers hold the provider row lock.
func recomputeProviderRating(tx *gorm.DB, providerID string) error {
	var agg struct {
		Average float64
		Total   int64
	}
	err := tx.Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS total").
		Where("provider_id = ? AND is_flagged = ?", providerID, false).
		Scan(&agg).Error
	if err != nil {
		return errors.Wrap(err, "failed to aggregate reviews")
	}

	err = tx.Model(&models.Provider{}).Where("id = ?", providerID).
		Updates(map[string]any{
			"average_rating": agg.Average,
			"total_reviews":  agg.Total,
			"updated_at":     tx.NowFunc(),
		}).Error
	if err != nil {
		return errors.Wrap(err, "failed to update provider rating")
	}
	return nil
}

func lockProvider(tx *gorm.DB, providerID string) (*models.Provider, error) {
	var p models.Provider
	if err := forUpdate(tx).First(&p, "id = ?", providerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("PROVIDER_NOT_FOUND", "provider not found")
		}
		return nil, errors.Wrap(err, "failed to lock provider")
	}
	return &p, nil
}

func findReview(tx *gorm.DB, reviewID string) (*models.Review, error) {
	var r models.Review
	if err := tx.First(&r, "id = ?", reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("REVIEW_NOT_FOUND", "review not found")
		}
		return nil, errors.Wrap(err, "failed to load review")
	}
	return &r, nil
}
