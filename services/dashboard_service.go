package services

import (
	"context"
	"log/slog"

	"github.com/kendall-kelly/fixnow-api/models"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ClientStats are the counters on a client's dashboard
type ClientStats struct {
	ActiveBookings    int64 `json:"active_bookings"`
	CompletedBookings int64 `json:"completed_bookings"`
	ReviewsGiven      int64 `json:"reviews_given"`
}

// ProviderStats are the counters on a provider's dashboard
type ProviderStats struct {
	PendingJobs        int64                     `json:"pending_jobs"`
	ActiveJobs         int64                     `json:"active_jobs"`
	CompletedJobs      int64                     `json:"completed_jobs"`
	AverageRating      float64                   `json:"average_rating"`
	TotalReviews       int64                     `json:"total_reviews"`
	VerificationStatus models.VerificationStatus `json:"verification_status"`
}

// AdminStats are the moderation counters on an admin's dashboard
type AdminStats struct {
	PendingVerifications int64 `json:"pending_verifications"`
	PendingReports       int64 `json:"pending_reports"`
	FlaggedReviews       int64 `json:"flagged_reviews"`
	TotalBookings        int64 `json:"total_bookings"`
}

// DashboardStats holds the block matching the actor's role
type DashboardStats struct {
	Role     models.Role    `json:"role"`
	Client   *ClientStats   `json:"client,omitempty"`
	Provider *ProviderStats `json:"provider,omitempty"`
	Admin    *AdminStats    `json:"admin,omitempty"`
}

// DashboardService computes role-aware summary counters
type DashboardService struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewDashboardService creates a dashboard service bound to db
func NewDashboardService(db *gorm.DB, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{db: db, logger: logger}
}

// Stats runs the actor's counters concurrently
func (s *DashboardService) Stats(ctx context.Context, actor Actor) (*DashboardStats, error) {
	g, gctx := errgroup.WithContext(ctx)
	db := s.db.WithContext(gctx)
	out := &DashboardStats{Role: actor.Role}

	count := func(dst *int64, model any, query string, args ...any) {
		g.Go(func() error {
			if err := db.Model(model).Where(query, args...).Count(dst).Error; err != nil {
				return errors.Wrap(err, "failed to count dashboard stats")
			}
			return nil
		})
	}

	switch actor.Role {
	case models.RoleClient:
		st := &ClientStats{}
		out.Client = st
		count(&st.ActiveBookings, &models.Booking{}, "client_id = ? AND status IN ?", actor.ID, models.ActiveBookingStatuses)
		count(&st.CompletedBookings, &models.Booking{}, "client_id = ? AND status = ?", actor.ID, models.BookingCompleted)
		count(&st.ReviewsGiven, &models.Review{}, "client_id = ?", actor.ID)

	case models.RoleProvider:
		st := &ProviderStats{}
		out.Provider = st
		count(&st.PendingJobs, &models.Booking{}, "provider_id = ? AND status = ?", actor.ID, models.BookingPending)
		count(&st.ActiveJobs, &models.Booking{}, "provider_id = ? AND status IN ?", actor.ID,
			[]models.BookingStatus{models.BookingAccepted, models.BookingInProgress})
		count(&st.CompletedJobs, &models.Booking{}, "provider_id = ? AND status = ?", actor.ID, models.BookingCompleted)
		g.Go(func() error {
			p, err := findProvider(db, actor.ID)
			if err != nil {
				return err
			}
			st.AverageRating = p.AverageRating
			st.TotalReviews = p.TotalReviews
			st.VerificationStatus = p.VerificationStatus
			return nil
		})

	case models.RoleAdmin:
		st := &AdminStats{}
		out.Admin = st
		count(&st.PendingVerifications, &models.Provider{}, "verification_status = ?", models.VerificationPending)
		count(&st.PendingReports, &models.Report{}, "status = ?", models.ReportPending)
		count(&st.FlaggedReviews, &models.Review{}, "is_flagged = ?", true)
		count(&st.TotalBookings, &models.Booking{}, "1 = 1")

	default:
		return nil, unauthorized("unknown role")
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
