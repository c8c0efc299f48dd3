package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kendall-kelly/fixnow-api/models"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreateBookingInput is the client's request for a job
type CreateBookingInput struct {
	ProviderID        string `json:"provider_id" validate:"required"`
	ServiceID         string `json:"service_id" validate:"required"`
	Description       string `json:"description" validate:"required"`
	LocationAddress   string `json:"location_address" validate:"required"`
	LocationCity      string `json:"location_city" validate:"required"`
	PreferredDate     string `json:"preferred_date" validate:"required,datetime=2006-01-02"`
	PreferredTimeSlot string `json:"preferred_time_slot" validate:"required,oneof=morning afternoon evening"`
}

func (in *CreateBookingInput) normalize() {
	in.ProviderID = strings.TrimSpace(in.ProviderID)
	in.ServiceID = strings.TrimSpace(in.ServiceID)
	in.Description = strings.TrimSpace(in.Description)
	in.LocationAddress = strings.TrimSpace(in.LocationAddress)
	in.LocationCity = strings.TrimSpace(in.LocationCity)
	in.PreferredDate = strings.TrimSpace(in.PreferredDate)
	in.PreferredTimeSlot = strings.TrimSpace(in.PreferredTimeSlot)
}

// ListBookingsParams filters the booking list
type ListBookingsParams struct {
	Status models.BookingStatus
	Page   int
	Limit  int
}

// BookingService runs the booking state machine. Every transition locks the
// booking row and applies a conditional update on the status it read.
type BookingService struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewBookingService creates a booking service bound to db
func NewBookingService(db *gorm.DB, logger *slog.Logger) *BookingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookingService{db: db, logger: logger}
}

// CreateBooking opens a pending booking from a client to a provider
func (s *BookingService) CreateBooking(ctx context.Context, actor Actor, in CreateBookingInput) (*models.Booking, error) {
	if !actor.IsClient() {
		return nil, unauthorized("only clients can create bookings")
	}
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	date, err := time.Parse("2006-01-02", in.PreferredDate)
	if err != nil {
		return nil, validationError("preferred_date must be a date in the form 2006-01-02")
	}
	preferredDate := datatypes.Date(date)
	slot := models.TimeSlot(in.PreferredTimeSlot)

	booking := &models.Booking{
		ClientID:          actor.ID,
		ProviderID:        in.ProviderID,
		ServiceID:         in.ServiceID,
		Status:            models.BookingPending,
		Description:       in.Description,
		LocationAddress:   in.LocationAddress,
		LocationCity:      in.LocationCity,
		PreferredDate:     &preferredDate,
		PreferredTimeSlot: &slot,
	}

	err = runInTx(ctx, s.db, func(tx *gorm.DB) error {
		provider, err := findProvider(tx, in.ProviderID)
		if err != nil {
			return err
		}
		if !provider.IsActive {
			return validationError("provider is not accepting bookings")
		}

		var service models.Service
		if err := tx.First(&service, "id = ?", in.ServiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return validationError("service does not exist")
			}
			return errors.Wrap(err, "failed to load service")
		}
		if !service.IsActive {
			return validationError("service is not available")
		}

		var offered int64
		err = tx.Model(&models.ProviderService{}).
			Where("provider_id = ? AND service_id = ?", provider.ID, service.ID).
			Count(&offered).Error
		if err != nil {
			return errors.Wrap(err, "failed to check provider services")
		}
		if offered == 0 {
			return validationError("provider does not offer this service")
		}

		return classifyDBError(tx.Create(booking).Error, "failed to create booking")
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "booking created",
		"booking_id", booking.ID, "client_id", booking.ClientID, "provider_id", booking.ProviderID)
	return booking, nil
}

// AcceptBooking moves a pending booking to accepted
func (s *BookingService) AcceptBooking(ctx context.Context, bookingID string, actor Actor) (*models.Booking, error) {
	return s.transition(ctx, bookingID, actor, models.BookingAccepted, isAssignedProvider, nil)
}

// DeclineBooking lets the assigned provider turn down a pending or accepted booking
func (s *BookingService) DeclineBooking(ctx context.Context, bookingID string, actor Actor, reason string) (*models.Booking, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validationError("decline reason is required")
	}
	return s.transition(ctx, bookingID, actor, models.BookingDeclined, isAssignedProvider,
		func(_ *gorm.DB, _ *models.Booking, updates map[string]any) error {
			updates["decline_reason"] = reason
			return nil
		})
}

// StartJob marks an accepted booking as in progress
func (s *BookingService) StartJob(ctx context.Context, bookingID string, actor Actor) (*models.Booking, error) {
	return s.transition(ctx, bookingID, actor, models.BookingInProgress, isAssignedProvider, nil)
}

// CancelBooking cancels a non-terminal booking on behalf of a party or an admin
func (s *BookingService) CancelBooking(ctx context.Context, bookingID string, actor Actor, reason string) (*models.Booking, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validationError("cancellation reason is required")
	}
	canCancel := func(b *models.Booking, a Actor) bool {
		return a.IsAdmin() || b.IsParty(a.ID)
	}
	return s.transition(ctx, bookingID, actor, models.BookingCancelled, canCancel,
		func(_ *gorm.DB, _ *models.Booking, updates map[string]any) error {
			updates["cancelled_by"] = actor.ID
			updates["cancellation_reason"] = reason
			return nil
		})
}

// CompleteBooking records the actor's confirmation and completes the job once
// both parties have confirmed. Without the other party's confirmation nothing is written.
func (s *BookingService) CompleteBooking(ctx context.Context, bookingID string, actor Actor) (*models.Booking, error) {
	isParty := func(b *models.Booking, a Actor) bool { return b.IsParty(a.ID) }

	booking, err := s.transition(ctx, bookingID, actor, models.BookingCompleted, isParty,
		func(tx *gorm.DB, b *models.Booking, updates map[string]any) error {
			clientConfirmed := b.ClientConfirmed || actor.ID == b.ClientID
			providerConfirmed := b.ProviderConfirmed || actor.ID == b.ProviderID
			if !clientConfirmed || !providerConfirmed {
				return invalidTransition("both client and provider must confirm before completion")
			}

			now := tx.NowFunc()
			updates["client_confirmed"] = true
			updates["provider_confirmed"] = true
			updates["completed_at"] = now

			res := tx.Model(&models.Provider{}).
				Where("id = ?", b.ProviderID).
				UpdateColumn("total_jobs_completed", gorm.Expr("total_jobs_completed + 1"))
			if res.Error != nil {
				return errors.Wrap(res.Error, "failed to update provider job count")
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "booking completed", "booking_id", booking.ID, "provider_id", booking.ProviderID)
	return booking, nil
}

// ConfirmBooking sets the actor's own confirmation flag while the job is accepted or in progress
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID string, actor Actor) (*models.Booking, error) {
	var booking models.Booking
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.lockBooking(tx, bookingID, &booking); err != nil {
			return err
		}
		if booking.Status != models.BookingAccepted && booking.Status != models.BookingInProgress {
			return invalidTransition("cannot confirm a booking that is %s", booking.Status)
		}

		var column string
		switch actor.ID {
		case booking.ClientID:
			column = "client_confirmed"
		case booking.ProviderID:
			column = "provider_confirmed"
		default:
			return invalidTransition("only the client or the assigned provider can confirm this booking")
		}

		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", booking.ID, booking.Status).
			Updates(map[string]any{column: true, "updated_at": tx.NowFunc()})
		if res.Error != nil {
			return classifyDBError(res.Error, "failed to confirm booking")
		}
		if res.RowsAffected == 0 {
			return conflict("booking was modified concurrently")
		}
		return tx.First(&booking, "id = ?", booking.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetBooking returns a booking with both parties, visible to the parties and admins
func (s *BookingService) GetBooking(ctx context.Context, bookingID string, actor Actor) (*models.BookingWithDetails, error) {
	db := s.db.WithContext(ctx)

	var booking models.Booking
	if err := db.First(&booking, "id = ?", bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("BOOKING_NOT_FOUND", "booking not found")
		}
		return nil, errors.Wrap(err, "failed to load booking")
	}
	if !actor.IsAdmin() && !booking.IsParty(actor.ID) {
		return nil, unauthorized("you do not have access to this booking")
	}

	details, err := bookingDetails(db, []models.Booking{booking})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// ListBookings returns the actor's bookings, newest first. Admins see all bookings.
func (s *BookingService) ListBookings(ctx context.Context, actor Actor, params ListBookingsParams) ([]models.BookingWithDetails, Pagination, error) {
	page := NewPagination(params.Page, params.Limit)
	db := s.db.WithContext(ctx)

	query := db.Model(&models.Booking{})
	switch actor.Role {
	case models.RoleClient:
		query = query.Where("client_id = ?", actor.ID)
	case models.RoleProvider:
		query = query.Where("provider_id = ?", actor.ID)
	case models.RoleAdmin:
	default:
		return nil, page, unauthorized("unknown role")
	}
	if params.Status != "" {
		if !params.Status.Valid() {
			return nil, page, validationError("unknown booking status %q", params.Status)
		}
		query = query.Where("status = ?", params.Status)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, page, errors.Wrap(err, "failed to count bookings")
	}
	page.setTotal(total)

	var bookings []models.Booking
	err := query.Order("created_at DESC").Offset(page.Offset()).Limit(page.Limit).Find(&bookings).Error
	if err != nil {
		return nil, page, errors.Wrap(err, "failed to list bookings")
	}

	details, err := bookingDetails(db, bookings)
	if err != nil {
		return nil, page, err
	}
	return details, page, nil
}

func isAssignedProvider(b *models.Booking, a Actor) bool {
	return a.IsProvider() && a.ID == b.ProviderID
}

// bookingMutator adds edge-specific columns to the status update
type bookingMutator func(tx *gorm.DB, b *models.Booking, updates map[string]any) error

// transition applies one edge of the booking state machine inside a transaction
func (s *BookingService) transition(
	ctx context.Context,
	bookingID string,
	actor Actor,
	to models.BookingStatus,
	allowed func(b *models.Booking, a Actor) bool,
	mutate bookingMutator,
) (*models.Booking, error) {
	var booking models.Booking
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.lockBooking(tx, bookingID, &booking); err != nil {
			return err
		}
		from := booking.Status
		if !models.CanTransition(from, to) {
			return invalidTransition("cannot move booking from %s to %s", from, to)
		}
		if !allowed(&booking, actor) {
			return invalidTransition("you are not allowed to move this booking to %s", to)
		}

		updates := map[string]any{"status": to, "updated_at": tx.NowFunc()}
		if mutate != nil {
			if err := mutate(tx, &booking, updates); err != nil {
				return err
			}
		}

		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", booking.ID, from).
			Updates(updates)
		if res.Error != nil {
			return classifyDBError(res.Error, "failed to update booking")
		}
		if res.RowsAffected == 0 {
			return conflict("booking was modified concurrently")
		}
		return tx.First(&booking, "id = ?", booking.ID).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "booking transition",
		"booking_id", booking.ID, "status", booking.Status, "actor_id", actor.ID)
	return &booking, nil
}

func (s *BookingService) lockBooking(tx *gorm.DB, bookingID string, out *models.Booking) error {
	if err := forUpdate(tx).First(out, "id = ?", bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("BOOKING_NOT_FOUND", "booking not found")
		}
		return errors.Wrap(err, "failed to load booking")
	}
	return nil
}

// bookingDetails joins parties, services and reviews onto a page of bookings
func bookingDetails(db *gorm.DB, bookings []models.Booking) ([]models.BookingWithDetails, error) {
	out := make([]models.BookingWithDetails, 0, len(bookings))
	if len(bookings) == 0 {
		return out, nil
	}

	var profileIDs, serviceIDs, bookingIDs []string
	for _, b := range bookings {
		profileIDs = append(profileIDs, b.ClientID, b.ProviderID)
		serviceIDs = append(serviceIDs, b.ServiceID)
		bookingIDs = append(bookingIDs, b.ID)
	}

	summaries, err := profileSummaries(db, profileIDs)
	if err != nil {
		return nil, err
	}

	var services []models.Service
	if err := db.Where("id IN ?", uniqueIDs(serviceIDs)).Find(&services).Error; err != nil {
		return nil, errors.Wrap(err, "failed to load services")
	}
	serviceByID := make(map[string]models.Service, len(services))
	for _, svc := range services {
		serviceByID[svc.ID] = svc
	}

	var reviews []models.Review
	if err := db.Where("booking_id IN ?", bookingIDs).Find(&reviews).Error; err != nil {
		return nil, errors.Wrap(err, "failed to load reviews")
	}
	reviewByBooking := make(map[string]*models.Review, len(reviews))
	for i := range reviews {
		reviewByBooking[reviews[i].BookingID] = &reviews[i]
	}

	for _, b := range bookings {
		out = append(out, models.BookingWithDetails{
			Booking:  b,
			Client:   summaries[b.ClientID],
			Provider: summaries[b.ProviderID],
			Service:  serviceByID[b.ServiceID],
			Review:   reviewByBooking[b.ID],
		})
	}
	return out, nil
}
