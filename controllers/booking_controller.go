package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/fixnow-api/models"
	"github.com/kendall-kelly/fixnow-api/services"
)

// CreateBooking handles POST /api/v1/bookings - a client requests a job from a provider
func CreateBooking(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.CreateBookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	booking, err := bookingService(c).CreateBooking(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err, "Failed to create booking")
		return
	}

	respondData(c, http.StatusCreated, booking)
}

// ListBookings handles GET /api/v1/bookings - the caller's bookings, paginated
func ListBookings(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	bookings, page, err := bookingService(c).ListBookings(c.Request.Context(), actor, services.ListBookingsParams{
		Status: models.BookingStatus(c.Query("status")),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 20),
	})
	if err != nil {
		respondError(c, err, "Failed to retrieve bookings")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       bookings,
		"pagination": page,
	})
}

// GetBooking handles GET /api/v1/bookings/:id
func GetBooking(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	booking, err := bookingService(c).GetBooking(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, err, "Failed to retrieve booking")
		return
	}

	respondData(c, http.StatusOK, booking)
}

type bookingAction func(ctx context.Context, svc *services.BookingService, id string, actor services.Actor, reason string) (*models.Booking, error)

// bookingTransition builds the handler for one state machine edge
func bookingTransition(action bookingAction, failure string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}

		var req OptionalReason
		if !bindOptionalJSON(c, &req) {
			return
		}

		booking, err := action(c.Request.Context(), bookingService(c), c.Param("id"), actor, req.Reason)
		if err != nil {
			respondError(c, err, failure)
			return
		}

		respondData(c, http.StatusOK, booking)
	}
}

// AcceptBooking handles POST /api/v1/bookings/:id/accept
var AcceptBooking = bookingTransition(
	func(ctx context.Context, svc *services.BookingService, id string, actor services.Actor, _ string) (*models.Booking, error) {
		return svc.AcceptBooking(ctx, id, actor)
	}, "Failed to accept booking")

// DeclineBooking handles POST /api/v1/bookings/:id/decline with {"reason": "..."}
var DeclineBooking = bookingTransition(
	func(ctx context.Context, svc *services.BookingService, id string, actor services.Actor, reason string) (*models.Booking, error) {
		return svc.DeclineBooking(ctx, id, actor, reason)
	}, "Failed to decline booking")

// StartJob handles POST /api/v1/bookings/:id/start
var StartJob = bookingTransition(
	func(ctx context.Context, svc *services.BookingService, id string, actor services.Actor, _ string) (*models.Booking, error) {
		return svc.StartJob(ctx, id, actor)
	}, "Failed to start job")

// ConfirmBooking handles POST /api/v1/bookings/:id/confirm
var ConfirmBooking = bookingTransition(
	func(ctx context.Context, svc *services.BookingService, id string, actor services.Actor, _ string) (*models.Booking, error) {
		return svc.ConfirmBooking(ctx, id, actor)
	}, "Failed to confirm booking")

// CompleteBooking handles POST /api/v1/bookings/:id/complete
var CompleteBooking = bookingTransition(
	func(ctx context.Context, svc *services.BookingService, id string, actor services.Actor, _ string) (*models.Booking, error) {
		return svc.CompleteBooking(ctx, id, actor)
	}, "Failed to complete booking")

// CancelBooking handles POST /api/v1/bookings/:id/cancel with {"reason": "..."}
var CancelBooking = bookingTransition(
	func(ctx context.Context, svc *services.BookingService, id string, actor services.Actor, reason string) (*models.Booking, error) {
		return svc.CancelBooking(ctx, id, actor, reason)
	}, "Failed to cancel booking")
