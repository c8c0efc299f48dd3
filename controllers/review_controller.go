package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SubmitReviewRequest represents the request body for reviewing a completed booking
type SubmitReviewRequest struct {
	Rating  int     `json:"rating" binding:"required"`
	Comment *string `json:"comment"`
}

// FlagReviewRequest carries the moderation reason
type FlagReviewRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// SubmitReview handles POST /api/v1/bookings/:id/review
func SubmitReview(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	review, err := reviewService(c).SubmitReview(c.Request.Context(), c.Param("id"), actor, req.Rating, req.Comment)
	if err != nil {
		respondError(c, err, "Failed to submit review")
		return
	}

	respondData(c, http.StatusCreated, review)
}

// FlagReview handles POST /api/v1/reviews/:id/flag - admins and the reviewed provider
func FlagReview(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req FlagReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	review, err := reviewService(c).FlagReview(c.Request.Context(), c.Param("id"), actor, req.Reason)
	if err != nil {
		respondError(c, err, "Failed to flag review")
		return
	}

	respondData(c, http.StatusOK, review)
}

// UnflagReview handles POST /api/v1/admin/reviews/:id/unflag
func UnflagReview(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	review, err := reviewService(c).UnflagReview(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, err, "Failed to unflag review")
		return
	}

	respondData(c, http.StatusOK, review)
}

// ListProviderReviews handles GET /api/v1/providers/:id/reviews - public
func ListProviderReviews(c *gin.Context) {
	reviews, err := reviewService(c).ListProviderReviews(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve reviews")
		return
	}

	respondData(c, http.StatusOK, reviews)
}
