package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a client's rating of a completed booking. Flagged reviews are
// excluded from the provider's aggregate until an admin clears the flag.
type Review struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	BookingID  string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"booking_id"`
	ClientID   string    `gorm:"type:varchar(36);not null;index" json:"client_id"`
	ProviderID string    `gorm:"type:varchar(36);not null;index" json:"provider_id"`
	Rating     int       `gorm:"not null;check:chk_reviews_rating,rating >= 1 AND rating <= 5" json:"rating"`
	Comment    *string   `gorm:"type:text" json:"comment"`
	IsFlagged  bool      `gorm:"not null;index" json:"is_flagged"`
	FlagReason *string   `gorm:"type:text" json:"flag_reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for the Review model
func (Review) TableName() string {
	return "reviews"
}

// BeforeCreate assigns a UUID when the caller did not provide one
func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// ReviewWithClient is a review shown on a provider's page
type ReviewWithClient struct {
	Review
	Client ProfileSummary `json:"client"`
}
