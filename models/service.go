package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is an offerable service type in the catalog. Name is the stable machine key.
type Service struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	DisplayName string    `gorm:"not null" json:"display_name"`
	Description *string   `gorm:"type:text" json:"description"`
	Icon        *string   `json:"icon"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for the Service model
func (Service) TableName() string {
	return "services"
}

// BeforeCreate assigns a UUID when the caller did not provide one
func (s *Service) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// ProviderService links a provider to a service it offers
type ProviderService struct {
	ProviderID string `gorm:"type:varchar(36);primaryKey" json:"provider_id"`
	ServiceID  string `gorm:"type:varchar(36);primaryKey;index" json:"service_id"`
}

// TableName specifies the table name for the ProviderService model
func (ProviderService) TableName() string {
	return "provider_services"
}

// ProviderWithProfile is the provider as shown in search results and on the profile page
type ProviderWithProfile struct {
	Provider
	Profile  ProfileSummary `json:"profile"`
	Services []Service      `json:"services"`
}

// PendingProvider is an entry of the admin verification queue
type PendingProvider struct {
	ProviderWithProfile
	VerificationNotes *string `json:"verification_notes"`
}

// NewPendingProviders adds the verification notes to each provider
func NewPendingProviders(providers []ProviderWithProfile) []PendingProvider {
	out := make([]PendingProvider, 0, len(providers))
	for _, p := range providers {
		out = append(out, PendingProvider{ProviderWithProfile: p, VerificationNotes: p.VerificationNotes})
	}
	return out
}
