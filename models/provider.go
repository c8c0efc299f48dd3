package models

import (
	"time"

	"gorm.io/gorm"
)

// VerificationStatus tracks the admin review of a provider's documents
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// Demoting an approved provider is a separate operation and has no edge here.
var verificationTransitions = map[VerificationStatus]map[VerificationStatus]struct{}{
	VerificationPending:  {VerificationApproved: {}, VerificationRejected: {}},
	VerificationRejected: {VerificationPending: {}},
	VerificationApproved: {},
}

// CanTransitionVerification reports whether the verification workflow allows from -> to
func CanTransitionVerification(from, to VerificationStatus) bool {
	_, ok := verificationTransitions[from][to]
	return ok
}

// Provider extends a Profile (same ID) with business attributes and verification state.
// AverageRating and TotalReviews are derived from non-flagged reviews and only written
// by the review aggregate recomputation.
type Provider struct {
	ID                 string             `gorm:"type:varchar(36);primaryKey" json:"id"`
	Bio                *string            `gorm:"type:text" json:"bio"`
	ServiceArea        *string            `json:"service_area"`
	HourlyRate         *float64           `gorm:"check:chk_providers_hourly_rate,hourly_rate IS NULL OR hourly_rate >= 0" json:"hourly_rate"`
	IsVerified         bool               `gorm:"not null" json:"is_verified"`
	IsActive           bool               `gorm:"not null;index" json:"is_active"`
	VerificationStatus VerificationStatus `gorm:"type:varchar(16);not null;index;check:chk_providers_verification_status,verification_status IN ('pending','approved','rejected')" json:"verification_status"`
	VerificationNotes  *string            `gorm:"type:text" json:"-"` // owner and admin views only
	IDDocumentKey      *string            `json:"-"` // storage key of the uploaded ID document
	IDDocumentURL      *string            `gorm:"-" json:"id_document_url,omitempty"`
	CertificationKey   *string            `json:"-"`
	CertificationURL   *string            `gorm:"-" json:"certification_url,omitempty"`
	AverageRating      float64            `gorm:"not null;check:chk_providers_average_rating,average_rating >= 0 AND average_rating <= 5" json:"average_rating"`
	TotalReviews       int64              `gorm:"not null" json:"total_reviews"`
	TotalJobsCompleted int64              `gorm:"not null" json:"total_jobs_completed"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// ProviderVerification is the provider as its owner and admins see it, including the reviewer's notes
type ProviderVerification struct {
	*Provider
	VerificationNotes *string `json:"verification_notes"`
}

// NewProviderVerification exposes the verification notes of p
func NewProviderVerification(p *Provider) ProviderVerification {
	return ProviderVerification{Provider: p, VerificationNotes: p.VerificationNotes}
}

// TableName specifies the table name for the Provider model
func (Provider) TableName() string {
	return "providers"
}

// NewProvider returns the provider row created alongside a provider profile
func NewProvider(profileID string) *Provider {
	return &Provider{
		ID:                 profileID,
		IsActive:           true,
		VerificationStatus: VerificationPending,
	}
}

// BeforeCreate keeps IsVerified derived from the verification status
func (p *Provider) BeforeCreate(tx *gorm.DB) error {
	p.IsVerified = p.VerificationStatus == VerificationApproved
	return nil
}

// SetVerificationStatus is the only way verification state changes; IsVerified follows it
func (p *Provider) SetVerificationStatus(status VerificationStatus) {
	p.VerificationStatus = status
	p.IsVerified = status == VerificationApproved
}
