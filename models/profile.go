package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the closed set of account kinds. It is chosen at sign-up and never changes.
type Role string

const (
	RoleClient   Role = "client"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

// Profile represents an account holder (client, provider or admin)
type Profile struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Auth0ID   string    `gorm:"uniqueIndex;not null" json:"-"` // Auth0 user ID (from 'sub' claim)
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	FullName  *string   `json:"full_name"`
	Phone     *string   `json:"phone"`
	AvatarURL *string   `json:"avatar_url"`
	Role      Role      `gorm:"type:varchar(16);not null;check:chk_profiles_role,role IN ('client','provider','admin')" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Profile model
func (Profile) TableName() string {
	return "profiles"
}

// BeforeCreate assigns a UUID when the caller did not provide one
func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// DisplayName returns the full name, or the local part of the email when no name is set
func (p Profile) DisplayName() string {
	if p.FullName != nil && strings.TrimSpace(*p.FullName) != "" {
		return *p.FullName
	}
	if at := strings.Index(p.Email, "@"); at > 0 {
		return p.Email[:at]
	}
	return p.Email
}

// ProfileSummary is the public subset of a profile shown next to reviews and bookings
type ProfileSummary struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

// Summary returns the public view of the profile
func (p Profile) Summary() ProfileSummary {
	return ProfileSummary{ID: p.ID, Name: p.DisplayName(), AvatarURL: p.AvatarURL}
}
