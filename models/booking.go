package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BookingStatus is the state of a booking request
type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingAccepted   BookingStatus = "accepted"
	BookingInProgress BookingStatus = "in_progress"
	BookingCompleted  BookingStatus = "completed"
	BookingDeclined   BookingStatus = "declined"
	BookingCancelled  BookingStatus = "cancelled"
)

// Terminal states have no outgoing edges.
var bookingTransitions = map[BookingStatus]map[BookingStatus]struct{}{
	BookingPending:    {BookingAccepted: {}, BookingDeclined: {}, BookingCancelled: {}},
	BookingAccepted:   {BookingInProgress: {}, BookingDeclined: {}, BookingCancelled: {}},
	BookingInProgress: {BookingCompleted: {}, BookingCancelled: {}},
	BookingCompleted:  {},
	BookingDeclined:   {},
	BookingCancelled:  {},
}

// CanTransition reports whether a booking may move from one status to another
func CanTransition(from, to BookingStatus) bool {
	_, ok := bookingTransitions[from][to]
	return ok
}

// Valid reports whether s is a known booking status
func (s BookingStatus) Valid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// IsTerminal reports whether no further transition is defined from s
func (s BookingStatus) IsTerminal() bool {
	return s == BookingCompleted || s == BookingDeclined || s == BookingCancelled
}

// ActiveBookingStatuses are the non-terminal statuses
var ActiveBookingStatuses = []BookingStatus{BookingPending, BookingAccepted, BookingInProgress}

// TimeSlot is a preferred part of the day for the job
type TimeSlot string

const (
	TimeSlotMorning   TimeSlot = "morning"   // 8am - 12pm
	TimeSlotAfternoon TimeSlot = "afternoon" // 12pm - 5pm
	TimeSlotEvening   TimeSlot = "evening"   // 5pm - 8pm
)

// Valid reports whether t is one of the offered time slots
func (t TimeSlot) Valid() bool {
	return t == TimeSlotMorning || t == TimeSlotAfternoon || t == TimeSlotEvening
}

// Booking is a service request from a client to a provider
type Booking struct {
	ID                 string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	ClientID           string          `gorm:"type:varchar(36);not null;index" json:"client_id"`
	ProviderID         string          `gorm:"type:varchar(36);not null;index" json:"provider_id"`
	ServiceID          string          `gorm:"type:varchar(36);not null;index" json:"service_id"`
	Status             BookingStatus   `gorm:"type:varchar(16);not null;index;check:chk_bookings_status,status IN ('pending','accepted','in_progress','completed','declined','cancelled')" json:"status"`
	Description        string          `gorm:"type:text;not null" json:"description"`
	LocationAddress    string          `gorm:"not null" json:"location_address"`
	LocationCity       string          `gorm:"not null" json:"location_city"`
	PreferredDate      *datatypes.Date `gorm:"type:date" json:"preferred_date"`
	PreferredTimeSlot  *TimeSlot       `gorm:"type:varchar(16)" json:"preferred_time_slot"`
	ClientConfirmed    bool            `gorm:"not null" json:"client_confirmed"`
	ProviderConfirmed  bool            `gorm:"not null" json:"provider_confirmed"`
	CancelledBy        *string         `gorm:"type:varchar(36)" json:"cancelled_by"`
	CancellationReason *string         `gorm:"type:text" json:"cancellation_reason"`
	DeclineReason      *string         `gorm:"type:text" json:"decline_reason"`
	CompletedAt        *time.Time      `json:"completed_at"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Booking model
func (Booking) TableName() string {
	return "bookings"
}

// BeforeCreate assigns a UUID when the caller did not provide one
func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// IsParty reports whether the profile is the client or the assigned provider
func (b Booking) IsParty(profileID string) bool {
	return profileID != "" && (b.ClientID == profileID || b.ProviderID == profileID)
}

// BookingWithDetails is a booking together with both parties and the service
type BookingWithDetails struct {
	Booking
	Client   ProfileSummary `json:"client"`
	Provider ProfileSummary `json:"provider"`
	Service  Service        `json:"service"`
	Review   *Review        `json:"review,omitempty"`
}
