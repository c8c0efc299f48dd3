package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportStatus is the moderation state of a report
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

// IsTerminal reports whether the report has been decided
func (s ReportStatus) IsTerminal() bool {
	return s == ReportResolved || s == ReportDismissed
}

// Report flags abuse by a user or in a review. Exactly one target is set.
type Report struct {
	ID               string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	ReporterID       string       `gorm:"type:varchar(36);not null;index" json:"reporter_id"`
	ReportedUserID   *string      `gorm:"type:varchar(36);index;check:chk_reports_single_target,(reported_user_id IS NULL) <> (reported_review_id IS NULL)" json:"reported_user_id"`
	ReportedReviewID *string      `gorm:"type:varchar(36);index" json:"reported_review_id"`
	Reason           string       `gorm:"type:text;not null" json:"reason"`
	Status           ReportStatus `gorm:"type:varchar(16);not null;index;check:chk_reports_status,status IN ('pending','resolved','dismissed')" json:"status"`
	AdminNotes       *string      `gorm:"type:text" json:"admin_notes"`
	ResolvedBy       *string      `gorm:"type:varchar(36)" json:"resolved_by"`
	CreatedAt        time.Time    `json:"created_at"`
	ResolvedAt       *time.Time   `json:"resolved_at"`
}

// TableName specifies the table name for the Report model
func (Report) TableName() string {
	return "reports"
}

// BeforeCreate assigns a UUID when the caller did not provide one
func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
