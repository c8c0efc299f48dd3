package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kendall-kelly/fixnow-api/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// FileReportInput names exactly one target: a user or a review
type FileReportInput struct {
	ReportedUserID   *string `json:"reported_user_id"`
	ReportedReviewID *string `json:"reported_review_id"`
	Reason           string  `json:"reason" validate:"required,max=2000"`
}

// ResolveReportInput is an admin's decision on a report
type ResolveReportInput struct {
	Status     models.ReportStatus `json:"status" validate:"required,oneof=resolved dismissed"`
	AdminNotes *string             `json:"admin_notes"`
}

// ReportService runs the moderation queue
type ReportService struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewReportService creates a report service bound to db
func NewReportService(db *gorm.DB, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{db: db, logger: logger}
}

// FileReport queues a report against a user or a review
func (s *ReportService) FileReport(ctx context.Context, actor Actor, in FileReportInput) (*models.Report, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	in.ReportedUserID = trimmed(in.ReportedUserID)
	in.ReportedReviewID = trimmed(in.ReportedReviewID)

	if (in.ReportedUserID == nil) == (in.ReportedReviewID == nil) {
		return nil, validationError("a report must name exactly one of reported_user_id or reported_review_id")
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.ReportedUserID != nil && *in.ReportedUserID == actor.ID {
		return nil, validationError("you cannot report yourself")
	}

	report := models.Report{
		ReporterID:       actor.ID,
		ReportedUserID:   in.ReportedUserID,
		ReportedReviewID: in.ReportedReviewID,
		Reason:           in.Reason,
		Status:           models.ReportPending,
	}

	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		if in.ReportedUserID != nil {
			if _, err := findProfile(tx, *in.ReportedUserID); err != nil {
				return err
			}
		} else {
			review, err := findReview(tx, *in.ReportedReviewID)
			if err != nil {
				return err
			}
			if review.ClientID == actor.ID {
				return validationError("you cannot report your own review")
			}
		}
		return classifyDBError(tx.Create(&report).Error, "failed to create report")
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "report filed", "report_id", report.ID, "reporter_id", actor.ID)
	return &report, nil
}

// ResolveReport closes a pending report. Resolving a review report also flags
// the review and recomputes the provider's rating in the same transaction.
func (s *ReportService) ResolveReport(ctx context.Context, reportID string, actor Actor, in ResolveReportInput) (*models.Report, error) {
	if !actor.IsAdmin() {
		return nil, unauthorized("only admins can resolve reports")
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	notes := trimmed(in.AdminNotes)

	var report models.Report
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&report, "id = ?", reportID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("REPORT_NOT_FOUND", "report not found")
			}
			return errors.Wrap(err, "failed to load report")
		}
		if report.Status.IsTerminal() {
			return invalidTransition("report has already been %s", report.Status)
		}

		res := tx.Model(&models.Report{}).
			Where("id = ? AND status = ?", report.ID, models.ReportPending).
			Updates(map[string]any{
				"status":      in.Status,
				"admin_notes": notes,
				"resolved_by": actor.ID,
				"resolved_at": tx.NowFunc(),
			})
		if res.Error != nil {
			return classifyDBError(res.Error, "failed to resolve report")
		}
		if res.RowsAffected == 0 {
			return conflict("report was modified concurrently")
		}

		if in.Status == models.ReportResolved && report.ReportedReviewID != nil {
			review, err := findReview(tx, *report.ReportedReviewID)
			if err != nil {
				return err
			}
			if !review.IsFlagged {
				if _, err := flagReviewTx(tx, review, flagReasonFor(report, notes)); err != nil {
					return err
				}
			}
		}

		return tx.First(&report, "id = ?", report.ID).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "report resolved", "report_id", report.ID, "status", report.Status, "admin_id", actor.ID)
	return &report, nil
}

// ListReports returns reports for the admin queue, newest first
func (s *ReportService) ListReports(ctx context.Context, actor Actor, status models.ReportStatus) ([]models.Report, error) {
	if !actor.IsAdmin() {
		return nil, unauthorized("only admins can view reports")
	}

	query := s.db.WithContext(ctx).Model(&models.Report{})
	if status != "" {
		switch status {
		case models.ReportPending, models.ReportResolved, models.ReportDismissed:
		default:
			return nil, validationError("unknown report status %q", status)
		}
		query = query.Where("status = ?", status)
	}

	reports := []models.Report{}
	if err := query.Order("created_at DESC").Find(&reports).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list reports")
	}
	return reports, nil
}

func flagReasonFor(report models.Report, notes *string) string {
	if notes != nil {
		return *notes
	}
	return "Reported: " + report.Reason
}
