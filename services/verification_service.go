package services

import (
	"context"
	"log/slog"
	"mime/multipart"

	"github.com/kendall-kelly/fixnow-api/models"
	"github.com/kendall-kelly/fixnow-api/utils"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// VerificationService runs the admin review of provider documents
type VerificationService struct {
	db        *gorm.DB
	documents DocumentService
	logger    *slog.Logger
}

// NewVerificationService creates a verification service. documents may be nil
// when no document storage is configured; document URLs are then omitted.
func NewVerificationService(db *gorm.DB, documents DocumentService, logger *slog.Logger) *VerificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &VerificationService{db: db, documents: documents, logger: logger}
}

// ApproveProvider marks a pending provider as verified
func (s *VerificationService) ApproveProvider(ctx context.Context, providerID string, actor Actor, notes *string) (*models.Provider, error) {
	return s.decide(ctx, providerID, actor, models.VerificationApproved, notes)
}

// RejectProvider turns down a pending provider's verification
func (s *VerificationService) RejectProvider(ctx context.Context, providerID string, actor Actor, notes *string) (*models.Provider, error) {
	return s.decide(ctx, providerID, actor, models.VerificationRejected, notes)
}

func (s *VerificationService) decide(ctx context.Context, providerID string, actor Actor, to models.VerificationStatus, notes *string) (*models.Provider, error) {
	if !actor.IsAdmin() {
		return nil, unauthorized("only admins can review provider verification")
	}

	var provider *models.Provider
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		p, err := lockProvider(tx, providerID)
		if err != nil {
			return err
		}
		from := p.VerificationStatus
		if !models.CanTransitionVerification(from, to) {
			return invalidTransition("cannot move verification from %s to %s", from, to)
		}

		p.SetVerificationStatus(to)
		res := tx.Model(&models.Provider{}).
			Where("id = ? AND verification_status = ?", p.ID, from).
			Updates(map[string]any{
				"verification_status": p.VerificationStatus,
				"is_verified":         p.IsVerified,
				"verification_notes":  trimmed(notes),
				"updated_at":          tx.NowFunc(),
			})
		if res.Error != nil {
			return classifyDBError(res.Error, "failed to update verification")
		}
		if res.RowsAffected == 0 {
			return conflict("provider was modified concurrently")
		}

		provider, err = findProvider(tx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "provider verification decided",
		"provider_id", provider.ID, "status", provider.VerificationStatus, "admin_id", actor.ID)
	return provider, nil
}

// ResubmitVerification puts a rejected provider back in the review queue.
// An ID document must be on file.
func (s *VerificationService) ResubmitVerification(ctx context.Context, actor Actor) (*models.Provider, error) {
	if !actor.IsProvider() {
		return nil, unauthorized("only providers can request verification")
	}

	var provider *models.Provider
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		p, err := lockProvider(tx, actor.ID)
		if err != nil {
			return err
		}
		if !models.CanTransitionVerification(p.VerificationStatus, models.VerificationPending) {
			return invalidTransition("cannot resubmit verification while %s", p.VerificationStatus)
		}
		if p.IDDocumentKey == nil || *p.IDDocumentKey == "" {
			return validationError("upload an ID document before resubmitting")
		}

		res := tx.Model(&models.Provider{}).
			Where("id = ? AND verification_status = ?", p.ID, p.VerificationStatus).
			Updates(map[string]any{
				"verification_status": models.VerificationPending,
				"is_verified":         false,
				"updated_at":          tx.NowFunc(),
			})
		if res.Error != nil {
			return classifyDBError(res.Error, "failed to resubmit verification")
		}
		if res.RowsAffected == 0 {
			return conflict("provider was modified concurrently")
		}

		provider, err = findProvider(tx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "verification resubmitted", "provider_id", provider.ID)
	return provider, nil
}

// UploadVerificationDocument stores a document and records its key on the provider.
// The previous document of the same kind is removed once the new key is saved.
func (s *VerificationService) UploadVerificationDocument(ctx context.Context, actor Actor, kind DocumentKind, fileHeader *multipart.FileHeader) (*models.Provider, error) {
	if !actor.IsProvider() {
		return nil, unauthorized("only providers can upload verification documents")
	}
	if !kind.Valid() {
		return nil, validationError("document kind must be one of: id_document certification")
	}
	if s.documents == nil {
		return nil, errors.New("document storage is not configured")
	}
	if err := utils.ValidateDocumentFile(fileHeader); err != nil {
		return nil, validationError("%s", err.Error())
	}

	key, err := s.documents.UploadDocument(ctx, actor.ID, kind, fileHeader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to store document")
	}

	column := "id_document_key"
	if kind == DocumentCertification {
		column = "certification_key"
	}

	var previous *string
	var provider *models.Provider
	err = runInTx(ctx, s.db, func(tx *gorm.DB) error {
		p, err := lockProvider(tx, actor.ID)
		if err != nil {
			return err
		}
		previous = p.IDDocumentKey
		if kind == DocumentCertification {
			previous = p.CertificationKey
		}

		err = tx.Model(&models.Provider{}).Where("id = ?", p.ID).
			Updates(map[string]any{column: key, "updated_at": tx.NowFunc()}).Error
		if err != nil {
			return errors.Wrap(err, "failed to save document key")
		}

		provider, err = findProvider(tx, p.ID)
		return err
	})
	if err != nil {
		if delErr := s.documents.DeleteDocument(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to remove orphaned document", "key", key, "error", delErr)
		}
		return nil, err
	}

	if previous != nil && *previous != "" && *previous != key {
		if delErr := s.documents.DeleteDocument(ctx, *previous); delErr != nil {
			s.logger.WarnContext(ctx, "failed to remove replaced document", "key", *previous, "error", delErr)
		}
	}

	s.attachDocumentURLs(ctx, provider)
	s.logger.InfoContext(ctx, "verification document uploaded", "provider_id", provider.ID, "kind", kind)
	return provider, nil
}

// GetVerification returns the provider's own verification state with document links
func (s *VerificationService) GetVerification(ctx context.Context, actor Actor) (*models.Provider, error) {
	if !actor.IsProvider() {
		return nil, unauthorized("only providers have a verification status")
	}
	provider, err := findProvider(s.db.WithContext(ctx), actor.ID)
	if err != nil {
		return nil, err
	}
	s.attachDocumentURLs(ctx, provider)
	return provider, nil
}

// ListPendingVerifications returns providers awaiting review, oldest first
func (s *VerificationService) ListPendingVerifications(ctx context.Context, actor Actor) ([]models.ProviderWithProfile, error) {
	if !actor.IsAdmin() {
		return nil, unauthorized("only admins can review provider verification")
	}

	db := s.db.WithContext(ctx)
	var providers []models.Provider
	err := db.Where("verification_status = ?", models.VerificationPending).
		Order("created_at ASC").
		Find(&providers).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending providers")
	}

	for i := range providers {
		s.attachDocumentURLs(ctx, &providers[i])
	}
	return providersWithProfiles(db, providers)
}

// attachDocumentURLs fills the document URLs. A failure only hides the link.
func (s *VerificationService) attachDocumentURLs(ctx context.Context, p *models.Provider) {
	if s.documents == nil || p == nil {
		return
	}
	resolve := func(key *string) *string {
		if key == nil || *key == "" {
			return nil
		}
		url, err := s.documents.GetDocumentURL(ctx, *key)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to resolve document URL", "provider_id", p.ID, "error", err)
			return nil
		}
		return &url
	}
	p.IDDocumentURL = resolve(p.IDDocumentKey)
	p.CertificationURL = resolve(p.CertificationKey)
}

// providersWithProfiles joins the profile summary and offered services onto providers
func providersWithProfiles(db *gorm.DB, providers []models.Provider) ([]models.ProviderWithProfile, error) {
	out := make([]models.ProviderWithProfile, 0, len(providers))
	if len(providers) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(providers))
	for _, p := range providers {
		ids = append(ids, p.ID)
	}
	summaries, err := profileSummaries(db, ids)
	if err != nil {
		return nil, err
	}
	offered, err := providerServices(db, ids)
	if err != nil {
		return nil, err
	}

	for _, p := range providers {
		services := offered[p.ID]
		if services == nil {
			services = []models.Service{}
		}
		out = append(out, models.ProviderWithProfile{
			Provider: p,
			Profile:  summaries[p.ID],
			Services: services,
		})
	}
	return out, nil
}
