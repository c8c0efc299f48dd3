package services

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kendall-kelly/fixnow-api/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Search sort orders
const (
	SortRating    = "rating"
	SortReviews   = "reviews"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
)

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

var sortOrders = map[string]string{
	SortRating:    "providers.average_rating DESC, providers.total_reviews DESC",
	SortReviews:   "providers.total_reviews DESC, providers.average_rating DESC",
	SortPriceLow:  "providers.hourly_rate IS NULL, providers.hourly_rate ASC",
	SortPriceHigh: "providers.hourly_rate IS NULL, providers.hourly_rate DESC",
}

var serviceNamePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// SearchProvidersParams filters and orders provider discovery
type SearchProvidersParams struct {
	Service      string
	Location     string
	Sort         string
	VerifiedOnly bool
	Page         int
	Limit        int
}

// CreateServiceInput adds a service to the catalog
type CreateServiceInput struct {
	Name        string  `json:"name" validate:"required,max=64"`
	DisplayName string  `json:"display_name" validate:"required,max=128"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
}

// UpdateProviderInput lists the provider's editable business attributes
type UpdateProviderInput struct {
	Bio         *string  `json:"bio"`
	ServiceArea *string  `json:"service_area"`
	HourlyRate  *float64 `json:"hourly_rate" validate:"omitempty,gte=0"`
	IsActive    *bool    `json:"is_active"`
}

// CatalogService covers the service catalog and provider discovery
type CatalogService struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewCatalogService creates a catalog service bound to db
func NewCatalogService(db *gorm.DB, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{db: db, logger: logger}
}

// ListServices returns the active catalog
func (s *CatalogService) ListServices(ctx context.Context) ([]models.Service, error) {
	services := []models.Service{}
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("display_name").Find(&services).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list services")
	}
	return services, nil
}

// CreateService adds a catalog entry. Name is a lowercase machine key such as drain-cleaning.
func (s *CatalogService) CreateService(ctx context.Context, actor Actor, in CreateServiceInput) (*models.Service, error) {
	if !actor.IsAdmin() {
		return nil, unauthorized("only admins can manage the service catalog")
	}
	in.Name = strings.ToLower(strings.TrimSpace(in.Name))
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if !serviceNamePattern.MatchString(in.Name) {
		return nil, validationError("name may only contain lowercase letters, digits and dashes")
	}

	service := models.Service{
		Name:        in.Name,
		DisplayName: in.DisplayName,
		Description: trimmed(in.Description),
		Icon:        trimmed(in.Icon),
		IsActive:    true,
	}
	if err := s.db.WithContext(ctx).Create(&service).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, newDomainError(KindConflict, "SERVICE_EXISTS", "a service named %s already exists", in.Name)
		}
		return nil, classifyDBError(err, "failed to create service")
	}

	s.logger.InfoContext(ctx, "service created", "service_id", service.ID, "name", service.Name)
	return &service, nil
}

// SetProviderServices replaces the services the provider offers
func (s *CatalogService) SetProviderServices(ctx context.Context, actor Actor, names []string) ([]models.Service, error) {
	if !actor.IsProvider() {
		return nil, unauthorized("only providers can choose the services they offer")
	}

	wanted := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			wanted = append(wanted, n)
		}
	}
	wanted = uniqueIDs(wanted)

	services := []models.Service{}
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := lockProvider(tx, actor.ID); err != nil {
			return err
		}

		if len(wanted) > 0 {
			err := tx.Where("name IN ? AND is_active = ?", wanted, true).Order("display_name").Find(&services).Error
			if err != nil {
				return errors.Wrap(err, "failed to load services")
			}
		}
		if len(services) != len(wanted) {
			found := make(map[string]bool, len(services))
			for _, svc := range services {
				found[svc.Name] = true
			}
			var unknown []string
			for _, n := range wanted {
				if !found[n] {
					unknown = append(unknown, n)
				}
			}
			return validationError("unknown or inactive services: %s", strings.Join(unknown, ", "))
		}

		if err := tx.Where("provider_id = ?", actor.ID).Delete(&models.ProviderService{}).Error; err != nil {
			return errors.Wrap(err, "failed to clear provider services")
		}
		if len(services) == 0 {
			return nil
		}
		links := make([]models.ProviderService, 0, len(services))
		for _, svc := range services {
			links = append(links, models.ProviderService{ProviderID: actor.ID, ServiceID: svc.ID})
		}
		return classifyDBError(tx.Create(&links).Error, "failed to save provider services")
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "provider services updated", "provider_id", actor.ID, "count", len(services))
	return services, nil
}

// UpdateProviderProfile edits the provider's business attributes. Verification and
// rating fields are never written here.
func (s *CatalogService) UpdateProviderProfile(ctx context.Context, actor Actor, in UpdateProviderInput) (*models.ProviderWithProfile, error) {
	if !actor.IsProvider() {
		return nil, unauthorized("only providers have a business profile")
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.Bio != nil {
		updates["bio"] = trimmed(in.Bio)
	}
	if in.ServiceArea != nil {
		updates["service_area"] = trimmed(in.ServiceArea)
	}
	if in.HourlyRate != nil {
		updates["hourly_rate"] = *in.HourlyRate
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}

	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := lockProvider(tx, actor.ID); err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		updates["updated_at"] = tx.NowFunc()
		return classifyDBError(
			tx.Model(&models.Provider{}).Where("id = ?", actor.ID).Updates(updates).Error,
			"failed to update provider",
		)
	})
	if err != nil {
		return nil, err
	}
	return s.GetProvider(ctx, actor.ID)
}

// SearchProviders lists active providers matching the filters
func (s *CatalogService) SearchProviders(ctx context.Context, params SearchProvidersParams) ([]models.ProviderWithProfile, Pagination, error) {
	page := NewPagination(params.Page, params.Limit)

	sort := params.Sort
	if sort == "" {
		sort = SortRating
	}
	order, ok := sortOrders[sort]
	if !ok {
		return nil, page, validationError("sort must be one of: rating reviews price-low price-high")
	}

	query := s.db.WithContext(ctx).Model(&models.Provider{}).Where("providers.is_active = ?", true)
	if service := strings.ToLower(strings.TrimSpace(params.Service)); service != "" {
		query = query.Where(`EXISTS (
			SELECT 1 FROM provider_services
			JOIN services ON services.id = provider_services.service_id
			WHERE provider_services.provider_id = providers.id AND services.name = ?)`, service)
	}
	if location := strings.ToLower(strings.TrimSpace(params.Location)); location != "" {
		query = query.Where(`LOWER(providers.service_area) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(location)+"%")
	}
	if params.VerifiedOnly {
		query = query.Where("providers.is_verified = ?", true)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, page, errors.Wrap(err, "failed to count providers")
	}
	page.setTotal(total)

	var providers []models.Provider
	err := query.Order(order).Order("providers.created_at ASC").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&providers).Error
	if err != nil {
		return nil, page, errors.Wrap(err, "failed to search providers")
	}

	results, err := providersWithProfiles(s.db.WithContext(ctx), providers)
	if err != nil {
		return nil, page, err
	}
	return results, page, nil
}

// GetProvider returns one provider with profile and services
func (s *CatalogService) GetProvider(ctx context.Context, providerID string) (*models.ProviderWithProfile, error) {
	db := s.db.WithContext(ctx)
	provider, err := findProvider(db, providerID)
	if err != nil {
		return nil, err
	}
	results, err := providersWithProfiles(db, []models.Provider{*provider})
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}
