package services

import (
	"github.com/kendall-kelly/fixnow-api/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// profileSummaries loads the public view of every listed profile, keyed by ID
func profileSummaries(db *gorm.DB, ids []string) (map[string]models.ProfileSummary, error) {
	out := make(map[string]models.ProfileSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var profiles []models.Profile
	if err := db.Where("id IN ?", uniqueIDs(ids)).Find(&profiles).Error; err != nil {
		return nil, errors.Wrap(err, "failed to load profiles")
	}
	for _, p := range profiles {
		out[p.ID] = p.Summary()
	}
	return out, nil
}

// providerServices returns the services offered by each listed provider
func providerServices(db *gorm.DB, providerIDs []string) (map[string][]models.Service, error) {
	out := make(map[string][]models.Service, len(providerIDs))
	if len(providerIDs) == 0 {
		return out, nil
	}
	var rows []providerServiceRow
	err := db.Table("provider_services").
		Select("provider_services.provider_id, services.*").
		Joins("JOIN services ON services.id = provider_services.service_id").
		Where("provider_services.provider_id IN ?", uniqueIDs(providerIDs)).
		Order("services.display_name").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load provider services")
	}
	for _, r := range rows {
		out[r.ProviderID] = append(out[r.ProviderID], r.Service)
	}
	return out, nil
}

type providerServiceRow struct {
	ProviderID string
	models.Service
}

func findProfile(db *gorm.DB, id string) (*models.Profile, error) {
	var p models.Profile
	if err := db.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("USER_NOT_FOUND", "user not found")
		}
		return nil, errors.Wrap(err, "failed to load profile")
	}
	return &p, nil
}

func findProvider(db *gorm.DB, id string) (*models.Provider, error) {
	var p models.Provider
	if err := db.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("PROVIDER_NOT_FOUND", "provider not found")
		}
		return nil, errors.Wrap(err, "failed to load provider")
	}
	return &p, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
