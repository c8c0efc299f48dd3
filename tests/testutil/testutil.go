package testutil

import (
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/kendall-kelly/fixnow-api/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
// It will fail the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// NewTestDB opens a private in-memory SQLite database with the full schema and
// the seeded service catalog. A single connection keeps every query on the same
// in-memory database and serializes transactions.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "Failed to connect to test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db), "Failed to migrate test database")
	require.NoError(t, models.SeedServices(db), "Failed to seed services")
	return db
}

// CreateProfile inserts a profile with the given role. Providers also get their provider row.
func CreateProfile(t *testing.T, db *gorm.DB, role models.Role, name string) *models.Profile {
	t.Helper()

	fullName := name
	profile := &models.Profile{
		Auth0ID:  "auth0|" + uuid.NewString(),
		Email:    fmt.Sprintf("%s-%s@example.com", sanitize(name), uuid.NewString()[:8]),
		FullName: &fullName,
		Role:     role,
	}
	require.NoError(t, db.Create(profile).Error)

	if role == models.RoleProvider {
		require.NoError(t, db.Create(models.NewProvider(profile.ID)).Error)
	}
	return profile
}

// CreateProvider inserts an approved provider offering the named services
func CreateProvider(t *testing.T, db *gorm.DB, name, serviceArea string, hourlyRate float64, serviceNames ...string) *models.Profile {
	t.Helper()

	profile := CreateProfile(t, db, models.RoleProvider, name)
	err := db.Model(&models.Provider{}).Where("id = ?", profile.ID).Updates(map[string]any{
		"service_area":        serviceArea,
		"hourly_rate":         hourlyRate,
		"verification_status": models.VerificationApproved,
		"is_verified":         true,
	}).Error
	require.NoError(t, err)

	for _, serviceName := range serviceNames {
		OfferService(t, db, profile.ID, serviceName)
	}
	return profile
}

// OfferService links a provider to a seeded service and returns the service
func OfferService(t *testing.T, db *gorm.DB, providerID, serviceName string) *models.Service {
	t.Helper()

	service := ServiceByName(t, db, serviceName)
	require.NoError(t, db.Create(&models.ProviderService{ProviderID: providerID, ServiceID: service.ID}).Error)
	return service
}

// ServiceByName loads a seeded service
func ServiceByName(t *testing.T, db *gorm.DB, name string) *models.Service {
	t.Helper()

	var service models.Service
	require.NoError(t, db.Where("name = ?", name).First(&service).Error, "service %s should be seeded", name)
	return &service
}

// LoadProvider reloads a provider row
func LoadProvider(t *testing.T, db *gorm.DB, id string) *models.Provider {
	t.Helper()

	var provider models.Provider
	require.NoError(t, db.First(&provider, "id = ?", id).Error)
	return &provider
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}
