package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kendall-kelly/fixnow-api/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// SignUpInput carries the identity provider's view of the new account plus the role the user picked
type SignUpInput struct {
	Auth0ID  string      `json:"-" validate:"required"`
	Email    string      `json:"email" validate:"required,email"`
	FullName *string     `json:"full_name"`
	Phone    *string     `json:"phone"`
	Role     models.Role `json:"role"`
	// ClaimedRole is the role asserted by the token. Only it can grant admin.
	ClaimedRole models.Role `json:"-"`
}

// UpdateProfileInput lists the editable profile fields. Role is accepted only to reject a change.
type UpdateProfileInput struct {
	FullName  *string      `json:"full_name"`
	Phone     *string      `json:"phone"`
	AvatarURL *string      `json:"avatar_url" validate:"omitempty,url"`
	Email     *string      `json:"email" validate:"omitempty,email"`
	Role      *models.Role `json:"role"`
}

// MyProfile is the signed-in user's profile, with the provider record for providers
type MyProfile struct {
	models.Profile
	Provider *models.Provider `json:"provider,omitempty"`
}

// ProfileService manages account profiles
type ProfileService struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewProfileService creates a profile service bound to db
func NewProfileService(db *gorm.DB, logger *slog.Logger) *ProfileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileService{db: db, logger: logger}
}

// SignUp creates the profile, and the pending provider record for providers, in one transaction
func (s *ProfileService) SignUp(ctx context.Context, in SignUpInput) (*MyProfile, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	role, err := resolveSignUpRole(in.Role, in.ClaimedRole)
	if err != nil {
		return nil, err
	}

	out := &MyProfile{Profile: models.Profile{
		Auth0ID:  in.Auth0ID,
		Email:    in.Email,
		FullName: trimmed(in.FullName),
		Phone:    trimmed(in.Phone),
		Role:     role,
	}}

	err = runInTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Create(&out.Profile).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return newDomainError(KindConflict, "USER_EXISTS", "a user with this account or email already exists")
			}
			return classifyDBError(err, "failed to create profile")
		}
		if role != models.RoleProvider {
			return nil
		}
		out.Provider = models.NewProvider(out.Profile.ID)
		return classifyDBError(tx.Create(out.Provider).Error, "failed to create provider")
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "profile created", "profile_id", out.ID, "role", out.Role)
	return out, nil
}

// resolveSignUpRole applies the sign-up rule: self sign-up picks client or provider,
// admin only comes from the token.
func resolveSignUpRole(requested, claimed models.Role) (models.Role, error) {
	if claimed == models.RoleAdmin {
		return models.RoleAdmin, nil
	}
	switch requested {
	case "":
		if claimed == models.RoleProvider {
			return models.RoleProvider, nil
		}
		return models.RoleClient, nil
	case models.RoleClient, models.RoleProvider:
		return requested, nil
	case models.RoleAdmin:
		return "", unauthorized("admin accounts cannot be self-registered")
	}
	return "", validationError("role must be one of: client provider")
}

// FindByAuth0ID returns the profile linked to an identity provider subject
func (s *ProfileService) FindByAuth0ID(ctx context.Context, auth0ID string) (*models.Profile, error) {
	var p models.Profile
	if err := s.db.WithContext(ctx).Where("auth0_id = ?", auth0ID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("USER_NOT_FOUND", "User profile not found. Please create a profile first.")
		}
		return nil, errors.Wrap(err, "failed to load profile")
	}
	return &p, nil
}

// GetMyProfile returns the actor's profile
func (s *ProfileService) GetMyProfile(ctx context.Context, actor Actor) (*MyProfile, error) {
	db := s.db.WithContext(ctx)
	profile, err := findProfile(db, actor.ID)
	if err != nil {
		return nil, err
	}

	out := &MyProfile{Profile: *profile}
	if profile.Role == models.RoleProvider {
		if out.Provider, err = findProvider(db, profile.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UpdateMyProfile changes the actor's contact details. The role never changes.
func (s *ProfileService) UpdateMyProfile(ctx context.Context, actor Actor, in UpdateProfileInput) (*MyProfile, error) {
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		in.Email = &email
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Role != nil && *in.Role != actor.Role {
		return nil, validationError("role cannot be changed")
	}

	updates := map[string]any{}
	if in.FullName != nil {
		updates["full_name"] = trimmed(in.FullName)
	}
	if in.Phone != nil {
		updates["phone"] = trimmed(in.Phone)
	}
	if in.AvatarURL != nil {
		updates["avatar_url"] = trimmed(in.AvatarURL)
	}
	if in.Email != nil {
		if *in.Email == "" {
			return nil, validationError("email cannot be empty")
		}
		updates["email"] = *in.Email
	}

	if len(updates) > 0 {
		updates["updated_at"] = s.db.NowFunc()
		err := s.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", actor.ID).Updates(updates).Error
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, newDomainError(KindConflict, "EMAIL_EXISTS", "a user with this email already exists")
			}
			return nil, classifyDBError(err, "failed to update profile")
		}
	}

	return s.GetMyProfile(ctx, actor)
}
