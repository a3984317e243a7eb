package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/branch-forms/internal/application/port"
	"github.com/garyjia/branch-forms/internal/domain/entity"
	domainwf "github.com/garyjia/branch-forms/internal/domain/workflow"
	"github.com/garyjia/branch-forms/pkg/utils"
)

// ErrProfileNotFound is returned when an authenticated user has no stored profile
var ErrProfileNotFound = errors.New("user profile not found")

// ProfileService resolves authenticated users into actors
type ProfileService interface {
	// Resolve loads the profile of the user and returns the actor used for engine calls
	Resolve(ctx context.Context, userID string) (entity.ActorContext, error)
	Get(ctx context.Context, userID string) (*entity.Profile, error)
	Save(ctx context.Context, profile *entity.Profile) error
}

type profileServiceImpl struct {
	profiles port.ProfileRepository
	logger   Logger
}

// NewProfileService creates a new ProfileService
func NewProfileService(profiles port.ProfileRepository, logger Logger) ProfileService {
	return &profileServiceImpl{profiles: profiles, logger: logger}
}

func (s *profileServiceImpl) Resolve(ctx context.Context, userID string) (entity.ActorContext, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return entity.ActorContext{}, err
	}
	return profile.Actor(), nil
}

func (s *profileServiceImpl) Get(ctx context.Context, userID string) (*entity.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrProfileNotFound
	}
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", userID, err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
	}
	return profile, nil
}

func (s *profileServiceImpl) Save(ctx context.Context, profile *entity.Profile) error {
	if profile == nil {
		return fmt.Errorf("profile requires a user id")
	}
	if err := utils.ValidateUserID(profile.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(profile.Name) == "" {
		return fmt.Errorf("profile %s requires a name", profile.UserID)
	}
	if !domainwf.Role(profile.Role).IsValid() {
		return fmt.Errorf("profile %s has unknown role %q", profile.UserID, profile.Role)
	}

	now := time.Now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	if err := s.profiles.Upsert(ctx, profile); err != nil {
		s.logger.Error("Failed to save profile", "user_id", profile.UserID, "error", err)
		return fmt.Errorf("failed to save profile: %w", err)
	}

	s.logger.Info("Profile saved", "user_id", profile.UserID, "role", profile.Role)
	return nil
}
