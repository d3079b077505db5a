package service

import (
	"context"
	"time"

	"replypilot/internal/logger"
	"replypilot/internal/model"
	"replypilot/internal/repository"
)

type authService struct {
	userRepo repository.UserRepository
	logger   *logger.Logger
}

func NewAuthService(userRepo repository.UserRepository, logger *logger.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		logger:   logger,
	}
}

func (s *authService) GetOrCreateUser(ctx context.Context, googleID, email, name, accessToken, refreshToken string, tokenExpiry time.Time) (*model.User, error) {
	existingUser, err := s.userRepo.FindByGoogleID(ctx, googleID)
	if err != nil {
		// User doesn't exist yet, create a new one
		newUser := model.NewUser(googleID, email, name, accessToken, refreshToken, tokenExpiry)
		if err := s.userRepo.Create(ctx, newUser); err != nil {
			s.logger.Error("Failed to create user:", err)
			return nil, err
		}
		s.logger.Info("Created new user:", newUser.ID)
		return newUser, nil
	}

	// User exists, refresh tokens if the provider handed us new ones
	if accessToken != "" || refreshToken != "" {
		existingUser.AccessToken = accessToken
		existingUser.RefreshToken = refreshToken
		if !tokenExpiry.IsZero() {
			existingUser.TokenExpiry = tokenExpiry
		}
		existingUser.UpdatedAt = time.Now()

		if err := s.userRepo.Update(ctx, existingUser); err != nil {
			s.logger.Error("Failed to update user:", err)
			return nil, err
		}
		s.logger.Info("Updated existing user:", existingUser.ID)
	}

	return existingUser, nil
}

func (s *authService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}
