package identity

import (
	"context"
	"errors"

	"github.com/estudiomd/backoffice/internal/domain/identity"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// UserService provisions staff accounts
type UserService struct {
	userRepo identity.UserRepository
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo identity.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{userRepo: userRepo, logger: logger}
}

// Create adds a user, rejecting duplicate emails
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	_, err := s.userRepo.FindByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return nil, shared.NewFieldError("email", "A user with this email already exists").WithCode("ALREADY_EXISTS")
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}

	user, err := identity.NewUser(req.Email, req.FullName, req.Password, identity.Role(req.Role))
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email),
		zap.String("role", string(user.Role)))

	resp := ToUserResponse(user)
	return &resp, nil
}
