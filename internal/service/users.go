package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"shop-service/internal/models"
	"shop-service/internal/repository"
)

type RegisterInput struct {
	Username  string `json:"username" validate:"required,max=150"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

type ProfileInput struct {
	Phone   string `json:"phone" validate:"max=20"`
	Address string `json:"address" validate:"max=200"`
	City    string `json:"city" validate:"max=100"`
}

type UserService struct {
	users    repository.UserRepository
	logger   *zap.Logger
	newToken func() string
}

func NewUserService(users repository.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		users:    users,
		logger:   logger.Named("users"),
		newToken: newToken,
	}
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Register creates the account together with its profile and cart and returns
// the new user's API token.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := Validate(&in); err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
	}
	token := s.newToken()

	if err := s.users.Register(ctx, user, token); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", fmt.Errorf("%w: username %q is taken", ErrConflict, in.Username)
		}
		return nil, "", storeError(err)
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.UserID), zap.String("username", user.Username))
	return user, token, nil
}

// Login checks the password and returns the user's token, issuing one if the
// user has none yet.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", validationError("username and password are required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUnauthorized
		}
		return "", storeError(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrUnauthorized
	}

	token, err := s.users.IssueToken(ctx, user.UserID, s.newToken())
	if err != nil {
		return "", storeError(err)
	}
	return token, nil
}

func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	user, err := s.users.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, storeError(err)
	}
	return user, nil
}

func (s *UserService) Me(ctx context.Context, userID int64) (*models.User, *models.Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, storeError(err)
	}

	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, nil, storeError(err)
	}
	return user, profile, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (*models.Profile, error) {
	if err := Validate(&in); err != nil {
		return nil, err
	}

	profile := &models.Profile{
		UserID:  userID,
		Phone:   strings.TrimSpace(in.Phone),
		Address: strings.TrimSpace(in.Address),
		City:    strings.TrimSpace(in.City),
	}
	if err := s.users.UpdateProfile(ctx, profile); err != nil {
		return nil, storeError(err)
	}
	return profile, nil
}
