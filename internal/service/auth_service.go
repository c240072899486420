package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"saraban/internal/apperr"
	"saraban/internal/model"
	"saraban/pkg/util"
)

const minPasswordLength = 6

type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id int) (*model.User, error)
	UpdateFullname(ctx context.Context, id int, fullname string) error
	UpdatePassword(ctx context.Context, id int, hash string) error
}

type AuthService struct {
	users     UserStore
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewAuthService(users UserStore, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

// Register creates a regular user.
func (s *AuthService) Register(ctx context.Context, username, password, fullname string) (*model.User, error) {
	return s.create(ctx, username, password, fullname, model.RoleUser)
}

// EnsureAdmin creates the admin account when it does not exist yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	_, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	_, err = s.create(ctx, username, password, username, model.RoleAdmin)
	if errors.Is(err, apperr.ErrUsernameTaken) {
		return nil
	}
	return err
}

func (s *AuthService) create(ctx context.Context, username, password, fullname, role string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.Validation("username is required")
	}
	if len(password) < minPasswordLength {
		return nil, apperr.Validation("password must be at least %d characters", minPasswordLength)
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Username:     username,
		Fullname:     strings.TrimSpace(fullname),
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks credentials and returns a signed token with the user.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	u, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if !util.CheckPassword(password, u.PasswordHash) {
		s.logger.Info("Login rejected", zap.String("username", u.Username))
		return "", nil, apperr.ErrInvalidCredentials
	}

	token, err := s.issue(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// UpdateProfile changes the display name and returns a token carrying it.
func (s *AuthService) UpdateProfile(ctx context.Context, userID int, fullname string) (string, *model.User, error) {
	fullname = strings.TrimSpace(fullname)
	if fullname == "" {
		return "", nil, apperr.Validation("fullname is required")
	}
	if err := s.users.UpdateFullname(ctx, userID, fullname); err != nil {
		return "", nil, err
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	token, err := s.issue(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID int, current, next string) error {
	if current == "" || next == "" {
		return apperr.Validation("currentPassword and newPassword are required")
	}
	if len(next) < minPasswordLength {
		return apperr.Validation("password must be at least %d characters", minPasswordLength)
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !util.CheckPassword(current, u.PasswordHash) {
		return apperr.ErrInvalidCredentials
	}
	hash, err := util.HashPassword(next)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

func (s *AuthService) issue(u *model.User) (string, error) {
	return util.GenerateJWT(util.Claims{
		UserID:   u.ID,
		Username: u.Username,
		Fullname: u.Fullname,
		Role:     u.Role,
	}, s.jwtSecret, s.tokenTTL)
}
