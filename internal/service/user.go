package service

import (
	"context"
	"fmt"
	"time"

	"greenhouse-assistant/backend/internal/models"
	"greenhouse-assistant/backend/internal/repository"
	"greenhouse-assistant/backend/pkg/cache"
	apperrors "greenhouse-assistant/backend/pkg/errors"
	"greenhouse-assistant/backend/pkg/jwt"
	"greenhouse-assistant/backend/pkg/logger"
)

var (
	ErrUserAlreadyExists  = apperrors.NewConflictError("USERNAME_TAKEN", "Username is already registered")
	ErrInvalidCredentials = apperrors.NewUnauthorizedError("INVALID_CREDENTIALS", "Invalid username or password")
)

// UserService handles accounts and authentication
type UserService struct {
	users    repository.UserRepository
	jwt      *jwt.Service
	cache    cache.Store
	cacheTTL time.Duration
	log      *logger.Logger
}

// NewUserService creates a user service. store may be nil.
func NewUserService(users repository.UserRepository, jwtService *jwt.Service, store cache.Store, cacheTTL time.Duration, log *logger.Logger) *UserService {
	if store == nil {
		store = cache.Noop{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &UserService{users: users, jwt: jwtService, cache: store, cacheTTL: cacheTTL, log: log}
}

func userCacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

// Signup creates a new user and returns it with a token
func (s *UserService) Signup(ctx context.Context, req *models.SignupRequest) (*models.User, string, error) {
	if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
		return nil, "", ErrUserAlreadyExists
	} else if !apperrors.HasStatus(err, 404) {
		return nil, "", err
	}

	user := &models.User{Username: req.Username, Password: req.Password}
	if err := s.users.Create(ctx, user); err != nil {
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			return nil, "", ErrUserAlreadyExists
		}
		return nil, "", err
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, "", apperrors.NewInternalServerError("TOKEN_ERROR", "Failed to generate token").WithCause(err)
	}
	s.log.Info("User signed up", "user_id", user.ID)
	return user, token, nil
}

// Login authenticates a user and returns a token
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.User, string, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if apperrors.HasStatus(err, 404) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !models.CheckPasswordHash(req.Password, user.Password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, "", apperrors.NewInternalServerError("TOKEN_ERROR", "Failed to generate token").WithCause(err)
	}
	return user, token, nil
}

// GetUser returns the public view of a user, served from cache when possible
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.UserResponse, error) {
	var cached models.UserResponse
	if ok, err := cache.GetJSON(ctx, s.cache, userCacheKey(id), &cached); err != nil {
		s.log.Warn("User cache read failed", "error", err.Error())
	} else if ok {
		return &cached, nil
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := user.ToResponse()
	if err := cache.SetJSON(ctx, s.cache, userCacheKey(id), resp, s.cacheTTL); err != nil {
		s.log.Warn("User cache write failed", "error", err.Error())
	}
	return &resp, nil
}

// ListUsers returns a page of users
func (s *UserService) ListUsers(ctx context.Context, skip, limit int) ([]models.UserResponse, error) {
	users, err := s.users.List(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserResponse, len(users))
	for i := range users {
		out[i] = users[i].ToResponse()
	}
	return out, nil
}

// UpdateUser changes the caller's own username or password
func (s *UserService) UpdateUser(ctx context.Context, callerID, id uint, req *models.UpdateUserRequest) (*models.UserResponse, error) {
	if callerID != id {
		return nil, apperrors.NewForbiddenError(apperrors.CodeForbidden, "You can only update your own account")
	}
	if req.Username == nil && req.Password == nil {
		return nil, apperrors.NewBadRequestError("NO_FIELDS", "No fields to update")
	}

	updates := map[string]any{}
	if req.Username != nil {
		existing, err := s.users.GetByUsername(ctx, *req.Username)
		switch {
		case err == nil && existing.ID != id:
			return nil, ErrUserAlreadyExists
		case err != nil && !apperrors.HasStatus(err, 404):
			return nil, err
		}
		updates["username"] = *req.Username
	}
	if req.Password != nil {
		hashed, err := models.HashPassword(*req.Password)
		if err != nil {
			return nil, apperrors.NewInternalServerError(apperrors.CodeInternal, "Failed to hash password").WithCause(err)
		}
		updates["password"] = hashed
	}

	user, err := s.users.Update(ctx, id, updates)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}
	if err := s.cache.Delete(ctx, userCacheKey(id)); err != nil {
		s.log.Warn("User cache invalidation failed", "error", err.Error())
	}
	resp := user.ToResponse()
	return &resp, nil
}
