package service

import (
	"context"
	"encoding/json"
	"time"

	"accountd/internal/cache"
	"accountd/internal/model"
	"accountd/internal/repository"
)

const (
	userListCacheKey = "users:all"
	userListCacheTTL = time.Minute
)

// UserService exposes read operations over the user collection.
type UserService interface {
	ListUsers(ctx context.Context) ([]model.User, error)
}

type userService struct {
	repo  repository.UserRepository
	cache *cache.Client
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache *cache.Client) UserService {
	return &userService{repo: repo, cache: cache}
}

// ListUsers returns all users, read through the cache. Password hashes and
// session tokens never serialize, so the cached payload is safe to return
// as-is.
func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	if data, _ := s.cache.Get(ctx, userListCacheKey); data != nil {
		var cached []model.User
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(users); err == nil {
		_ = s.cache.Set(ctx, userListCacheKey, payload, userListCacheTTL)
	}
	return users, nil
}
