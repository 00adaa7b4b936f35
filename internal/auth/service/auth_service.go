package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/flume-app/flume-backend/internal/auth/domain"
	"github.com/flume-app/flume-backend/internal/users"
)

// ProfileStore is implemented by users.Repo and users.CachedRepo.
type ProfileStore interface {
	Get(ctx context.Context, uid string) (*users.Profile, error)
	EnsureUser(ctx context.Context, u users.UpsertUser) (*users.Profile, bool, error)
}

type AuthService struct {
	profiles ProfileStore
	log      *zap.Logger
}

func NewAuthService(profiles ProfileStore, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{profiles: profiles, log: log}
}

// SyncUser creates the caller's profile on first sign-in. An existing
// profile is returned unchanged.
func (s *AuthService) SyncUser(ctx context.Context, id domain.Identity) (*domain.User, error) {
	p, created, err := s.profiles.EnsureUser(ctx, users.UpsertUser{
		FirebaseUID: id.UID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.log.Info("user profile created", zap.String("uid", id.UID))
	}
	return toUser(id, p), nil
}

// GetProfile returns the caller's stored profile merged with the identity.
func (s *AuthService) GetProfile(ctx context.Context, id domain.Identity) (*domain.User, error) {
	p, err := s.profiles.Get(ctx, id.UID)
	if errors.Is(err, users.ErrNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return toUser(id, p), nil
}

func toUser(id domain.Identity, p *users.Profile) *domain.User {
	email := p.Email
	if email == "" || email == "N/A" {
		email = id.Email
	}
	return &domain.User{
		FirebaseUID: id.UID,
		Email:       email,
		DisplayName: id.DisplayName,
		PhotoURL:    id.PhotoURL,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		CreatedAt:   p.CreatedAt,
	}
}
