package user

import (
	"context"
	"errors"
	"fmt"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a new user whose password has already been hashed.
func (s *Service) Create(ctx context.Context, email, name, passwordHash string) (User, error) {
	if err := s.EnsureEmailAvailable(ctx, email); err != nil {
		return User{}, err
	}
	return s.Insert(ctx, email, name, passwordHash)
}

// EnsureEmailAvailable returns ErrAlreadyExists when a user with exactly this
// email is stored.
func (s *Service) EnsureEmailAvailable(ctx context.Context, email string) error {
	_, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrAlreadyExists
	case !errors.Is(err, ErrNotFound):
		return fmt.Errorf("check existing user: %w", err)
	}
	return nil
}

// Insert stores a user without the availability lookup; the store's unique
// constraint still reports ErrAlreadyExists.
func (s *Service) Insert(ctx context.Context, email, name, passwordHash string) (User, error) {
	newUser := &User{
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
	}
	if err := s.repo.Create(ctx, newUser); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return User{}, ErrAlreadyExists
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return *newUser, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.GetByEmail(ctx, email)
}
