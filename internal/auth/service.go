package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bookcatalog/internal/platform/crypto"
	"bookcatalog/internal/user"
)

const LogoutMessage = "Logged out successfully"

// ErrUnauthorized is returned for every failed sign-in, whether the email is
// unknown or the password is wrong.
var ErrUnauthorized = errors.New("Invalid credentials")

// Result is what a successful register or sign-in hands back to the client.
type Result struct {
	Token string    `json:"access_token"`
	User  user.User `json:"user"`
}

type Service struct {
	secret string
	ttl    time.Duration
	users  *user.Service
	hash   func(password string) (string, error)
}

func NewService(secret string, ttl time.Duration, users *user.Service) *Service {
	return &Service{
		secret: secret,
		ttl:    ttl,
		users:  users,
		hash:   crypto.HashPassword,
	}
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// compareDummy burns a bcrypt comparison so unknown emails cost the same as
// wrong passwords.
func compareDummy(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = crypto.HashPassword("not-a-real-password")
	})
	_ = crypto.VerifyPassword(dummyHash, password)
}

// Register checks the email before hashing the password.
func (s *Service) Register(ctx context.Context, email, password, name string) (Result, error) {
	if err := s.users.EnsureEmailAvailable(ctx, email); err != nil {
		return Result{}, err
	}

	hash, err := s.hash(password)
	if err != nil {
		return Result{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Insert(ctx, email, name, hash)
	if err != nil {
		return Result{}, err
	}
	return s.issue(u)
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (Result, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			compareDummy(password)
			return Result{}, ErrUnauthorized
		}
		return Result{}, fmt.Errorf("load user: %w", err)
	}
	if !crypto.VerifyPassword(u.PasswordHash, password) {
		return Result{}, ErrUnauthorized
	}
	return s.issue(u)
}

// Logout acknowledges a sign-out. Tokens stay valid until they expire.
func (s *Service) Logout(_ context.Context) string {
	return LogoutMessage
}

func (s *Service) CurrentUser(ctx context.Context, userID string) (user.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrUnauthorized
		}
		return user.User{}, err
	}
	return u, nil
}

func (s *Service) issue(u user.User) (Result, error) {
	token, _, err := crypto.GenerateToken(s.secret, u.ID, u.Email, s.ttl)
	if err != nil {
		return Result{}, fmt.Errorf("sign token: %w", err)
	}
	return Result{Token: token, User: u}, nil
}
