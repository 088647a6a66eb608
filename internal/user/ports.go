package user

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_ports_test.go -package=user

type Repository interface {
	// Create assigns ID and timestamps on u. It returns ErrAlreadyExists
	// when the email is taken.
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
}
