package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRepo is the gorm-backed Repository, selected with STORE_DRIVER=gorm.
type GormRepo struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewGormRepo(db *gorm.DB, timeout time.Duration) *GormRepo {
	return &GormRepo{db: db, timeout: timeout}
}

func (r *GormRepo) withTimeout(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	return r.db.WithContext(timeoutCtx), cancel
}

func (r *GormRepo) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	db, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := db.Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *GormRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *GormRepo) GetByID(ctx context.Context, id string) (User, error) {
	if uuid.Validate(id) != nil {
		return User{}, ErrNotFound
	}
	return r.first(ctx, "id = ?", id)
}

func (r *GormRepo) first(ctx context.Context, cond string, arg any) (User, error) {
	db, cancel := r.withTimeout(ctx)
	defer cancel()
	var u User
	if err := db.Where(cond, arg).Take(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}
