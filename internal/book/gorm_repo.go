package book

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

func (r *GormRepo) Create(ctx context.Context, b *Book) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	db, cancel := r.withTimeout(ctx)
	defer cancel()
	return db.Create(b).Error
}

func (r *GormRepo) GetByID(ctx context.Context, id string) (Book, error) {
	if uuid.Validate(id) != nil {
		return Book{}, ErrNotFound
	}
	db, cancel := r.withTimeout(ctx)
	defer cancel()

	var b Book
	if err := db.Where("id = ?", id).Take(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

// Update writes explicit columns; Save would insert a missing row.
func (r *GormRepo) Update(ctx context.Context, b *Book) error {
	if uuid.Validate(b.ID) != nil {
		return ErrNotFound
	}
	db, cancel := r.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	res := db.Model(&Book{}).Where("id = ?", b.ID).Updates(map[string]any{
		"title":          b.Title,
		"author":         b.Author,
		"published_year": b.PublishedYear,
		"genre":          b.Genre,
		"description":    b.Description,
		"isbn":           b.ISBN,
		"image_url":      b.ImageURL,
		"updated_at":     now,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	b.UpdatedAt = now
	return nil
}

func (r *GormRepo) Delete(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return ErrNotFound
	}
	db, cancel := r.withTimeout(ctx)
	defer cancel()

	res := db.Where("id = ?", id).Delete(&Book{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) List(ctx context.Context, q Query) ([]Book, int, error) {
	db, cancel := r.withTimeout(ctx)
	defer cancel()

	// Count and Find each get a fresh chain so neither leaks clauses into the other.
	filtered := func() *gorm.DB {
		tx := db.Model(&Book{})
		if q.Title != "" {
			tx = tx.Where("title ILIKE ?", containsPattern(q.Title))
		}
		if q.Author != "" {
			tx = tx.Where("author ILIKE ?", containsPattern(q.Author))
		}
		if q.Genre != "" {
			tx = tx.Where("genre ILIKE ?", containsPattern(q.Genre))
		}
		return tx
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	out := []Book{}
	err := filtered().
		Order("created_at DESC, id DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, int(total), nil
}

func (r *GormRepo) Search(ctx context.Context, term string) ([]Book, error) {
	db, cancel := r.withTimeout(ctx)
	defer cancel()

	pattern := containsPattern(term)
	out := []Book{}
	err := db.
		Where("title ILIKE @p OR author ILIKE @p OR genre ILIKE @p", map[string]any{"p": pattern}).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}
