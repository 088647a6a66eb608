package book

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Service provides book-related business logic.
type Service struct {
	repo   Repository
	images ImageStore
	now    func() time.Time
}

// NewService creates a new book service. images may be nil, in which case
// requests carrying an image fail with ErrImageHostUnavailable.
func NewService(repo Repository, images ImageStore) *Service {
	return &Service{repo: repo, images: images, now: time.Now}
}

func (s *Service) Create(ctx context.Context, in CreateInput, img *Image) (Book, error) {
	if img != nil && s.images == nil {
		return Book{}, ErrImageHostUnavailable
	}

	b := in.toBook()
	if err := s.repo.Create(ctx, &b); err != nil {
		return Book{}, fmt.Errorf("create book: %w", err)
	}
	if img == nil {
		return b, nil
	}

	url, err := s.upload(ctx, b.ID, img)
	if err != nil {
		s.rollbackCreate(ctx, b.ID)
		return Book{}, err
	}
	b.ImageURL = &url
	if err := s.repo.Update(ctx, &b); err != nil {
		s.deleteImage(ctx, b.ID, url)
		s.rollbackCreate(ctx, b.ID)
		return Book{}, fmt.Errorf("store image url: %w", err)
	}
	return b, nil
}

func (s *Service) rollbackCreate(ctx context.Context, id string) {
	if err := s.repo.Delete(ctx, id); err != nil {
		log.Printf("book rollback failed: book_id=%s error=%v", id, err)
	}
}

func (s *Service) FindAll(ctx context.Context, p Pagination, f Filter) (PaginatedBooks, error) {
	p = p.normalize()
	books, total, err := s.repo.List(ctx, Query{
		Filter: f,
		Limit:  p.Limit,
		Offset: p.offset(),
	})
	if err != nil {
		return PaginatedBooks{}, fmt.Errorf("list books: %w", err)
	}
	return newPage(books, total, p), nil
}

func (s *Service) FindOne(ctx context.Context, id string) (Book, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Book{}, &NotFoundError{ID: id}
		}
		return Book{}, fmt.Errorf("get book %s: %w", id, err)
	}
	return b, nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput, img *Image) (Book, error) {
	if img != nil && s.images == nil {
		return Book{}, ErrImageHostUnavailable
	}

	b, err := s.FindOne(ctx, id)
	if err != nil {
		return Book{}, err
	}

	var uploaded string
	if img != nil {
		if b.ImageURL != nil {
			s.deleteImage(ctx, b.ID, *b.ImageURL)
		}
		url, err := s.upload(ctx, b.ID, img)
		if err != nil {
			return Book{}, err
		}
		b.ImageURL = &url
		uploaded = url
	}

	in.apply(&b)
	if err := s.repo.Update(ctx, &b); err != nil {
		if uploaded != "" {
			s.deleteImage(ctx, b.ID, uploaded)
		}
		if errors.Is(err, ErrNotFound) {
			return Book{}, &NotFoundError{ID: id}
		}
		return Book{}, fmt.Errorf("update book %s: %w", id, err)
	}
	return b, nil
}

func (s *Service) Remove(ctx context.Context, id string) error {
	b, err := s.FindOne(ctx, id)
	if err != nil {
		return err
	}

	if b.ImageURL != nil {
		s.deleteImage(ctx, b.ID, *b.ImageURL)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &NotFoundError{ID: id}
		}
		return fmt.Errorf("delete book %s: %w", id, err)
	}
	return nil
}

func (s *Service) Search(ctx context.Context, term string) ([]Book, error) {
	books, err := s.repo.Search(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	if books == nil {
		books = []Book{}
	}
	return books, nil
}

func (s *Service) upload(ctx context.Context, bookID string, img *Image) (string, error) {
	key := fmt.Sprintf("%s-%d", bookID, s.now().UnixMilli())
	url, err := s.images.Upload(ctx, key, img.Body)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return url, nil
}

// deleteImage never fails the caller; hosted images are cleaned up best-effort.
func (s *Service) deleteImage(ctx context.Context, bookID, url string) {
	if s.images == nil {
		log.Printf("image delete skipped: book_id=%s url=%s reason=no image host", bookID, url)
		return
	}
	if err := s.images.Delete(ctx, url); err != nil {
		log.Printf("image delete failed: book_id=%s url=%s error=%v", bookID, url, err)
	}
}
