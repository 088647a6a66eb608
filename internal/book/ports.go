package book

import (
	"context"
	"io"
)

//go:generate mockgen -source=ports.go -destination=mock_ports_test.go -package=book

// Repository defines the contract for book data storage.
type Repository interface {
	// Create assigns ID and timestamps on b.
	Create(ctx context.Context, b *Book) error
	GetByID(ctx context.Context, id string) (Book, error)
	// Update overwrites every column of the stored row and refreshes UpdatedAt.
	Update(ctx context.Context, b *Book) error
	Delete(ctx context.Context, id string) error
	// List returns one page, newest first, and the total matching count.
	List(ctx context.Context, q Query) ([]Book, int, error)
	// Search matches term against title, author or genre, newest first.
	Search(ctx context.Context, term string) ([]Book, error)
}

// ImageStore hosts cover images.
type ImageStore interface {
	Upload(ctx context.Context, key string, body io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}
