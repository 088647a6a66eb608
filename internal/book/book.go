package book

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a book is not found.
	ErrNotFound = errors.New("book not found")
	// ErrImageHostUnavailable is returned when an image is supplied but no
	// image host is configured.
	ErrImageHostUnavailable = errors.New("image uploads are not configured")
)

// NotFoundError names the missing book and matches ErrNotFound.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Book with ID %s not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Book represents a catalog entry.
type Book struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	PublishedYear int       `json:"published_year"`
	Genre         string    `json:"genre"`
	Description   *string   `json:"description"`
	ISBN          *string   `json:"isbn" gorm:"column:isbn"`
	ImageURL      *string   `json:"image_url" gorm:"column:image_url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Book) TableName() string { return "books" }

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Pagination selects a page of the listing. Values below 1 fall back to the
// defaults and Limit is capped at MaxLimit.
type Pagination struct {
	Page  int
	Limit int
}

func (p Pagination) normalize() Pagination {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// offset is the number of rows before the page. Pages too far out to
// address saturate at math.MaxInt, which yields an empty page.
func (p Pagination) offset() int {
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// Filter holds optional case-insensitive substring matches, ANDed together.
type Filter struct {
	Title  string
	Author string
	Genre  string
}

// Query is what repositories receive for a listing.
type Query struct {
	Filter
	Limit  int
	Offset int
}

type PaginatedBooks struct {
	Books           []Book `json:"books"`
	Total           int    `json:"total"`
	Page            int    `json:"page"`
	Limit           int    `json:"limit"`
	TotalPages      int    `json:"total_pages"`
	HasNextPage     bool   `json:"has_next_page"`
	HasPreviousPage bool   `json:"has_previous_page"`
}

func newPage(books []Book, total int, p Pagination) PaginatedBooks {
	if books == nil {
		books = []Book{}
	}
	totalPages := int(math.Ceil(float64(total) / float64(p.Limit)))
	return PaginatedBooks{
		Books:           books,
		Total:           total,
		Page:            p.Page,
		Limit:           p.Limit,
		TotalPages:      totalPages,
		HasNextPage:     p.Page < totalPages,
		HasPreviousPage: p.Page > 1,
	}
}

type CreateInput struct {
	Title         string  `json:"title" validate:"notblank,max=255"`
	Author        string  `json:"author" validate:"notblank,max=255"`
	PublishedYear int     `json:"published_year" validate:"required,gte=1,lte=9999"`
	Genre         string  `json:"genre" validate:"notblank,max=100"`
	Description   *string `json:"description" validate:"omitempty,max=5000"`
	ISBN          *string `json:"isbn" validate:"omitempty,isbn"`
}

func (in CreateInput) toBook() Book {
	return Book{
		Title:         strings.TrimSpace(in.Title),
		Author:        strings.TrimSpace(in.Author),
		PublishedYear: in.PublishedYear,
		Genre:         strings.TrimSpace(in.Genre),
		Description:   in.Description,
		ISBN:          in.ISBN,
	}
}

// UpdateInput carries a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Title         *string `json:"title" validate:"omitempty,notblank,max=255"`
	Author        *string `json:"author" validate:"omitempty,notblank,max=255"`
	PublishedYear *int    `json:"published_year" validate:"omitempty,gte=1,lte=9999"`
	Genre         *string `json:"genre" validate:"omitempty,notblank,max=100"`
	Description   *string `json:"description" validate:"omitempty,max=5000"`
	ISBN          *string `json:"isbn" validate:"omitempty,isbn"`
}

func (in UpdateInput) apply(b *Book) {
	if in.Title != nil {
		b.Title = strings.TrimSpace(*in.Title)
	}
	if in.Author != nil {
		b.Author = strings.TrimSpace(*in.Author)
	}
	if in.PublishedYear != nil {
		b.PublishedYear = *in.PublishedYear
	}
	if in.Genre != nil {
		b.Genre = strings.TrimSpace(*in.Genre)
	}
	if in.Description != nil {
		b.Description = in.Description
	}
	if in.ISBN != nil {
		b.ISBN = in.ISBN
	}
}

// Image is an uploaded cover waiting to be sent to the image host.
type Image struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// escapeLike quotes LIKE wildcards so user input only matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func containsPattern(s string) string {
	return "%" + escapeLike(s) + "%"
}
