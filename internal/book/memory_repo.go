package book

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	book Book
	seq  uint64
}

// MemoryRepo keeps books in process memory. Used by STORE_DRIVER=memory and tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	books map[string]memoryEntry
	seq   uint64
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		books: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

func (r *MemoryRepo) Create(_ context.Context, b *Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := r.now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	r.seq++
	r.books[b.ID] = memoryEntry{book: *b, seq: r.seq}
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id string) (Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.books[id]
	if !ok {
		return Book{}, ErrNotFound
	}
	return e.book, nil
}

func (r *MemoryRepo) Update(_ context.Context, b *Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.books[b.ID]
	if !ok {
		return ErrNotFound
	}
	b.CreatedAt = e.book.CreatedAt
	b.UpdatedAt = r.now().UTC()
	e.book = *b
	r.books[b.ID] = e
	return nil
}

func (r *MemoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.books[id]; !ok {
		return ErrNotFound
	}
	delete(r.books, id)
	return nil
}

func (r *MemoryRepo) List(_ context.Context, q Query) ([]Book, int, error) {
	matches := r.newestFirst(func(b Book) bool {
		return containsFold(b.Title, q.Title) &&
			containsFold(b.Author, q.Author) &&
			containsFold(b.Genre, q.Genre)
	})

	total := len(matches)
	start := min(max(q.Offset, 0), total)
	end := total
	if q.Limit > 0 {
		end = min(start+q.Limit, total)
	}
	return matches[start:end], total, nil
}

func (r *MemoryRepo) Search(_ context.Context, term string) ([]Book, error) {
	return r.newestFirst(func(b Book) bool {
		return containsFold(b.Title, term) ||
			containsFold(b.Author, term) ||
			containsFold(b.Genre, term)
	}), nil
}

func (r *MemoryRepo) newestFirst(keep func(Book) bool) []Book {
	r.mu.RLock()
	entries := make([]memoryEntry, 0, len(r.books))
	for _, e := range r.books {
		if keep(e.book) {
			entries = append(entries, e)
		}
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.book.CreatedAt.Equal(b.book.CreatedAt) {
			return a.book.CreatedAt.After(b.book.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]Book, len(entries))
	for i, e := range entries {
		out[i] = e.book
	}
	return out
}

// containsFold reports whether sub occurs in s ignoring case; an empty sub matches.
func containsFold(s, sub string) bool {
	return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
