package book

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedRepository serves GetByID from Redis and falls back to the wrapped
// Repository. Writes go to the wrapped Repository first and then drop the
// cached entry. Redis failures are logged and never fail the call.
type CachedRepository struct {
	Repository
	rdb *redis.Client
	ttl time.Duration
}

func NewCachedRepository(next Repository, rdb *redis.Client, ttl time.Duration) *CachedRepository {
	return &CachedRepository{Repository: next, rdb: rdb, ttl: ttl}
}

func cacheKey(id string) string {
	return "book:" + id
}

func (c *CachedRepository) GetByID(ctx context.Context, id string) (Book, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(id)).Bytes()
	switch {
	case err == nil:
		var b Book
		if jsonErr := json.Unmarshal(raw, &b); jsonErr == nil {
			return b, nil
		}
		log.Printf("book cache decode failed: book_id=%s", id)
	case !errors.Is(err, redis.Nil):
		log.Printf("book cache get failed: book_id=%s error=%v", id, err)
	}

	b, err := c.Repository.GetByID(ctx, id)
	if err != nil {
		return Book{}, err
	}
	c.store(ctx, b)
	return b, nil
}

func (c *CachedRepository) Update(ctx context.Context, b *Book) error {
	if err := c.Repository.Update(ctx, b); err != nil {
		return err
	}
	c.evict(ctx, b.ID)
	return nil
}

func (c *CachedRepository) Delete(ctx context.Context, id string) error {
	if err := c.Repository.Delete(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, id)
	return nil
}

func (c *CachedRepository) store(ctx context.Context, b Book) {
	raw, err := json.Marshal(b)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(b.ID), raw, c.ttl).Err(); err != nil {
		log.Printf("book cache set failed: book_id=%s error=%v", b.ID, err)
	}
}

func (c *CachedRepository) evict(ctx context.Context, id string) {
	if err := c.rdb.Del(ctx, cacheKey(id)).Err(); err != nil {
		log.Printf("book cache evict failed: book_id=%s error=%v", id, err)
	}
}
