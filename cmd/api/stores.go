package main

import (
	"context"
	"fmt"
	"log"

	"bookcatalog/internal/book"
	"bookcatalog/internal/config"
	"bookcatalog/internal/platform/database"
	"bookcatalog/internal/user"
)

type stores struct {
	books   book.Repository
	users   user.Repository
	ready   func(context.Context) error
	closers []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores wires the repositories for the configured driver, wrapping the
// book repository in the Redis cache when REDIS_ADDR is set.
func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	st := &stores{}

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := database.OpenPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, pool.Close)
		st.books = book.NewPostgresRepo(pool, cfg.QueryTimeout)
		st.users = user.NewPostgresRepo(pool, cfg.QueryTimeout)
		st.ready = pool.Ping

	case config.DriverGorm:
		db, err := database.OpenGorm(cfg.DatabaseDSN, cfg.Debug)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get database instance: %w", err)
		}
		st.closers = append(st.closers, func() { _ = sqlDB.Close() })
		st.books = book.NewGormRepo(db, cfg.QueryTimeout)
		st.users = user.NewGormRepo(db, cfg.QueryTimeout)
		st.ready = sqlDB.PingContext

	case config.DriverMemory:
		log.Println("using in-memory store, data is lost on restart")
		st.books = book.NewMemoryRepo()
		st.users = user.NewMemoryRepo()
		st.ready = func(context.Context) error { return nil }

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if cfg.RedisAddr != "" {
		rdb, err := database.OpenRedis(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Printf("book cache disabled: %v", err)
		} else {
			st.closers = append(st.closers, func() { _ = rdb.Close() })
			st.books = book.NewCachedRepository(st.books, rdb, cfg.BookCacheTTL)
		}
	}

	return st, nil
}
