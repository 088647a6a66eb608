package main

import (
	"context"
	"net/http"
	"time"

	"bookcatalog/internal/auth"
	"bookcatalog/internal/book"
	"bookcatalog/internal/config"
	"bookcatalog/internal/httpx"
)

type routerDeps struct {
	cfg         config.Config
	books       *book.HTTPHandler
	auth        *auth.HTTPHandler
	graphql     http.Handler
	ready       func(context.Context) error
	authLimiter *httpx.RateLimitMiddleware
}

func newRouter(d routerDeps) http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := d.ready(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	requireAuth := httpx.AuthMiddleware(d.cfg.JWTSecret)
	rateLimited := d.authLimiter.Middleware

	router.Handle("POST /auth/register", rateLimited(http.HandlerFunc(d.auth.Register)))
	router.Handle("POST /auth/login", rateLimited(http.HandlerFunc(d.auth.Login)))
	router.HandleFunc("POST /auth/logout", d.auth.Logout)
	router.Handle("GET /me", requireAuth(http.HandlerFunc(d.auth.Me)))

	writeGuard := func(h http.HandlerFunc) http.Handler {
		if d.cfg.BookWritesNeedAuth {
			return requireAuth(h)
		}
		return h
	}

	router.HandleFunc("GET /books", d.books.List)
	router.HandleFunc("GET /books/search", d.books.Search)
	router.HandleFunc("GET /books/{id}", d.books.Get)
	router.Handle("POST /books", writeGuard(d.books.Create))
	router.Handle("PATCH /books/{id}", writeGuard(d.books.Update))
	router.Handle("DELETE /books/{id}", writeGuard(d.books.Delete))

	router.Handle("/graphql", httpx.OptionalAuthMiddleware(d.cfg.JWTSecret)(d.graphql))

	return httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware,
		httpx.RecoveryMiddleware,
		httpx.CORSMiddleware(d.cfg.AllowedOrigins),
		httpx.SecurityHeadersMiddleware(d.cfg.EnableHSTS),
		httpx.RequestSizeLimitMiddleware(d.cfg.MaxUploadBytes),
	)
}
