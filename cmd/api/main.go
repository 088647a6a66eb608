package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookcatalog/internal/auth"
	"bookcatalog/internal/book"
	"bookcatalog/internal/config"
	"bookcatalog/internal/graphql"
	"bookcatalog/internal/httpx"
	"bookcatalog/internal/platform/cloudinary"
	"bookcatalog/internal/user"
)

func main() {
	config.LoadEnvFiles()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()
	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("cannot open store: %v", err)
	}
	defer st.close()

	userService := user.NewService(st.users)
	authService := auth.NewService(cfg.JWTSecret, cfg.JWTTTL, userService)
	bookService := book.NewService(st.books, openImageStore(cfg))

	schema, err := graphql.NewSchema(bookService, authService, graphql.Options{
		RequireAuthForWrites: cfg.BookWritesNeedAuth,
	})
	if err != nil {
		log.Fatalf("cannot build graphql schema: %v", err)
	}

	authLimiter := httpx.NewRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer authLimiter.Stop()

	router := newRouter(routerDeps{
		cfg:         cfg,
		books:       book.NewHTTPHandler(bookService),
		auth:        auth.NewHTTPHandler(authService),
		graphql:     &graphql.Handler{Schema: schema},
		ready:       st.ready,
		authLimiter: authLimiter,
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s store=%s", cfg.Addr, cfg.StoreDriver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			log.Printf("server error: %v", err)
		}
	case sig := <-stop:
		log.Printf("shutting down: signal=%s", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

// openImageStore returns nil when Cloudinary is not configured; book writes
// carrying an image then fail with book.ErrImageHostUnavailable.
func openImageStore(cfg config.Config) book.ImageStore {
	cldCfg := cloudinary.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryFolder,
	}
	if !cldCfg.Enabled() {
		log.Println("cloudinary not configured, image uploads disabled")
		return nil
	}
	client, err := cloudinary.NewClient(cldCfg)
	if err != nil {
		log.Printf("cloudinary init failed, image uploads disabled: %v", err)
		return nil
	}
	log.Printf("cloudinary configured cloud=%s folder=%s", cfg.CloudinaryCloudName, cfg.CloudinaryFolder)
	return client
}
