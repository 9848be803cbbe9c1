package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/imageshare/service/internal/auth"
	"github.com/imageshare/service/internal/image"
	appMiddleware "github.com/imageshare/service/internal/middleware"
	"github.com/imageshare/service/internal/response"
	"github.com/imageshare/service/internal/storage"
)

// newRouter wires dependencies: storage → service → handler, and mounts every route.
func newRouter(a app, store storage.Storage) http.Handler {
	gate := auth.NewGate(a.cfg.APIKey)
	authHandler := auth.NewHandler(gate, a.cfg.TokenTTL)

	imageSvc := image.NewService(store, a.log.Named("image"))
	imageHandler := image.NewHandler(imageSvc, a.cfg.DownloadURL, a.log.Named("image"))

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(a.log.Named("http")))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Content-Disposition", "X-Request-ID", "Api-Key", "X-Api-Key", "X-Filename"},
		MaxAge:         300,
	}))

	r.Get("/", imageHandler.Root)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// Reads are public.
	r.Get("/images/{filename}", imageHandler.Get)
	r.Get("/uploads/{filename}", imageHandler.Get)

	// Writes need the shared secret or a token issued from it.
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.RequireAPIKey(gate, true))
		r.Put("/images", imageHandler.Upload)
		r.Post("/images", imageHandler.Upload)
		r.Delete("/images/{filename}", imageHandler.Delete)
		r.Delete("/wipe-all", imageHandler.WipeAll)
	})

	// Only the shared secret itself may mint tokens.
	r.With(appMiddleware.RequireAPIKey(gate, false)).Post("/tokens", authHandler.IssueToken)

	return r
}
