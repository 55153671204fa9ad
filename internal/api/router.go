package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/video-stream/subbot/internal/api/handlers"
	"github.com/video-stream/subbot/internal/api/middleware"
	"github.com/video-stream/subbot/internal/db"
)

// jsonBodyLimit caps the JSON request bodies
const jsonBodyLimit = 64 << 10

// Deps are the services behind the HTTP shell
type Deps struct {
	Database    *db.Database
	Tokens      middleware.TokenValidator
	Chat        handlers.ChatBot
	Jobs        handlers.JobStore
	Results     handlers.ResultReader
	Models      handlers.ModelSource
	Limiter     *middleware.RateLimiter
	CORSOrigins []string
	MaxUpload   int64
}

func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(middleware.CORSOptions(d.CORSOrigins)))
	if d.Limiter != nil {
		r.Use(d.Limiter.Handler)
	}

	chatHandler := handlers.NewChatHandler(d.Chat, d.MaxUpload)
	outboxHandler := handlers.NewOutboxHandler(d.Database, d.Jobs, d.Results)
	jobHandler := handlers.NewJobHandler(d.Jobs)
	modelsHandler := handlers.NewModelsHandler(d.Models, d.Database)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(d.Tokens))

			// Uploads carry their own limit
			r.Post("/documents", chatHandler.Document)

			r.Group(func(r chi.Router) {
				r.Use(middleware.MaxBodySize(jsonBodyLimit))

				// Conversation
				r.Post("/commands/{name}", chatHandler.Command)
				r.Post("/messages", chatHandler.Message)

				// Delivery
				r.Get("/outbox", outboxHandler.List)
				r.Get("/results/{jobID}", outboxHandler.Result)

				// Jobs
				r.Get("/jobs", jobHandler.ListJobs)
				r.Get("/jobs/{id}", jobHandler.GetJob)
				r.Delete("/jobs/{id}", jobHandler.CancelJob)

				r.Get("/models", modelsHandler.ListModels)
			})
		})
	})

	return r
}
