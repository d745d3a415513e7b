// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/danielhkuo/votedesk/auth"
	"github.com/danielhkuo/votedesk/challenge"
	"github.com/danielhkuo/votedesk/handlers"
	"github.com/danielhkuo/votedesk/hub"
	"github.com/danielhkuo/votedesk/middleware"
	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/store"
)

// Services are the long-lived dependencies the routes are served from.
type Services struct {
	Store      store.Store
	Hub        *hub.Hub
	Challenges *challenge.Service
	Tokens     auth.JWTAuthenticator
	AdminKey   string

	// AllowedOrigins limits CORS. Empty allows any origin.
	AllowedOrigins []string
}

func NewRouter(svc Services) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recover)
	r.Use(middleware.WithLogging)
	r.Use(middleware.CORS(svc.AllowedOrigins))

	// Initialize handlers
	var events handlers.Publisher
	if svc.Hub != nil {
		events = svc.Hub
	}
	pollHandler := handlers.NewPollHandler(svc.Store, events)
	votingHandler := handlers.NewVotingHandler(svc.Store, events)
	resultsHandler := handlers.NewResultsHandler(svc.Store)
	verificationHandler := handlers.NewVerificationHandler(svc.Challenges)
	authHandler := handlers.NewAuthHandler(svc.AdminKey, svc.Tokens)

	requireAdmin := middleware.RequireRole(svc.Tokens, models.RoleAdmin)
	requireVoter := middleware.RequireRole(svc.Tokens, models.RoleAdmin, models.RoleVoter)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		// Sessions
		r.Post("/auth/admin", authHandler.AdminToken)
		r.Post("/verification/start", verificationHandler.StartVerification)
		r.Post("/verification/verify", verificationHandler.VerifyCode)

		r.Route("/polls", func(r chi.Router) {
			// Public reads
			r.Get("/", pollHandler.ListPolls)
			r.Get("/{id}", pollHandler.GetPoll)
			r.Get("/{id}/summary", resultsHandler.GetSummary)
			if svc.Hub != nil {
				r.Get("/events", svc.Hub.ServeWS)
			}

			// Poll management (admin)
			r.With(requireAdmin).Post("/create", pollHandler.CreatePoll)
			r.With(requireAdmin).Put("/{id}", pollHandler.UpdatePoll)
			r.With(requireAdmin).Delete("/{id}", pollHandler.DeletePoll)

			// Voting (admin session or verified ticket)
			r.With(requireVoter).Post("/vote", votingHandler.CastVote)
		})
	})

	// Root endpoint
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("votedesk API v1"))
	})

	return r
}
