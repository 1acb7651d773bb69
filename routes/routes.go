package routes

import (
	"github.com/Dosada05/pong-arena/handlers"
	"github.com/Dosada05/pong-arena/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Match      *handlers.MatchHandler
	Tournament *handlers.TournamentHandler
	WebSocket  *handlers.WebSocketHandler
}

func InitRoutes(h Handlers, jwtSecret string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	router.Post("/users/signup", h.Auth.Register)
	router.Post("/users/signin", h.Auth.Login)

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", h.Match.Snapshot)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/history", h.Match.History)
			r.Post("/", h.Match.Create)
			r.Post("/{matchID}/players", h.Match.Join)
			r.Post("/{matchID}/start", h.Match.Start)
			r.Post("/{matchID}/intent", h.Match.SubmitIntent)
			r.Post("/{matchID}/result", h.Tournament.SubmitResult)
			r.Delete("/{matchID}", h.Match.Abandon)
		})
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournament.List)
		r.Get("/{tournamentID}", h.Tournament.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", h.Tournament.Create)
			r.Post("/{tournamentID}/players", h.Tournament.Join)
			r.Delete("/{tournamentID}/players", h.Tournament.Leave)
			r.Post("/{tournamentID}/start", h.Tournament.Start)
			r.Delete("/{tournamentID}", h.Tournament.Cancel)
			r.Get("/{tournamentID}/next-match", h.Tournament.NextMatch)
		})
	})

	router.Get("/ws/matches/{matchID}", h.WebSocket.ServeMatch)
	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeTournament)

	return router
}
