package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studentride/rideshare/backend/internal/auth"
)

// Routes mounts every endpoint on a chi router. authn guards /api/v1; the
// admin subtree additionally requires auth.RoleAdmin.
func Routes(s *Server, authn func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authn)

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", s.CreateRequest)
			r.Get("/", s.SearchRequests)
			r.Get("/mine", s.ListMyRequests)
			r.Get("/{id}", s.GetRequest)
			r.Put("/{id}", s.UpdateRequest)
			r.Post("/{id}/cancel", s.CancelRequest)
			r.Delete("/{id}", s.DeleteRequest)
		})

		r.Route("/votes", func(r chi.Router) {
			r.Get("/mine", s.ListMyVotes)
			r.Get("/request/{requestId}", s.ListRequestVotes)
			r.Post("/{requestId}", s.CastVote)
			r.Delete("/{requestId}", s.WithdrawVote)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/profile", s.GetProfile)
			r.Put("/profile", s.PutProfile)
			r.Get("/stats", s.GetUserStats)
			r.Delete("/account", s.DeleteAccount)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleAdmin))
			r.Post("/cleanup", s.RunCleanup)
			r.Get("/stats", s.GetCleanupStats)
		})
	})
	return r
}
