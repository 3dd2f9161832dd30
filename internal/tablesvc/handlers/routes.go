package handlers

import (
	"github.com/avvvet/poker-services/internal/auth"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Post("/tables", h.CreateTable)
			r.Get("/tables", h.ListTables)
			r.Route("/tables/{tableID}", func(r chi.Router) {
				r.Get("/", h.GetTable)
				r.Post("/seats", h.SitDown)
				r.Delete("/seats/me", h.StandUp)
				r.Post("/sitout", h.SitOut)
				r.Post("/actions", h.Act)
			})
			r.Get("/hands/{handID}/replay", h.Replay)
		})
	})
}

func (h *Handler) InitAuth(secret string) {
	h.tokenAuth = auth.New(secret)
}
