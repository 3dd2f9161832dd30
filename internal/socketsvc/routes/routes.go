package routes

import (
	"github.com/avvvet/poker-services/internal/socketsvc/handlers"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

// SetRoutes mounts the socket service. Browsers cannot set headers on a
// websocket upgrade, so the token is also read from the jwt cookie or the
// jwt query parameter.
func SetRoutes(r *chi.Mux, h *handlers.Handler, tokenAuth *jwtauth.JWTAuth) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verify(tokenAuth, jwtauth.TokenFromHeader, jwtauth.TokenFromCookie, jwtauth.TokenFromQuery))
			r.Use(jwtauth.Authenticator)

			r.Get("/tables/{tableID}/stream", h.HandleStream)
		})
	})
}
