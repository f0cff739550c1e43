package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// RegisterRoutes mounts the admin introspection surface onto mux under
// /admin. Matches the teacher's chi-under-ServeMux mounting shape in
// admin/routes.go, trimmed to the two endpoints this node exposes.
func RegisterRoutes(mux *http.ServeMux, h *Handlers) {
	r := chi.NewRouter()
	r.Use(AuthMiddleware)

	r.Route("/vbuckets/{id}", func(r chi.Router) {
		r.Get("/stats", h.handleStats)
		r.Get("/tracked", h.handleTracked)
	})

	mux.Handle("/admin", http.RedirectHandler("/admin/", http.StatusMovedPermanently))
	mux.Handle("/admin/", http.StripPrefix("/admin", r))

	log.Info().Msg("admin endpoints enabled at /admin/vbuckets/{id}/{stats,tracked}")
}
