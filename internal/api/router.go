package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/flowboard/internal/session"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(sessions *session.Manager, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(sessions)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Palette and policy.
	r.Get("/node-kinds", h.ListNodeKinds)
	r.Get("/rules", h.ListRules)

	r.Get("/sessions", h.ListSessions)
	r.Post("/sessions", h.OpenSession)
	r.Route("/sessions/{sid}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.CloseSession)
		r.Get("/graph", h.Graph)

		r.Post("/drop", h.Drop)
		r.Post("/nodes", h.CreateNode)
		r.Route("/nodes/{id}", func(r chi.Router) {
			r.Get("/", h.GetNode)
			r.Delete("/", h.DeleteNode)
			r.Post("/duplicate", h.DuplicateNode)
			r.Put("/data", h.UpdateNodeData)
			r.Put("/position", h.MoveNode)
			r.Put("/language", h.SetLanguage)
			r.Put("/body", h.SetBody)
			r.Post("/responses", h.AddResponse)
			r.Put("/responses/{idx}", h.UpdateResponse)
			r.Delete("/responses/{idx}", h.DeleteResponse)
		})

		r.Post("/edges", h.CreateEdge)
		r.Delete("/edges/{eid}", h.DeleteEdge)

		r.Get("/menu", h.GetMenu)
		r.Post("/menu", h.OpenMenu)
		r.Delete("/menu", h.CloseMenu)
		r.Post("/menu/{action}", h.MenuAction)

		r.Put("/regions/{region}", h.RegisterRegion)
		r.Delete("/regions/{region}", h.UnregisterRegion)
		r.Get("/focus", h.GetFocus)
		r.Post("/focus", h.Focus)

		r.Get("/viewport", h.GetViewport)
		r.Put("/viewport", h.UpdateViewport)
	})

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
