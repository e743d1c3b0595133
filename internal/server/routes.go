package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	// Chat routes
	r.Route("/chat", func(r chi.Router) {
		r.Get("/", s.listChats)
		r.Post("/", s.createChat)

		r.Route("/{chatID}", func(r chi.Router) {
			r.Get("/", s.getChat)
			r.Get("/status", s.getChatStatus)
			r.Get("/messages", s.getChatMessages)
			r.Get("/pages", s.getChatPages)

			// Bidirectional action stream
			r.Get("/stream", s.streamChat)
		})
	})

	// Event streaming (SSE)
	r.Get("/event", s.allEvents)

	// Health
	r.Get("/health", s.health)
}
