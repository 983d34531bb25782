package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/morflash/morflash/internal/services"
)

// Server wires the HTTP surface to the deck and study services.
type Server struct {
	Decks services.DeckService
	Study services.StudyService
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/decks", func(r chi.Router) {
		r.Get("/", s.handleListDecks)
		r.Post("/", s.handleBuildDeck)
		r.Post("/import", s.handleImportDeck)

		r.Route("/{handle}", func(r chi.Router) {
			r.Delete("/", s.handleCloseDeck)
			r.Get("/cards", s.handleCards)
			r.Get("/due", s.handleDueCards)
			r.Post("/cards/{cardID}/review", s.handleReviewCard)
			r.Post("/export", s.handleExportDeck)
			r.Get("/media/{name}", s.handleMediaFile)
		})
	})

	return r
}
