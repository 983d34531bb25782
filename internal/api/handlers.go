package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/morflash/morflash/internal/errors"
	"github.com/morflash/morflash/internal/importer"
	"github.com/morflash/morflash/internal/scheduler"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListDecks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.Decks.ListDecks(r.Context()))
}

type buildDeckRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Paste       string `json:"paste"`
	// Format selects the collaborator parser: "paste" (default,
	// "Term - Definition" lines) or "tabbed".
	Format string `json:"format"`
}

func (s *Server) handleBuildDeck(w http.ResponseWriter, r *http.Request) {
	var req buildDeckRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	var recs []importer.Record
	switch req.Format {
	case "", "paste":
		recs = importer.RecordsFromPaste(req.Paste)
	case "tabbed":
		recs = importer.RecordsFromTabbed(req.Paste)
	default:
		handleError(w, r, errors.NewValidationError("format", "must be paste or tabbed"))
		return
	}

	info, err := s.Decks.BuildDeck(r.Context(), req.Name, req.Description, recs)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, info)
}

type importDeckRequest struct {
	Source string `json:"source"`
}

func (s *Server) handleImportDeck(w http.ResponseWriter, r *http.Request) {
	var req importDeckRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if req.Source == "" {
		handleError(w, r, errors.NewValidationError("source", "must not be empty"))
		return
	}

	info, err := s.Decks.ImportDeck(r.Context(), req.Source)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleCloseDeck(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	if err := s.Decks.CloseDeck(r.Context(), handle); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	cards, err := s.Study.CardsInOrder(r.Context(), handle)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cards)
}

func (s *Server) handleDueCards(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")

	asOf := time.Now()
	if v := r.URL.Query().Get("as_of"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			handleError(w, r, errors.NewValidationError("as_of", "must be RFC3339"))
			return
		}
		asOf = parsed
	}

	cards, err := s.Study.DueCards(r.Context(), handle, asOf)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cards)
}

type reviewRequest struct {
	Grade string `json:"grade"`
}

func (s *Server) handleReviewCard(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	cardID, err := strconv.ParseInt(chi.URLParam(r, "cardID"), 10, 64)
	if err != nil {
		handleError(w, r, errors.NewValidationError("cardID", "must be an integer"))
		return
	}

	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	grade, ok := scheduler.ParseGrade(req.Grade)
	if !ok {
		handleError(w, r, errors.NewValidationError("grade", "must be correct or incorrect"))
		return
	}

	state, err := s.Study.ReviewCard(r.Context(), handle, cardID, grade, time.Now())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

type exportRequest struct {
	Dest  string `json:"dest"`
	Async bool   `json:"async"`
}

func (s *Server) handleExportDeck(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")

	var req exportRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if req.Dest == "" {
		handleError(w, r, errors.NewValidationError("dest", "must not be empty"))
		return
	}

	if req.Async {
		s.Decks.QueueExport(handle, req.Dest)
		respondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
		return
	}

	if err := s.Decks.ExportDeck(r.Context(), handle, req.Dest); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "exported", "dest": req.Dest})
}

func (s *Server) handleMediaFile(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	name := chi.URLParam(r, "name")

	content, mimeType, err := s.Decks.MediaFile(r.Context(), handle, name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	_, _ = w.Write(content)
}
