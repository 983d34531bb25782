package services

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/morflash/morflash/internal/container"
	"github.com/morflash/morflash/internal/errors"
	"github.com/morflash/morflash/internal/models"
)

// Registry tracks the open deck handles of this process, keyed by an
// opaque handle id. It replaces any notion of a global "current deck":
// every operation names the handle it works on.
type Registry struct {
	mu    sync.RWMutex
	decks map[string]*container.OpenDeck
}

func NewRegistry() *Registry {
	return &Registry{decks: make(map[string]*container.OpenDeck)}
}

func (r *Registry) add(d *container.OpenDeck) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.decks[id] = d
	r.mu.Unlock()
	return id
}

func (r *Registry) get(id string) (*container.OpenDeck, error) {
	r.mu.RLock()
	d, ok := r.decks[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFoundError("deck handle", id)
	}
	return d, nil
}

func (r *Registry) remove(id string) (*container.OpenDeck, bool) {
	r.mu.Lock()
	d, ok := r.decks[id]
	if ok {
		delete(r.decks, id)
	}
	r.mu.Unlock()
	return d, ok
}

// DeckInfo summarizes one open handle for listings.
type DeckInfo struct {
	HandleID string          `json:"handle_id"`
	Manifest models.Manifest `json:"manifest"`
}

func (r *Registry) list() []DeckInfo {
	r.mu.RLock()
	out := make([]DeckInfo, 0, len(r.decks))
	for id, d := range r.decks {
		out = append(out, DeckInfo{HandleID: id, Manifest: d.Manifest()})
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].HandleID < out[j].HandleID })
	return out
}

// CloseAll closes every open handle, returning the first error.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for id, d := range r.decks {
		if err := d.Close(); err != nil && first == nil {
			first = err
		}
		delete(r.decks, id)
	}
	return first
}
