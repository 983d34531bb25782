package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/morflash/morflash/internal/container"
	"github.com/morflash/morflash/internal/errors"
	"github.com/morflash/morflash/internal/importer"
	"github.com/morflash/morflash/internal/logger"
	"github.com/morflash/morflash/internal/manifest"
	"github.com/morflash/morflash/internal/models"
	"github.com/morflash/morflash/internal/scheduler"
	"github.com/morflash/morflash/internal/worker"
)

// DeckService handles the deck container lifecycle: building a new deck
// from imported records, opening and closing containers, and exporting
// them back out.
type DeckService interface {
	BuildDeck(ctx context.Context, name, description string, recs []importer.Record) (DeckInfo, error)
	ImportDeck(ctx context.Context, source string) (DeckInfo, error)
	ExportDeck(ctx context.Context, handleID, dest string) error
	QueueExport(handleID, dest string)
	CloseDeck(ctx context.Context, handleID string) error
	ListDecks(ctx context.Context) []DeckInfo
	MediaFile(ctx context.Context, handleID, name string) ([]byte, string, error)
}

type deckService struct {
	reg       *Registry
	dataDir   string
	generator string
	pool      *worker.Pool
}

// NewDeckService creates a new DeckService. Built and imported decks
// are kept under dataDir; pool, when non-nil, runs queued exports.
func NewDeckService(reg *Registry, dataDir, generator string, pool *worker.Pool) DeckService {
	return &deckService{reg: reg, dataDir: dataDir, generator: generator, pool: pool}
}

func (s *deckService) BuildDeck(ctx context.Context, name, description string, recs []importer.Record) (DeckInfo, error) {
	log := logger.FromContext(ctx)
	log.Debug("building deck %q from %d records", name, len(recs))

	if name == "" {
		return DeckInfo{}, errors.NewValidationError("name", "must not be empty")
	}
	if len(recs) == 0 {
		return DeckInfo{}, errors.NewValidationError("records", "no usable cards")
	}

	now := time.Now().UTC()
	deck := models.Deck{
		ID:          now.UnixMilli(),
		Name:        name,
		Description: description,
	}

	cards := make([]models.Card, len(recs))
	states := make([]models.ReviewState, len(recs))
	for i, rec := range recs {
		id := int64(i + 1)
		cards[i] = models.Card{
			ID:         id,
			DeckID:     deck.ID,
			Term:       rec.Term,
			Definition: rec.Definition,
			Example:    rec.Example,
			Notes:      rec.Notes,
			Hyperlink:  rec.Hyperlink,
			SortOrder:  i + 1,
		}
		states[i] = scheduler.NewState(id, now)
	}

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return DeckInfo{}, errors.NewInternalError(err)
	}
	dest := filepath.Join(s.dataDir, fmt.Sprintf("deck-%d.mflash", deck.ID))

	in := container.ExportInput{
		Deck:         deck,
		Cards:        cards,
		ReviewStates: states,
		Generator:    s.generator,
		Now:          now,
	}
	if err := container.Export(ctx, in, dest); err != nil {
		log.Error("failed to package new deck: %v", err)
		return DeckInfo{}, errors.NewInternalError(err)
	}

	return s.open(ctx, dest)
}

func (s *deckService) ImportDeck(ctx context.Context, source string) (DeckInfo, error) {
	return s.open(ctx, source)
}

func (s *deckService) open(ctx context.Context, source string) (DeckInfo, error) {
	log := logger.FromContext(ctx)

	d, err := container.Open(ctx, source)
	if err != nil {
		log.Warn("failed to open container %s: %v", source, err)
		return DeckInfo{}, importError(err)
	}

	id := s.reg.add(d)
	log.Info("deck %q opened: handle=%s", d.Manifest().Name, id)
	return DeckInfo{HandleID: id, Manifest: d.Manifest()}, nil
}

func (s *deckService) ExportDeck(ctx context.Context, handleID, dest string) error {
	log := logger.FromContext(ctx)

	d, err := s.reg.get(handleID)
	if err != nil {
		return err
	}
	st := d.Store()

	deck, err := st.Deck(ctx)
	if err != nil {
		return errors.NewInternalError(err)
	}
	cards, err := st.CardsInOrder(ctx, deck.ID)
	if err != nil {
		return errors.NewInternalError(err)
	}
	media, err := st.MediaRows(ctx)
	if err != nil {
		return errors.NewInternalError(err)
	}
	states, err := st.ReviewStates(ctx)
	if err != nil {
		return errors.NewInternalError(err)
	}

	// Carry over every blob still present in the source archive; rows
	// whose file went missing stay as dangling references.
	blobs := make(map[string][]byte)
	for _, m := range media {
		if !d.HasMedia(m.FileName) {
			log.Warn("media %q referenced but absent from source archive, re-exporting without it", m.FileName)
			continue
		}
		content, err := d.MediaFile(m.FileName)
		if err != nil {
			return errors.NewInternalError(err)
		}
		blobs[m.FileName] = content
	}
	thumb, err := d.Thumbnail()
	if err != nil {
		return errors.NewInternalError(err)
	}

	prior := d.Manifest()
	in := container.ExportInput{
		Deck:         *deck,
		Cards:        cards,
		Media:        media,
		ReviewStates: states,
		MediaBlobs:   blobs,
		Thumbnail:    thumb,
		Prior:        &prior,
		Generator:    s.generator,
	}
	if err := container.Export(ctx, in, dest); err != nil {
		log.Error("export failed: %v", err)
		return errors.NewInternalError(err)
	}
	return nil
}

// QueueExport runs an export on the worker pool. Failures are logged by
// the pool; the caller gets no completion signal beyond the log. With
// no pool configured the export runs inline.
func (s *deckService) QueueExport(handleID, dest string) {
	job := &exportJob{svc: s, handleID: handleID, dest: dest}
	if s.pool == nil {
		if err := job.Run(context.Background()); err != nil {
			logger.Default().Error("inline export failed: %v", err)
		}
		return
	}
	s.pool.Submit(job)
}

func (s *deckService) CloseDeck(ctx context.Context, handleID string) error {
	d, ok := s.reg.remove(handleID)
	if !ok {
		return errors.NewNotFoundError("deck handle", handleID)
	}
	if err := d.Close(); err != nil {
		return errors.NewInternalError(err)
	}
	logger.FromContext(ctx).Info("deck handle closed: %s", handleID)
	return nil
}

func (s *deckService) ListDecks(ctx context.Context) []DeckInfo {
	return s.reg.list()
}

func (s *deckService) MediaFile(ctx context.Context, handleID, name string) ([]byte, string, error) {
	d, err := s.reg.get(handleID)
	if err != nil {
		return nil, "", err
	}

	mimeType := ""
	rows, err := d.Store().MediaRows(ctx)
	if err != nil {
		return nil, "", errors.NewInternalError(err)
	}
	for _, m := range rows {
		if m.FileName == name {
			mimeType = m.MimeType
			break
		}
	}

	content, err := d.MediaFile(name)
	if stderrors.Is(err, container.ErrMediaFileMissing) {
		return nil, "", errors.NewNotFoundError("media file", name)
	}
	if err != nil {
		return nil, "", errors.NewInternalError(err)
	}
	return content, mimeType, nil
}

// importError maps container/manifest failures onto boundary errors.
func importError(err error) error {
	switch {
	case stderrors.Is(err, container.ErrNotAContainer),
		stderrors.Is(err, container.ErrMissingManifest),
		stderrors.Is(err, container.ErrMalformedManifest),
		stderrors.Is(err, container.ErrMissingDatabase),
		stderrors.Is(err, container.ErrCorruptDatabase),
		stderrors.Is(err, manifest.ErrUnsupportedFormat),
		stderrors.Is(err, manifest.ErrUnsupportedVersion),
		stderrors.Is(err, manifest.ErrMalformed),
		stderrors.Is(err, manifest.ErrIntegrityMismatch):
		return errors.NewUnprocessableError("deck container rejected", err)
	case os.IsNotExist(stderrors.Unwrap(err)), os.IsNotExist(err):
		return errors.NewNotFoundError("container", "source file")
	default:
		return errors.NewInternalError(err)
	}
}
