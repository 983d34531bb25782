// Package manifest builds and validates the descriptive header of a
// .mflash container. It never touches storage: Build projects already
// counted facts into a Manifest value, and Validate/CheckCardCount
// verify a parsed one.
package manifest

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/morflash/morflash/internal/models"
)

// FormatTag is the required value of the manifest "format" field.
const FormatTag = "morflash.mflash"

// Version is the container format version this implementation writes
// and understands.
const Version = 1

// MinCoreVersion is stamped into exported manifests so older readers
// can refuse decks they cannot open.
const MinCoreVersion = "1.0.0"

var (
	ErrUnsupportedFormat  = stderrors.New("manifest: unsupported format")
	ErrUnsupportedVersion = stderrors.New("manifest: unsupported version")
	ErrMalformed          = stderrors.New("manifest: malformed")
	ErrIntegrityMismatch  = stderrors.New("manifest: integrity mismatch")
)

var validate = validator.New()

// Flags are the aggregate media facts summarized into a manifest.
type Flags struct {
	HasThumbnail bool
	HasDeckMedia bool
}

// Build derives a manifest from a deck and its aggregate card/media
// facts. cardCount must be the true row count of the packaged store.
// Timestamps are truncated to whole seconds so the JSON encoding is
// plain RFC3339.
func Build(deck models.Deck, cardCount int, flags Flags, generator string, now time.Time) models.Manifest {
	ts := now.UTC().Truncate(time.Second)
	return models.Manifest{
		Format:         FormatTag,
		Version:        Version,
		DeckID:         deck.ID,
		Name:           deck.Name,
		Description:    deck.Description,
		Tags:           deck.Tags,
		LangFront:      deck.LangFront,
		LangBack:       deck.LangBack,
		CardCount:      cardCount,
		CreatedAtUTC:   ts,
		UpdatedAtUTC:   ts,
		HasThumbnail:   flags.HasThumbnail,
		HasDeckMedia:   flags.HasDeckMedia,
		MinCoreVersion: MinCoreVersion,
		Generator:      generator,
	}
}

// Rebuild derives a fresh manifest but keeps the original creation
// instant, for re-exporting a deck that was previously packaged.
func Rebuild(prior models.Manifest, deck models.Deck, cardCount int, flags Flags, generator string, now time.Time) models.Manifest {
	m := Build(deck, cardCount, flags, generator, now)
	if !prior.CreatedAtUTC.IsZero() && prior.CreatedAtUTC.Before(m.UpdatedAtUTC) {
		m.CreatedAtUTC = prior.CreatedAtUTC.UTC().Truncate(time.Second)
	}
	return m
}

// Validate checks the static fields of a parsed manifest. Format is
// checked before version, so a file that is wrong on both counts
// reports ErrUnsupportedFormat.
func Validate(m models.Manifest) error {
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) {
			for _, fe := range verrs {
				switch fe.StructField() {
				case "Format":
					return fmt.Errorf("%w: expected %q, got %q", ErrUnsupportedFormat, FormatTag, m.Format)
				case "Version":
					return fmt.Errorf("%w: expected %d, got %d", ErrUnsupportedVersion, Version, m.Version)
				}
			}
		}
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m.UpdatedAtUTC.Before(m.CreatedAtUTC) {
		return fmt.Errorf("%w: updated_at_utc precedes created_at_utc", ErrMalformed)
	}
	return nil
}

// CheckCardCount cross-checks a validated manifest against the actual
// card row count of an attached store.
func CheckCardCount(m models.Manifest, actual int) error {
	if m.CardCount != actual {
		return fmt.Errorf("%w: manifest says %d cards, store has %d", ErrIntegrityMismatch, m.CardCount, actual)
	}
	return nil
}
