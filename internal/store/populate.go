package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/morflash/morflash/internal/logger"
	"github.com/morflash/morflash/internal/models"
)

// Populate inserts a whole deck (deck row, cards, media references and
// review states) in a single transaction. Any foreign-key violation or
// invalid media binding rolls everything back and returns ErrIntegrity;
// a reader never observes a partial insert.
func (s *Store) Populate(ctx context.Context, deck models.Deck, cards []models.Card, media []models.Media, states []models.ReviewState) error {
	log := logger.FromContext(ctx).WithPrefix("store")
	log.Debug("populating deck %d: %d cards, %d media, %d review states", deck.ID, len(cards), len(media), len(states))

	for _, m := range media {
		if !m.Binding.Valid() {
			return fmt.Errorf("%w: media %q has neither card binding nor deck-wide flag", ErrIntegrity, m.FileName)
		}
	}

	tags, err := json.Marshal(tagsOrEmpty(deck.Tags))
	if err != nil {
		return fmt.Errorf("encode deck tags: %w", err)
	}

	err = tx(ctx, s, func(t *sql.Tx) error {
		if _, err := t.ExecContext(ctx, `
INSERT INTO deck (id, name, description, tags, lang_front, lang_back)
VALUES (?, ?, ?, ?, ?, ?)
`, deck.ID, deck.Name, deck.Description, string(tags), deck.LangFront, deck.LangBack); err != nil {
			return err
		}

		for _, c := range cards {
			if _, err := t.ExecContext(ctx, `
INSERT INTO card (id, deck_id, term, definition, example, notes, hyperlink, sort_order, extra_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, c.ID, c.DeckID, c.Term, c.Definition, c.Example, c.Notes, c.Hyperlink, c.SortOrder, c.Extra); err != nil {
				return err
			}
		}

		for _, m := range media {
			var cardID sql.NullInt64
			deckWide := 0
			if id, ok := m.Binding.CardID(); ok {
				cardID = sql.NullInt64{Int64: id, Valid: true}
			} else {
				deckWide = 1
			}
			if _, err := t.ExecContext(ctx, `
INSERT INTO media (id, file_name, kind, mime_type, card_id, deck_wide, alt_text, caption)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, m.ID, m.FileName, string(m.Kind), m.MimeType, cardID, deckWide, m.AltText, m.Caption); err != nil {
				return err
			}
		}

		for _, st := range states {
			if _, err := t.ExecContext(ctx, `
INSERT INTO review_state (card_id, due_utc, interval_days, ease_factor, reps, lapses, last_review_utc)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, st.CardID, toMillis(st.DueUTC), st.IntervalDays, st.EaseFactor, st.Reps, st.Lapses, toMillis(st.LastReviewUTC)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isConstraintErr(err) {
			return fmt.Errorf("%w: %v", ErrIntegrity, err)
		}
		return err
	}

	log.Debug("deck %d populated", deck.ID)
	return nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func isConstraintErr(err error) bool {
	var serr sqlite3.Error
	if stderrors.As(err, &serr) {
		return serr.Code == sqlite3.ErrConstraint
	}
	return false
}
