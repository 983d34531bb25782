package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/morflash/morflash/internal/logger"
	"github.com/morflash/morflash/internal/models"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

var cardColumns = []string{
	"id", "deck_id", "term", "definition", "example", "notes", "hyperlink", "sort_order", "extra_json",
}

// Deck returns the single deck row of this store.
func (s *Store) Deck(ctx context.Context) (*models.Deck, error) {
	log := logger.FromContext(ctx).WithPrefix("store")

	var d models.Deck
	var tags string
	err := s.QueryRowContext(ctx, `
SELECT id, name, description, tags, lang_front, lang_back
FROM deck
LIMIT 1
`).Scan(&d.ID, &d.Name, &d.Description, &tags, &d.LangFront, &d.LangBack)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: deck row", ErrNotFound)
	}
	if err != nil {
		log.Error("failed to load deck row: %v", err)
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &d.Tags); err != nil {
		return nil, fmt.Errorf("decode deck tags: %w", err)
	}
	return &d, nil
}

// CardsInOrder returns all cards of a deck sorted by sort_order, with
// id as the tie-break. The result is recomputed on every call.
func (s *Store) CardsInOrder(ctx context.Context, deckID int64) ([]models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("store")

	q := sqlBuilder.Select(cardColumns...).
		From("card").
		Where(squirrel.Eq{"deck_id": deckID}).
		OrderBy("sort_order ASC", "id ASC")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list cards: %v", err)
		return nil, err
	}
	defer rows.Close()

	return scanCards(rows)
}

// DueCards returns the cards of a deck whose review state is due as of
// asOf, ordered by due instant ascending.
func (s *Store) DueCards(ctx context.Context, deckID int64, asOf time.Time) ([]models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("store")

	cols := make([]string, len(cardColumns))
	for i, c := range cardColumns {
		cols[i] = "c." + c
	}
	q := sqlBuilder.Select(cols...).
		From("card c").
		Join("review_state rs ON rs.card_id = c.id").
		Where(squirrel.Eq{"c.deck_id": deckID}).
		Where(squirrel.LtOrEq{"rs.due_utc": toMillis(asOf)}).
		OrderBy("rs.due_utc ASC")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list due cards: %v", err)
		return nil, err
	}
	defer rows.Close()

	cards, err := scanCards(rows)
	if err != nil {
		return nil, err
	}
	log.Debug("found %d due cards as of %s", len(cards), asOf.UTC().Format(time.RFC3339))
	return cards, nil
}

func scanCards(rows *sql.Rows) ([]models.Card, error) {
	var cards []models.Card
	for rows.Next() {
		var c models.Card
		if err := rows.Scan(&c.ID, &c.DeckID, &c.Term, &c.Definition, &c.Example, &c.Notes, &c.Hyperlink, &c.SortOrder, &c.Extra); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// CardCount returns the true number of card rows.
func (s *Store) CardCount(ctx context.Context) (int, error) {
	var n int
	if err := s.QueryRowContext(ctx, `SELECT COUNT(*) FROM card`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// HasDeckMedia reports whether any deck-wide media row exists.
func (s *Store) HasDeckMedia(ctx context.Context) (bool, error) {
	var n int
	if err := s.QueryRowContext(ctx, `SELECT COUNT(*) FROM media WHERE deck_wide = 1`).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// MediaRows returns all media references in the store.
func (s *Store) MediaRows(ctx context.Context) ([]models.Media, error) {
	rows, err := s.QueryContext(ctx, `
SELECT id, file_name, kind, mime_type, card_id, deck_wide, alt_text, caption
FROM media
ORDER BY id ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Media
	for rows.Next() {
		var m models.Media
		var kind string
		var cardID sql.NullInt64
		var deckWide int
		if err := rows.Scan(&m.ID, &m.FileName, &kind, &m.MimeType, &cardID, &deckWide, &m.AltText, &m.Caption); err != nil {
			return nil, err
		}
		m.Kind = models.MediaKind(kind)
		switch {
		case cardID.Valid && deckWide == 0:
			m.Binding = models.BindCard(cardID.Int64)
		case !cardID.Valid && deckWide == 1:
			m.Binding = models.BindDeckWide()
		default:
			return nil, fmt.Errorf("%w: media %q has invalid binding", ErrIntegrity, m.FileName)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ReviewState returns the review state of one card.
func (s *Store) ReviewState(ctx context.Context, cardID int64) (*models.ReviewState, error) {
	var st models.ReviewState
	var due, last int64
	err := s.QueryRowContext(ctx, `
SELECT card_id, due_utc, interval_days, ease_factor, reps, lapses, last_review_utc
FROM review_state
WHERE card_id = ?
`, cardID).Scan(&st.CardID, &due, &st.IntervalDays, &st.EaseFactor, &st.Reps, &st.Lapses, &last)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: review state for card %d", ErrNotFound, cardID)
	}
	if err != nil {
		return nil, err
	}
	st.DueUTC = fromMillis(due)
	st.LastReviewUTC = fromMillis(last)
	return &st, nil
}

// ReviewStates returns every review state row, ordered by card id.
func (s *Store) ReviewStates(ctx context.Context) ([]models.ReviewState, error) {
	rows, err := s.QueryContext(ctx, `
SELECT card_id, due_utc, interval_days, ease_factor, reps, lapses, last_review_utc
FROM review_state
ORDER BY card_id ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ReviewState
	for rows.Next() {
		var st models.ReviewState
		var due, last int64
		if err := rows.Scan(&st.CardID, &due, &st.IntervalDays, &st.EaseFactor, &st.Reps, &st.Lapses, &last); err != nil {
			return nil, err
		}
		st.DueUTC = fromMillis(due)
		st.LastReviewUTC = fromMillis(last)
		out = append(out, st)
	}
	return out, rows.Err()
}

// UpdateReviewState replaces the review state of one card in its own
// transaction. ErrNotFound if no state row exists for the card.
func (s *Store) UpdateReviewState(ctx context.Context, cardID int64, st models.ReviewState) error {
	log := logger.FromContext(ctx).WithPrefix("store")
	log.Debug("updating review state: card_id=%d interval=%d ease=%.2f", cardID, st.IntervalDays, st.EaseFactor)

	return tx(ctx, s, func(t *sql.Tx) error {
		res, err := t.ExecContext(ctx, `
UPDATE review_state
SET due_utc = ?, interval_days = ?, ease_factor = ?, reps = ?, lapses = ?, last_review_utc = ?
WHERE card_id = ?
`, toMillis(st.DueUTC), st.IntervalDays, st.EaseFactor, st.Reps, st.Lapses, toMillis(st.LastReviewUTC), cardID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: review state for card %d", ErrNotFound, cardID)
		}
		return nil
	})
}
